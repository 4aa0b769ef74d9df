package pipeline_test

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/autotune/autotune"
	"github.com/kbukum/autotune/logger"
	"github.com/kbukum/autotune/model"
	"github.com/kbukum/autotune/pipeline"
)

func Example() {
	words := pipeline.FromSlice([]string{"pull", "based", "stages", "tuned", "live"})
	upper := pipeline.Parallel(words, pipeline.Auto, func(_ context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})
	prefetched := pipeline.Buffer(upper, pipeline.Auto)

	tuned := pipeline.Autotune(prefetched,
		autotune.Config{Algorithm: "gradient-descent", CPUBudget: 2},
		pipeline.WithModelOptions(model.WithLogger(logger.Nop())),
		pipeline.WithDriverOptions(autotune.WithLogger(logger.Nop())),
	)

	got, err := pipeline.Collect(context.Background(), tuned)
	if err != nil {
		fmt.Println(err)
		return
	}
	sort.Strings(got)
	fmt.Println(got)
	// Output: [BASED LIVE PULL STAGES TUNED]
}
