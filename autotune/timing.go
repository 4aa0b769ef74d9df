package autotune

import (
	"fmt"
	"sync"
	"time"
)

// rootTiming measures how long the consumer of the pipeline spends between
// taking an element and asking for the next one.
type rootTiming struct {
	mu         sync.Mutex
	lastInput  time.Time
	lastOutput time.Time
	inputTime  time.Duration
	inputs     int64
}

func (t *rootTiming) recordInput(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastOutput.IsZero() {
		if ts.Before(t.lastOutput) {
			panic(fmt.Sprintf("autotune: input recorded at %s before the previous output at %s",
				ts.Format(time.RFC3339Nano), t.lastOutput.Format(time.RFC3339Nano)))
		}
		t.inputTime += ts.Sub(t.lastOutput)
		t.inputs++
	}
	t.lastInput = ts
}

func (t *rootTiming) recordOutput(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ts.Before(t.lastInput) {
		panic(fmt.Sprintf("autotune: output recorded at %s before its input at %s",
			ts.Format(time.RFC3339Nano), t.lastInput.Format(time.RFC3339Nano)))
	}
	t.lastOutput = ts
}

// selfInputTime is the mean gap in nanoseconds, 0 before the first gap.
func (t *rootTiming) selfInputTime() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inputs == 0 {
		return 0
	}
	return float64(t.inputTime) / float64(t.inputs)
}
