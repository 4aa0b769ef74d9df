package autotune

import (
	"fmt"
	"runtime"

	"github.com/kbukum/autotune/errors"
)

// Budgets bounds the resources the optimizer may hand out.
type Budgets struct {
	// CPU is the number of cores; 0 resolves to runtime.NumCPU.
	CPU int64
	// RAM is the number of bytes; 0 resolves to half of the available memory.
	RAM int64
}

// Validate rejects negative budgets.
func (b Budgets) Validate() error {
	if b.CPU < 0 {
		return errors.InvalidConfig("autotune.cpu_budget", b.CPU, "must be >= 0")
	}
	if b.RAM < 0 {
		return errors.InvalidConfig("autotune.ram_budget", b.RAM, "must be >= 0")
	}
	return nil
}

// Resolve validates b and replaces zero budgets with their automatic values.
func (b Budgets) Resolve() (Budgets, error) {
	if err := b.Validate(); err != nil {
		return Budgets{}, err
	}
	if b.CPU == 0 {
		b.CPU = int64(runtime.NumCPU())
	}
	if b.RAM == 0 {
		b.RAM = availableRAM() / 2
	}
	return b, nil
}

func (b Budgets) String() string {
	return fmt.Sprintf("cpu_budget=%d ram_budget=%dB", b.CPU, b.RAM)
}
