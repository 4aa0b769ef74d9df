//go:build !linux

package autotune

import "math"

// availableRAM is unbounded where free memory cannot be queried.
func availableRAM() int64 {
	return math.MaxInt64
}
