//go:build linux

package autotune

import (
	"math"

	"golang.org/x/sys/unix"
)

// availableRAM returns the free memory reported by sysinfo(2).
func availableRAM() int64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return math.MaxInt64
	}
	free := uint64(info.Freeram) * uint64(info.Unit)
	if free == 0 || free > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(free)
}
