//go:build !tinygo

package core

import "sync/atomic"

var barrierWord uint32

// loadTicks returns the low word of the tick counter without a critical
// section; calibration only watches for the counter to change.
func loadTicks(p *int64) uint32 {
	return uint32(atomic.LoadInt64(p))
}

// barrier is a memory access the compiler can neither drop nor reorder
func barrier() {
	atomic.LoadUint32(&barrierWord)
}
