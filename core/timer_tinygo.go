//go:build tinygo

package core

import (
	"runtime/volatile"
	"unsafe"
)

var barrierWord uint32

// loadTicks returns the low word of the tick counter without a critical
// section. Calibration only watches for the counter to change, and one
// 32-bit load cannot tear on Cortex-M0 the way a 64-bit load can.
func loadTicks(p *int64) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(p)))
}

// barrier is a memory access the compiler can neither drop nor reorder
func barrier() {
	volatile.LoadUint32(&barrierWord)
}
