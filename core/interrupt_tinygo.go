//go:build tinygo

package core

import "runtime/interrupt"

// State is the interrupt mask saved by disableInterrupts (PRIMASK on Cortex-M)
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}

// IntrLevel returns the current interrupt level
func IntrLevel() Level {
	state := interrupt.Disable()
	interrupt.Restore(state)
	if state == 0 {
		return IntrOn
	}
	return IntrOff
}

// InInterrupt reports whether an IRQ handler is running
func InInterrupt() bool {
	return interrupt.In()
}

// The hardware tracks handler mode itself.
func enterIRQ() {}

func leaveIRQ() {}
