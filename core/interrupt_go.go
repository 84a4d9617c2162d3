//go:build !tinygo

package core

// Regular Go builds have no interrupt controller. The level flag, the
// interrupt-context flag and the pending mask below model one in software so
// that the timer core runs (and is tested) on a host exactly as it would on
// hardware: an IRQ raised while interrupts are off is held until the level is
// restored.

// State is the interrupt level saved by disableInterrupts
type State uint8

var (
	intrLevel  = IntrOn
	inIRQ      bool
	pendingIRQ uint64 // bit v set: vector v raised while masked
)

// pendingIRQ has one bit per vector; this fails to compile if MaxIRQ grows
// past its width.
const _ = uint(64 - MaxIRQ)

// disableInterrupts turns interrupts off and returns the previous level
func disableInterrupts() State {
	old := State(intrLevel)
	intrLevel = IntrOff
	return old
}

// restoreInterrupts restores a level returned by disableInterrupts.
// Re-enabling delivers any IRQ that was raised in the meantime.
func restoreInterrupts(state State) {
	intrLevel = Level(state)
	if intrLevel == IntrOn && !inIRQ && pendingIRQ != 0 {
		deliverPending()
	}
}

// IntrLevel returns the current interrupt level
func IntrLevel() Level {
	return intrLevel
}

// InInterrupt reports whether an IRQ handler is running
func InInterrupt() bool {
	return inIRQ
}

func enterIRQ() {
	inIRQ = true
}

func leaveIRQ() {
	inIRQ = false
}

// RaiseIRQ simulates the hardware asserting an interrupt line. The handler
// runs immediately if interrupts are on, otherwise when they are re-enabled.
func RaiseIRQ(vector uint8) {
	kassert(vector < MaxIRQ, "IRQ vector out of range")
	if intrLevel == IntrOff || inIRQ {
		pendingIRQ |= 1 << vector
		return
	}
	DispatchIRQ(vector)
}

// PendingIRQ reports whether vector has been raised but not yet delivered
func PendingIRQ(vector uint8) bool {
	return pendingIRQ&(1<<vector) != 0
}

func deliverPending() {
	for pendingIRQ != 0 {
		for vec := uint8(0); vec < MaxIRQ; vec++ {
			if pendingIRQ&(1<<vec) != 0 {
				pendingIRQ &^= 1 << vec
				DispatchIRQ(vec)
			}
		}
	}
}
