package core

// Level is the processor's interrupt-enable state
type Level uint8

const (
	IntrOff Level = iota
	IntrOn
)

func (l Level) String() string {
	if l == IntrOn {
		return "on"
	}
	return "off"
}

// MaxIRQ bounds the vector numbers accepted by RegisterIRQ
const MaxIRQ = 64

// IRQHandler is an interrupt service routine registered against a vector
type IRQHandler func()

type irqEntry struct {
	handler IRQHandler
	name    string
}

var (
	irqTable [MaxIRQ]irqEntry

	// Set by YieldOnReturn inside a handler, consumed by DispatchIRQ
	yieldRequested bool
	yieldHandler   func()
)

// Critical is a critical section: interrupts stay disabled from
// EnterCritical until Exit restores the level that was in effect before.
// Sections nest; only the outermost Exit re-enables interrupts.
//
//	c := EnterCritical()
//	defer c.Exit()
type Critical struct {
	state State
}

// EnterCritical disables interrupts and returns the guard that restores them
func EnterCritical() Critical {
	return Critical{state: disableInterrupts()}
}

// Exit restores the interrupt level saved by EnterCritical
func (c Critical) Exit() {
	restoreInterrupts(c.state)
}

// RegisterIRQ installs handler for vector. name is kept for diagnostics.
func RegisterIRQ(vector uint8, handler IRQHandler, name string) {
	kassert(vector < MaxIRQ, "IRQ vector out of range")
	kassert(handler != nil, "nil IRQ handler")

	c := EnterCritical()
	defer c.Exit()
	irqTable[vector] = irqEntry{handler: handler, name: name}
}

// IRQName returns the name a handler was registered with
func IRQName(vector uint8) string {
	if vector >= MaxIRQ {
		return ""
	}
	return irqTable[vector].name
}

// SetYieldHandler sets the dispatcher entry point called when a handler asks
// to yield on return. The thread subsystem installs it.
func SetYieldHandler(handler func()) {
	yieldHandler = handler
}

// YieldOnReturn asks the dispatcher to switch threads once the current
// interrupt handler returns.
func YieldOnReturn() {
	yieldRequested = true
}

// DispatchIRQ runs the handler registered for vector in interrupt context.
// Targets call it from their hardware ISR.
func DispatchIRQ(vector uint8) {
	kassert(vector < MaxIRQ, "IRQ vector out of range")
	entry := irqTable[vector]
	kassert(entry.handler != nil, "unexpected interrupt")

	old := disableInterrupts()
	yieldRequested = false
	enterIRQ()
	entry.handler()
	leaveIRQ()

	yield := yieldRequested
	yieldRequested = false
	if yield && yieldHandler != nil {
		yieldHandler()
	}
	restoreInterrupts(old)
}
