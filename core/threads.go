package core

import "ktick/fixedpoint"

// Priority bounds, shared with the thread subsystem
const (
	PriMin = 0
	PriMax = 63
)

// Thread is the part of a schedulable unit the timer core reads and writes.
// Threads are owned by the thread subsystem; the core only holds references.
type Thread interface {
	Priority() int
	SetPriority(priority int)
	Nice() int
	RecentCPU() fixedpoint.Fixed
	SetRecentCPU(recentCPU fixedpoint.Fixed)
}

// Threads is the thread subsystem as seen from the timer core.
// Every method is called with interrupts disabled.
type Threads interface {
	// Current returns the running thread
	Current() Thread
	// Idle returns the thread run when nothing else is ready
	Idle() Thread
	// ReadyCount returns the length of the ready queue, not counting the
	// running thread
	ReadyCount() int
	// ForEach calls fn for every live thread, including idle
	ForEach(fn func(Thread))
	// Block puts the running thread to sleep until Unblock is called on it
	Block()
	// Unblock makes a blocked thread ready. It must not be called on a
	// thread that is not blocked.
	Unblock(t Thread)
	// Tick is the per-interrupt scheduler bookkeeping hook
	Tick()
	// MLFQS reports whether priorities are computed by the decay engine
	MLFQS() bool
}

// TimerHardware programs the periodic interrupt source
type TimerHardware interface {
	Configure(frequency int) error
}
