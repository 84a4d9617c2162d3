package kthread

import (
	"ktick/core"
	"ktick/fixedpoint"
)

// Priority and nice bounds
const (
	PriMin     = core.PriMin
	PriDefault = 31
	PriMax     = core.PriMax

	NiceMin     = -20
	NiceDefault = 0
	NiceMax     = 20
)

// Status is a thread's scheduling state
type Status uint8

const (
	Running Status = iota
	Ready
	Blocked
	Dying
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	case Dying:
		return "dying"
	default:
		return "unknown"
	}
}

// Thread is a simulated kernel thread. It carries the scheduling state the
// timer core reads and updates; it has no stack of its own.
type Thread struct {
	id        int
	name      string
	status    Status
	priority  int
	nice      int
	recentCPU fixedpoint.Fixed

	// Ticks spent running
	cpuTicks int64
}

var _ core.Thread = (*Thread)(nil)

func (t *Thread) ID() int         { return t.id }
func (t *Thread) Name() string    { return t.name }
func (t *Thread) Status() Status  { return t.status }
func (t *Thread) Priority() int   { return t.priority }
func (t *Thread) Nice() int       { return t.nice }
func (t *Thread) CPUTicks() int64 { return t.cpuTicks }
func (t *Thread) String() string  { return t.name }

// SetPriority is called by the decay engine with interrupts off
func (t *Thread) SetPriority(priority int) {
	t.priority = priority
}

// RecentCPU returns the decayed CPU usage estimate
func (t *Thread) RecentCPU() fixedpoint.Fixed {
	return t.recentCPU
}

// SetRecentCPU is called by the decay engine with interrupts off
func (t *Thread) SetRecentCPU(recentCPU fixedpoint.Fixed) {
	t.recentCPU = recentCPU
}
