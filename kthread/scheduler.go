package kthread

import (
	"errors"

	"ktick/core"
	"ktick/fixedpoint"
)

// TimeSlice is the number of ticks a thread runs before an equal-priority
// ready thread gets the processor.
const TimeSlice = 4

var (
	ErrNiceRange     = errors.New("nice value must be between -20 and 20")
	ErrPriorityRange = errors.New("priority must be between 0 and 63")
)

// Scheduler is a uniprocessor thread table with a priority-ordered ready
// list. It implements core.Threads, so the timer core can block, wake and
// reprioritize its threads.
//
// Threads are simulated: a context switch only changes which Thread is
// current. The caller drives each thread's work between ticks.
type Scheduler struct {
	mlfqs bool

	all     []*Thread
	ready   []*Thread
	current *Thread
	idle    *Thread
	nextID  int

	// Ticks the current thread has run since it was scheduled
	sliceTicks int

	idleTicks   int64
	threadTicks int64
	switches    int64
}

var _ core.Threads = (*Scheduler)(nil)

// New creates a scheduler whose initial thread "main" is running, and
// installs it as the dispatcher for interrupt-return yields.
func New(mlfqs bool) *Scheduler {
	s := &Scheduler{mlfqs: mlfqs}
	s.idle = s.newThread("idle", PriMin)
	s.idle.status = Ready

	main := s.newThread("main", PriDefault)
	if mlfqs {
		main.priority = core.ComputePriority(main.recentCPU, main.nice)
	}
	main.status = Running
	s.all = append(s.all, main)
	s.current = main

	core.SetYieldHandler(s.yieldOnReturn)
	return s
}

func (s *Scheduler) newThread(name string, priority int) *Thread {
	t := &Thread{
		id:       s.nextID,
		name:     name,
		priority: priority,
		nice:     NiceDefault,
	}
	s.nextID++
	return t
}

// Create adds a ready thread. Under MLFQS the priority argument is ignored:
// the thread inherits the creator's nice and recent CPU and its priority is
// computed from them. A thread with higher priority than the creator runs
// immediately.
func (s *Scheduler) Create(name string, priority int) (*Thread, error) {
	if !s.mlfqs && (priority < PriMin || priority > PriMax) {
		return nil, ErrPriorityRange
	}

	c := core.EnterCritical()
	t := s.newThread(name, priority)
	if s.mlfqs {
		parent := s.current
		t.nice = parent.nice
		t.recentCPU = parent.recentCPU
		t.priority = core.ComputePriority(t.recentCPU, t.nice)
	}
	t.status = Ready
	s.all = append(s.all, t)
	s.ready = append(s.ready, t)
	c.Exit()

	core.DebugPrintln("[kthread] create " + name)
	s.preemptIfOutranked()
	return t, nil
}

// SetNice changes t's nice value. Under MLFQS its priority is recomputed at
// once, and the running thread yields if it no longer has the highest
// priority.
func (s *Scheduler) SetNice(t *Thread, nice int) error {
	if nice < NiceMin || nice > NiceMax {
		return ErrNiceRange
	}

	c := core.EnterCritical()
	t.nice = nice
	if s.mlfqs {
		t.priority = core.ComputePriority(t.recentCPU, t.nice)
	}
	c.Exit()

	s.preemptIfOutranked()
	return nil
}

// SetPriority sets t's priority. It has no effect under MLFQS, where the
// decay engine owns priorities.
func (s *Scheduler) SetPriority(t *Thread, priority int) error {
	if priority < PriMin || priority > PriMax {
		return ErrPriorityRange
	}
	if s.mlfqs {
		return nil
	}

	c := core.EnterCritical()
	t.priority = priority
	c.Exit()

	s.preemptIfOutranked()
	return nil
}

// Exit ends the running thread and schedules the next one
func (s *Scheduler) Exit() {
	c := core.EnterCritical()
	defer c.Exit()

	cur := s.current
	kassert(cur != s.idle, "idle thread cannot exit")

	cur.status = Dying
	for i, t := range s.all {
		if t == cur {
			s.all = append(s.all[:i], s.all[i+1:]...)
			break
		}
	}
	core.DebugPrintln("[kthread] exit " + cur.name)
	s.schedule()
}

// Yield puts the running thread at the back of the ready list and runs the
// highest-priority ready thread, which may be the same one.
func (s *Scheduler) Yield() {
	c := core.EnterCritical()
	defer c.Exit()
	s.yieldLocked()
}

func (s *Scheduler) yieldLocked() {
	if s.current != s.idle {
		s.current.status = Ready
		s.ready = append(s.ready, s.current)
	}
	s.schedule()
}

// preemptIfOutranked yields when a ready thread has higher priority than
// the running one. Only valid outside interrupt context.
func (s *Scheduler) preemptIfOutranked() {
	c := core.EnterCritical()
	defer c.Exit()
	if s.outranked() {
		s.yieldLocked()
	}
}

// outranked reports whether the running thread should give up the processor
func (s *Scheduler) outranked() bool {
	best := s.highestReady()
	if best < 0 {
		return false
	}
	if s.current == s.idle {
		return true
	}
	return s.ready[best].priority > s.current.priority
}

// highestReady returns the index of the first ready thread with the highest
// priority, or -1 if none is ready.
func (s *Scheduler) highestReady() int {
	best := -1
	for i, t := range s.ready {
		if best < 0 || t.priority > s.ready[best].priority {
			best = i
		}
	}
	return best
}

// schedule switches to the highest-priority ready thread, or to idle.
// The outgoing thread's status has already been set.
func (s *Scheduler) schedule() {
	next := s.idle
	if best := s.highestReady(); best >= 0 {
		next = s.ready[best]
		s.ready = append(s.ready[:best], s.ready[best+1:]...)
	}

	if next != s.current {
		s.switches++
	}
	next.status = Running
	s.current = next
	s.sliceTicks = 0
}

// yieldOnReturn runs when the timer interrupt returns. The running thread
// loses the processor if it is outranked, or if its time slice is used up
// and an equal-priority thread is waiting.
func (s *Scheduler) yieldOnReturn() {
	prev := s.current
	if s.outranked() {
		s.yieldLocked()
	} else if s.sliceTicks >= TimeSlice {
		best := s.highestReady()
		if best >= 0 && s.ready[best].priority >= s.current.priority {
			s.yieldLocked()
		}
	}

	// Still in the interrupt path: hand the line to the debug worker
	if s.current != prev && core.IsDebugEnabled() {
		core.DebugAsync("[kthread] preempt " + prev.name + " -> " + s.current.name)
	}
}

// Current returns the running thread
func (s *Scheduler) Current() core.Thread {
	return s.current
}

// Running returns the running thread
func (s *Scheduler) Running() *Thread {
	return s.current
}

// Idle returns the idle thread
func (s *Scheduler) Idle() core.Thread {
	return s.idle
}

// ReadyCount returns the number of threads waiting for the processor
func (s *Scheduler) ReadyCount() int {
	return len(s.ready)
}

// ForEach calls fn for every live thread, idle included
func (s *Scheduler) ForEach(fn func(core.Thread)) {
	fn(s.idle)
	for _, t := range s.all {
		fn(t)
	}
}

// Block puts the running thread to sleep. Interrupts must be off.
func (s *Scheduler) Block() {
	kassert(core.IntrLevel() == core.IntrOff, "block with interrupts on")
	kassert(s.current != s.idle, "idle thread cannot block")

	s.current.status = Blocked
	s.schedule()
}

// Unblock makes a blocked thread ready. It does not preempt the running
// thread; the caller decides when to yield.
func (s *Scheduler) Unblock(ct core.Thread) {
	t, ok := ct.(*Thread)
	kassert(ok, "foreign thread")
	kassert(t.status == Blocked, "unblock of thread that is not blocked")

	t.status = Ready
	s.ready = append(s.ready, t)
}

// Tick charges the running thread for one timer tick
func (s *Scheduler) Tick() {
	if s.current == s.idle {
		s.idleTicks++
	} else {
		s.threadTicks++
	}
	s.current.cpuTicks++
	s.sliceTicks++
}

// MLFQS reports whether the decay engine sets priorities
func (s *Scheduler) MLFQS() bool {
	return s.mlfqs
}

// Lookup returns the live thread called name
func (s *Scheduler) Lookup(name string) (*Thread, bool) {
	c := core.EnterCritical()
	defer c.Exit()
	for _, t := range s.all {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

// ThreadInfo is a snapshot of one thread
type ThreadInfo struct {
	ID        int
	Name      string
	Status    Status
	Priority  int
	Nice      int
	RecentCPU fixedpoint.Fixed
	CPUTicks  int64
}

// Threads returns a snapshot of every live thread except idle, in creation
// order.
func (s *Scheduler) Threads() []ThreadInfo {
	c := core.EnterCritical()
	defer c.Exit()

	infos := make([]ThreadInfo, 0, len(s.all))
	for _, t := range s.all {
		infos = append(infos, ThreadInfo{
			ID:        t.id,
			Name:      t.name,
			Status:    t.status,
			Priority:  t.priority,
			Nice:      t.nice,
			RecentCPU: t.recentCPU,
			CPUTicks:  t.cpuTicks,
		})
	}
	return infos
}

// Stats counts where timer ticks were spent
type Stats struct {
	IdleTicks   int64
	ThreadTicks int64
	Switches    int64
}

// Stats returns the tick accounting
func (s *Scheduler) Stats() Stats {
	c := core.EnterCritical()
	defer c.Exit()
	return Stats{
		IdleTicks:   s.idleTicks,
		ThreadTicks: s.threadTicks,
		Switches:    s.switches,
	}
}

func kassert(cond bool, msg string) {
	if !cond {
		core.DebugPrintln("[PANIC] assertion failed: " + msg)
		panic("assertion failed: " + msg)
	}
}
