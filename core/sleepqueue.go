package core

// sleeper is a thread parked until a wake tick. The thread is referenced,
// not owned: it belongs to the thread subsystem.
type sleeper struct {
	wake     int64
	priority int
	thread   Thread
	next     *sleeper
}

// WakeEntry is a read-only copy of one sleep queue entry
type WakeEntry struct {
	Thread   Thread
	WakeTick int64
	Priority int
}

// SleepQueue is a singly linked list of sleepers kept sorted by wake tick,
// earliest first. Among equal wake ticks higher priority comes first, and
// among full ties the earlier sleeper stays ahead.
//
// Callers hold interrupts disabled for every operation.
type SleepQueue struct {
	head *sleeper
	n    int
}

// wakesBefore orders two sleepers
func wakesBefore(a, b *sleeper) bool {
	kassert(a != nil && b != nil, "nil sleep queue entry")
	if a.wake != b.wake {
		return a.wake < b.wake
	}
	return a.priority > b.priority
}

// insert adds s in sorted position
func (q *SleepQueue) insert(s *sleeper) {
	q.n++
	if q.head == nil || wakesBefore(s, q.head) {
		s.next = q.head
		q.head = s
		return
	}

	current := q.head
	for current.next != nil && !wakesBefore(s, current.next) {
		current = current.next
	}

	s.next = current.next
	current.next = s
}

// drainReady removes every sleeper with wake <= now from the front of the
// queue and passes its thread to wake. It stops at the first sleeper still
// in the future. Returns the number woken.
func (q *SleepQueue) drainReady(now int64, wake func(Thread)) int {
	woken := 0
	for q.head != nil && q.head.wake <= now {
		s := q.head
		q.head = s.next
		s.next = nil
		q.n--
		woken++

		RecordTiming(EvtWake, uint32(now), int32(s.wake), int32(s.priority))
		wake(s.thread)
	}
	return woken
}

// Len returns the number of sleepers
func (q *SleepQueue) Len() int {
	return q.n
}

// NextWake returns the earliest wake tick, false if the queue is empty
func (q *SleepQueue) NextWake() (int64, bool) {
	if q.head == nil {
		return 0, false
	}
	return q.head.wake, true
}

// Entries returns the queue contents in wake order
func (q *SleepQueue) Entries() []WakeEntry {
	entries := make([]WakeEntry, 0, q.n)
	for s := q.head; s != nil; s = s.next {
		entries = append(entries, WakeEntry{Thread: s.thread, WakeTick: s.wake, Priority: s.priority})
	}
	return entries
}

// Sleep puts the running thread to sleep for about ticks timer ticks.
// Interrupts must be on. Zero or negative values still yield the processor
// until the next tick.
func (t *Timer) Sleep(ticks int64) {
	kassert(!InInterrupt(), "sleep from interrupt context")
	kassert(IntrLevel() == IntrOn, "sleep with interrupts off")

	c := EnterCritical()
	defer c.Exit()
	t.sleepUntilLocked(t.ticks + ticks)
}

// SleepUntil puts the running thread to sleep until tick wake
func (t *Timer) SleepUntil(wake int64) {
	kassert(!InInterrupt(), "sleep from interrupt context")
	kassert(IntrLevel() == IntrOn, "sleep with interrupts off")

	c := EnterCritical()
	defer c.Exit()
	t.sleepUntilLocked(wake)
}

// sleepUntilLocked queues the current thread and blocks it. Queueing and
// blocking happen in the same critical section so the timer interrupt never
// sees a queued thread that is still running.
func (t *Timer) sleepUntilLocked(wake int64) {
	cur := t.threads.Current()
	kassert(cur != t.threads.Idle(), "idle thread cannot sleep")

	t.sleepers.insert(&sleeper{wake: wake, priority: cur.Priority(), thread: cur})
	RecordTiming(EvtSleep, uint32(t.ticks), int32(wake), int32(cur.Priority()))
	t.threads.Block()
}

// Sleepers returns a snapshot of the sleep queue in wake order
func (t *Timer) Sleepers() []WakeEntry {
	c := EnterCritical()
	defer c.Exit()
	return t.sleepers.Entries()
}
