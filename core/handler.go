package core

// Interrupt is the timer interrupt handler. Each invocation advances the
// tick counter, runs the scheduler's per-tick hook, wakes sleepers whose
// deadline has arrived, runs the MLFQS decay engine and asks the dispatcher
// to reschedule once the interrupt returns.
func (t *Timer) Interrupt() {
	c := EnterCritical()
	defer c.Exit()

	t.ticks++
	now := t.ticks

	t.threads.Tick()
	t.sleepers.drainReady(now, t.threads.Unblock)

	if t.threads.MLFQS() {
		t.mlfqsTick(now)
	}

	YieldOnReturn()
}
