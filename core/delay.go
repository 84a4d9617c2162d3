package core

import "time"

// Calibrate measures how many busy-wait loops fit in one timer tick. It must
// run with interrupts on, since it watches the tick counter advance.
//
// The count starts at the configured power of two and doubles while twice
// the count still fits in a tick; the 9 bits below the top bit are then
// refined one at a time. The test bits run from high>>1 down to high>>9:
// nine tests, not an off-by-one on "8 bits of precision".
func (t *Timer) Calibrate() uint32 {
	kassert(IntrLevel() == IntrOn, "calibrate with interrupts off")
	debugPrintln("Calibrating timer...")

	loops := t.calibrationStart
	for !t.tooManyLoops(loops << 1) {
		loops <<= 1
		kassert(loops != 0, "calibration overflow")
	}

	high := loops
	for bit := high >> 1; bit != high>>10; bit >>= 1 {
		if !t.tooManyLoops(loops | bit) {
			loops |= bit
		}
	}

	t.loopsPerTick = loops
	RecordTiming(EvtCalibrate, loadTicks(&t.ticks), int32(loops), int32(t.freq))
	debugPrintln(groupThousands(uint64(loops)*uint64(t.freq)) + " loops/s.")
	return loops
}

// tooManyLoops reports whether loops iterations take longer than one tick
func (t *Timer) tooManyLoops(loops uint32) bool {
	// Wait for a tick edge
	start := loadTicks(&t.ticks)
	for loadTicks(&t.ticks) == start {
		t.spin(1)
	}

	start = loadTicks(&t.ticks)
	t.spin(int64(loops))

	barrier()
	return start != loadTicks(&t.ticks)
}

// busyWait runs a loop of n iterations. Kept out of line so every call site
// times the same code.
//
//go:noinline
func busyWait(loops int64) {
	for loops > 0 {
		loops--
		barrier()
	}
}

// MSleep sleeps for about ms milliseconds. Interrupts must be on.
func (t *Timer) MSleep(ms int64) {
	t.realTimeSleep(ms, 1000)
}

// USleep sleeps for about us microseconds. Interrupts must be on.
func (t *Timer) USleep(us int64) {
	t.realTimeSleep(us, 1000*1000)
}

// NSleep sleeps for about ns nanoseconds. Interrupts must be on.
func (t *Timer) NSleep(ns int64) {
	t.realTimeSleep(ns, 1000*1000*1000)
}

// MDelay busy-waits for about ms milliseconds. Interrupts need not be on,
// but busy-waiting with them off for a tick or longer loses ticks.
func (t *Timer) MDelay(ms int64) {
	t.realTimeDelay(ms, 1000)
}

// UDelay busy-waits for about us microseconds
func (t *Timer) UDelay(us int64) {
	t.realTimeDelay(us, 1000*1000)
}

// NDelay busy-waits for about ns nanoseconds
func (t *Timer) NDelay(ns int64) {
	t.realTimeDelay(ns, 1000*1000*1000)
}

// Wait blocks for d. Whole ticks are slept through the sleep queue, which
// releases the processor; spans shorter than a tick busy-wait.
func (t *Timer) Wait(d time.Duration) {
	t.NSleep(d.Nanoseconds())
}

// realTimeSleep sleeps for num/denom seconds, rounded down to whole ticks.
// Below one tick it busy-waits for sub-tick accuracy instead.
func (t *Timer) realTimeSleep(num, denom int64) {
	// (num / denom) s / (1 s / freq ticks) = num * freq / denom ticks
	ticks := num * t.freq / denom

	kassert(IntrLevel() == IntrOn, "sleep with interrupts off")
	if ticks > 0 {
		t.Sleep(ticks)
	} else {
		t.realTimeDelay(num, denom)
	}
}

// realTimeDelay busy-waits for num/denom seconds. Numerator and denominator
// are scaled down by 1000 to keep the product in range.
func (t *Timer) realTimeDelay(num, denom int64) {
	kassert(denom%1000 == 0, "delay denominator not a multiple of 1000")
	t.spin(int64(t.loopsPerTick) * num / 1000 * t.freq / (denom / 1000))
}
