package core

import (
	"errors"

	"ktick/fixedpoint"
)

// TimerVector is the interrupt vector of the periodic timer
const TimerVector = 0x20

var ErrNoThreads = errors.New("timer needs a thread subsystem")

// Timer is the tick-driven timing core: tick counter, sleep queue, MLFQS
// load average and busy-wait calibration. One Timer exists per system; it is
// created by TimerInit and reached through SystemTimer.
type Timer struct {
	freq             int64
	calibrationStart uint32

	// Written only by Interrupt
	ticks int64

	// Measured by Calibrate, read-only afterwards
	loopsPerTick uint32

	loadAvg  fixedpoint.Fixed
	sleepers SleepQueue
	threads  Threads

	// Busy-wait primitive; simulations replace it to model CPU speed
	spin func(loops int64)
}

var sysTimer *Timer

// NewTimer creates a timer core without touching hardware or the IRQ table
func NewTimer(cfg Config, threads Threads) (*Timer, error) {
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if threads == nil {
		return nil, ErrNoThreads
	}
	return &Timer{
		freq:             int64(cfg.Frequency),
		calibrationStart: cfg.CalibrationStart,
		threads:          threads,
		spin:             busyWait,
	}, nil
}

// TimerInit programs hw to interrupt cfg.Frequency times per second,
// registers the timer interrupt handler and makes the result the system
// timer.
func TimerInit(cfg Config, threads Threads, hw TimerHardware) (*Timer, error) {
	t, err := NewTimer(cfg, threads)
	if err != nil {
		return nil, err
	}
	if hw != nil {
		if err := hw.Configure(int(t.freq)); err != nil {
			return nil, err
		}
	}
	RegisterIRQ(TimerVector, t.Interrupt, "8254 Timer")
	sysTimer = t
	return t, nil
}

// SystemTimer returns the timer installed by TimerInit, or nil
func SystemTimer() *Timer {
	return sysTimer
}

// Frequency returns the number of ticks per second
func (t *Timer) Frequency() int {
	return int(t.freq)
}

// Ticks returns the number of timer ticks since boot
func (t *Timer) Ticks() int64 {
	c := EnterCritical()
	defer c.Exit()
	return t.ticks
}

// Elapsed returns the number of ticks since then, a value once returned by
// Ticks.
func (t *Timer) Elapsed(then int64) int64 {
	return t.Ticks() - then
}

// LoopsPerTick returns the calibrated busy-wait loop count, 0 before Calibrate
func (t *Timer) LoopsPerTick() uint32 {
	return t.loopsPerTick
}

// LoadAvg returns the MLFQS system load average
func (t *Timer) LoadAvg() fixedpoint.Fixed {
	c := EnterCritical()
	defer c.Exit()
	return t.loadAvg
}

// SetSpinner replaces the busy-wait primitive used by Calibrate and the
// delay functions.
func (t *Timer) SetSpinner(spin func(loops int64)) {
	if spin == nil {
		spin = busyWait
	}
	t.spin = spin
}

// TimerStats is a consistent snapshot of the timer core
type TimerStats struct {
	Ticks        int64
	Frequency    int
	LoopsPerTick uint32
	LoadAvg      fixedpoint.Fixed
	Sleepers     int
	MLFQS        bool
}

// Stats returns a snapshot taken with interrupts disabled
func (t *Timer) Stats() TimerStats {
	c := EnterCritical()
	defer c.Exit()
	return TimerStats{
		Ticks:        t.ticks,
		Frequency:    int(t.freq),
		LoopsPerTick: t.loopsPerTick,
		LoadAvg:      t.loadAvg,
		Sleepers:     t.sleepers.Len(),
		MLFQS:        t.threads.MLFQS(),
	}
}

// PrintStats reports the tick count through the debug writer
func (t *Timer) PrintStats() {
	debugPrintln("Timer: " + itoa64(t.Ticks()) + " ticks")
}
