package core

import (
	"testing"
	"time"
)

// fakeCPU runs loopsPerTick busy-wait iterations per timer tick and
// delivers the timer interrupt when a tick's worth has been spun.
type fakeCPU struct {
	timer        *Timer
	loopsPerTick int64
	acc          int64
	spun         int64
}

func (c *fakeCPU) spin(loops int64) {
	c.spun += loops
	c.acc += loops
	for c.acc >= c.loopsPerTick {
		c.acc -= c.loopsPerTick
		c.timer.Interrupt()
	}
}

func newCalibrationTimer(t *testing.T, loopsPerTick int64) (*Timer, *fakeCPU) {
	t.Helper()
	timer := newTestTimer(t, newFakeThreads("main"))
	cpu := &fakeCPU{timer: timer, loopsPerTick: loopsPerTick}
	timer.SetSpinner(cpu.spin)
	return timer, cpu
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name        string
		cpuSpeed    int64
		wantLoops   uint32
		wantLogLine string
	}{
		{"Fast", 100000, 99968, "9,996,800 loops/s."},
		{"Slow", 5000, 4992, "499,200 loops/s."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []string
			SetDebugWriter(func(s string) { lines = append(lines, s) })
			defer SetDebugWriter(nil)

			timer, _ := newCalibrationTimer(t, tt.cpuSpeed)
			loops := timer.Calibrate()

			if loops != tt.wantLoops {
				t.Errorf("Expected %d loops per tick, got %d", tt.wantLoops, loops)
			}
			if timer.LoopsPerTick() != loops {
				t.Errorf("LoopsPerTick %d does not match result %d", timer.LoopsPerTick(), loops)
			}
			if int64(loops) >= tt.cpuSpeed {
				t.Errorf("Calibrated count %d does not fit in one tick", loops)
			}
			if len(lines) != 2 || lines[0] != "Calibrating timer..." || lines[1] != tt.wantLogLine {
				t.Errorf("Unexpected log output: %q", lines)
			}
		})
	}
}

func TestCalibrateRepeatable(t *testing.T) {
	timer, _ := newCalibrationTimer(t, 73000)
	first := timer.Calibrate()
	second := timer.Calibrate()
	if first == 0 || first != second {
		t.Errorf("Expected stable nonzero calibration, got %d then %d", first, second)
	}
}

func TestCalibrateRecordsEvent(t *testing.T) {
	ClearTimingRing()
	timer, _ := newCalibrationTimer(t, 5000)
	timer.Calibrate()

	events := TimingEvents()
	last := events[len(events)-1]
	if last.EventType != EvtCalibrate || last.Value1 != 4992 || last.Value2 != DefaultTimerFreq {
		t.Errorf("Expected CALIBRATE event, got %+v", last)
	}
}

func TestCalibrateAssertions(t *testing.T) {
	t.Run("InterruptsOff", func(t *testing.T) {
		timer, _ := newCalibrationTimer(t, 5000)
		c := EnterCritical()
		defer c.Exit()
		expectPanic(t, "calibrate with interrupts off", func() { timer.Calibrate() })
	})

	t.Run("Overflow", func(t *testing.T) {
		timer := newTestTimer(t, newFakeThreads("main"))
		// Only the single-loop edge waits advance time, so no count is ever
		// too many.
		timer.SetSpinner(func(loops int64) {
			if loops == 1 {
				timer.Interrupt()
			}
		})
		expectPanic(t, "calibration overflow", func() { timer.Calibrate() })
	})
}

func TestRealTimeSleep(t *testing.T) {
	t.Run("WholeTicksSleep", func(t *testing.T) {
		threads := newFakeThreads("main")
		timer := newTestTimer(t, threads)
		timer.MSleep(30)

		sleepers := timer.Sleepers()
		if len(sleepers) != 1 || sleepers[0].WakeTick != 3 {
			t.Errorf("Expected sleep until tick 3, got %+v", sleepers)
		}
	})

	t.Run("SubTickBusyWaits", func(t *testing.T) {
		timer, cpu := newCalibrationTimer(t, 10000)
		timer.loopsPerTick = 10000

		timer.MSleep(5)
		if cpu.spun != 5000 {
			t.Errorf("Expected 5000 loops for half a tick, got %d", cpu.spun)
		}
		if len(timer.Sleepers()) != 0 {
			t.Error("Sub-tick sleep went through the sleep queue")
		}
	})

	t.Run("MicroAndNano", func(t *testing.T) {
		threads := newFakeThreads("a", "b")
		timer := newTestTimer(t, threads)
		timer.USleep(20000)
		threads.run(threads.thread("b"))
		timer.NSleep(40000000)

		sleepers := timer.Sleepers()
		if len(sleepers) != 2 || sleepers[0].WakeTick != 2 || sleepers[1].WakeTick != 4 {
			t.Errorf("Expected wake ticks [2 4], got %+v", sleepers)
		}
	})

	t.Run("Wait", func(t *testing.T) {
		timer := newTestTimer(t, newFakeThreads("main"))
		timer.Wait(50 * time.Millisecond)

		sleepers := timer.Sleepers()
		if len(sleepers) != 1 || sleepers[0].WakeTick != 5 {
			t.Errorf("Expected sleep until tick 5, got %+v", sleepers)
		}
	})

	t.Run("InterruptsOff", func(t *testing.T) {
		timer := newTestTimer(t, newFakeThreads("main"))
		c := EnterCritical()
		defer c.Exit()
		expectPanic(t, "sleep with interrupts off", func() { timer.MSleep(1) })
	})
}

func TestRealTimeDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay func(*Timer)
		want  int64
	}{
		{"MDelay", func(t *Timer) { t.MDelay(20) }, 20000},
		{"UDelay", func(t *Timer) { t.UDelay(100) }, 100},
		{"NDelay", func(t *Timer) { t.NDelay(1000000) }, 1000},
		{"Zero", func(t *Timer) { t.MDelay(0) }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer, cpu := newCalibrationTimer(t, 10000)
			timer.loopsPerTick = 10000

			tt.delay(timer)
			if cpu.spun != tt.want {
				t.Errorf("Expected %d loops, got %d", tt.want, cpu.spun)
			}
		})
	}
}

func TestDelayWithInterruptsOff(t *testing.T) {
	timer, cpu := newCalibrationTimer(t, 10000)
	timer.loopsPerTick = 10000

	c := EnterCritical()
	timer.UDelay(500)
	c.Exit()

	if cpu.spun != 500 {
		t.Errorf("Expected 500 loops, got %d", cpu.spun)
	}
}

func TestBusyWait(t *testing.T) {
	// Must return for any count, including non-positive ones
	busyWait(1000)
	busyWait(0)
	busyWait(-1)
}

func TestCalibrateAcrossLowWordWrap(t *testing.T) {
	timer, _ := newCalibrationTimer(t, 100000)
	timer.ticks = 1<<32 - 3

	if loops := timer.Calibrate(); loops != 99968 {
		t.Errorf("Expected 99968 loops per tick across the wrap, got %d", loops)
	}
	if timer.Ticks() <= 1<<32 {
		t.Errorf("Expected calibration to cross 1<<32 ticks, at %d", timer.Ticks())
	}

	timer.ticks = 1<<32 - 1
	if got := loadTicks(&timer.ticks); got != 0xFFFFFFFF {
		t.Errorf("Expected low word 0xFFFFFFFF, got %#x", got)
	}
	timer.Interrupt()
	if got := loadTicks(&timer.ticks); got != 0 {
		t.Errorf("Expected low word to wrap to 0, got %#x", got)
	}
	if timer.Ticks() != 1<<32 {
		t.Errorf("Expected full counter 1<<32, got %d", timer.Ticks())
	}
}
