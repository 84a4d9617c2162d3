package core

import (
	"errors"
	"testing"
)

func TestTicksAndElapsed(t *testing.T) {
	threads := newFakeThreads("main")
	timer := newTestTimer(t, threads)

	then := timer.Ticks()
	if got := timer.Elapsed(then); got != 0 {
		t.Errorf("Expected 0 ticks elapsed immediately, got %d", got)
	}

	advance(timer, 7)

	if got := timer.Elapsed(then); got != 7 {
		t.Errorf("Expected 7 ticks elapsed, got %d", got)
	}
	if got := timer.Ticks(); got != 7 {
		t.Errorf("Expected tick count 7, got %d", got)
	}
	if threads.ticks != 7 {
		t.Errorf("Expected scheduler tick hook called 7 times, got %d", threads.ticks)
	}
}

func TestNewTimerValidation(t *testing.T) {
	t.Run("FrequencyTooLow", func(t *testing.T) {
		_, err := NewTimer(Config{Frequency: 18}, newFakeThreads())
		if !errors.Is(err, ErrFrequencyRange) {
			t.Errorf("Expected ErrFrequencyRange, got %v", err)
		}
	})

	t.Run("FrequencyTooHigh", func(t *testing.T) {
		_, err := NewTimer(Config{Frequency: 1001}, newFakeThreads())
		if !errors.Is(err, ErrFrequencyRange) {
			t.Errorf("Expected ErrFrequencyRange, got %v", err)
		}
	})

	t.Run("Bounds", func(t *testing.T) {
		for _, freq := range []int{MinTimerFreq, MaxTimerFreq} {
			timer, err := NewTimer(Config{Frequency: freq}, newFakeThreads())
			if err != nil {
				t.Errorf("Frequency %d rejected: %v", freq, err)
				continue
			}
			if timer.Frequency() != freq {
				t.Errorf("Expected frequency %d, got %d", freq, timer.Frequency())
			}
		}
	})

	t.Run("NoThreads", func(t *testing.T) {
		_, err := NewTimer(DefaultConfig(), nil)
		if !errors.Is(err, ErrNoThreads) {
			t.Errorf("Expected ErrNoThreads, got %v", err)
		}
	})
}

func TestTimerInit(t *testing.T) {
	prev := sysTimer
	defer func() { sysTimer = prev }()

	hw := &fakeHardware{}
	threads := newFakeThreads("main")
	timer, err := TimerInit(Config{Frequency: 250}, threads, hw)
	if err != nil {
		t.Fatalf("TimerInit failed: %v", err)
	}

	if hw.frequency != 250 {
		t.Errorf("Expected hardware programmed for 250 Hz, got %d", hw.frequency)
	}
	if SystemTimer() != timer {
		t.Error("TimerInit did not install the system timer")
	}
	if name := IRQName(TimerVector); name != "8254 Timer" {
		t.Errorf("Expected timer IRQ registered as '8254 Timer', got %q", name)
	}

	RaiseIRQ(TimerVector)
	RaiseIRQ(TimerVector)
	if got := timer.Ticks(); got != 2 {
		t.Errorf("Expected 2 ticks after two IRQs, got %d", got)
	}
}

func TestTimerInitHardwareError(t *testing.T) {
	hwErr := errors.New("no PIT")
	_, err := TimerInit(DefaultConfig(), newFakeThreads(), &fakeHardware{err: hwErr})
	if !errors.Is(err, hwErr) {
		t.Errorf("Expected hardware error, got %v", err)
	}
}

func TestInterruptPreservesLevel(t *testing.T) {
	timer := newTestTimer(t, newFakeThreads("main"))

	timer.Interrupt()
	if IntrLevel() != IntrOn {
		t.Errorf("Expected interrupts on after handler, got %s", IntrLevel())
	}

	c := EnterCritical()
	timer.Interrupt()
	if IntrLevel() != IntrOff {
		t.Errorf("Handler re-enabled interrupts inside a critical section")
	}
	c.Exit()

	if IntrLevel() != IntrOn {
		t.Errorf("Expected interrupts on after critical section, got %s", IntrLevel())
	}
}

func TestStatsSnapshot(t *testing.T) {
	threads := newFakeThreads("main", "other")
	threads.mlfqs = true
	timer := newTestTimer(t, threads)
	timer.loopsPerTick = 4096

	advance(timer, 3)
	timer.Sleep(10)

	stats := timer.Stats()
	if stats.Ticks != 3 {
		t.Errorf("Expected 3 ticks, got %d", stats.Ticks)
	}
	if stats.Frequency != DefaultTimerFreq {
		t.Errorf("Expected frequency %d, got %d", DefaultTimerFreq, stats.Frequency)
	}
	if stats.LoopsPerTick != 4096 {
		t.Errorf("Expected 4096 loops per tick, got %d", stats.LoopsPerTick)
	}
	if stats.Sleepers != 1 {
		t.Errorf("Expected 1 sleeper, got %d", stats.Sleepers)
	}
	if !stats.MLFQS {
		t.Error("Expected MLFQS reported on")
	}
}

func TestPrintStats(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(nil)

	timer := newTestTimer(t, newFakeThreads("main"))
	advance(timer, 12)
	timer.PrintStats()

	if len(lines) != 1 || lines[0] != "Timer: 12 ticks" {
		t.Errorf("Expected 'Timer: 12 ticks', got %v", lines)
	}
}
