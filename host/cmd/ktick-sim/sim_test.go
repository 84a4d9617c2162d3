package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ktick/core"
	"ktick/kthread"
)

func defaultOptions() options {
	return options{
		Timer:        core.DefaultConfig(),
		Ticks:        1000,
		CPUThreads:   2,
		Sleepers:     1,
		SleepTicks:   10,
		WorkMicros:   200,
		LoopsPerTick: 10000,
	}
}

func runSim(t *testing.T, opts options) (*simulation, string) {
	t.Helper()
	var out bytes.Buffer
	sim, err := newSimulation(opts, &out)
	if err != nil {
		t.Fatalf("newSimulation failed: %v", err)
	}
	if err := sim.run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return sim, out.String()
}

func TestSimulationRuns(t *testing.T) {
	sim, out := runSim(t, defaultOptions())

	if sim.timer.Ticks() < 1000 {
		t.Errorf("Expected at least 1000 ticks, got %d", sim.timer.Ticks())
	}
	if sim.timer.LoopsPerTick() != 9984 {
		t.Errorf("Expected calibrated 9984 loops per tick, got %d", sim.timer.LoopsPerTick())
	}
	if _, ok := sim.sched.Lookup("main"); ok {
		t.Error("main should have exited")
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "sleep0") {
		t.Errorf("Expected thread table in output:\n%s", out)
	}

	sleeper, _ := sim.sched.Lookup("sleep0")
	cpu0, _ := sim.sched.Lookup("cpu0")
	if sleeper.CPUTicks() >= cpu0.CPUTicks() {
		t.Errorf("Sleeper used %d ticks, CPU-bound thread %d", sleeper.CPUTicks(), cpu0.CPUTicks())
	}
}

func TestSimulationMLFQS(t *testing.T) {
	opts := defaultOptions()
	opts.Timer.MLFQS = true
	opts.Nice = 10
	opts.Ticks = 2000
	opts.Report = true
	sim, out := runSim(t, opts)

	if sim.timer.LoadAvg() <= 0 {
		t.Errorf("Expected positive load average, got %s", sim.timer.LoadAvg())
	}
	if !strings.Contains(out, "t=1s load_avg=") {
		t.Errorf("Expected per-second report:\n%s", out)
	}

	cpu0, _ := sim.sched.Lookup("cpu0")
	cpu1, _ := sim.sched.Lookup("cpu1")
	if cpu1.Nice() != 10 {
		t.Errorf("Expected cpu1 nice 10, got %d", cpu1.Nice())
	}
	if cpu0.CPUTicks() <= cpu1.CPUTicks() {
		t.Errorf("Expected nice thread to get less CPU: cpu0=%d cpu1=%d", cpu0.CPUTicks(), cpu1.CPUTicks())
	}
}

func TestSimulationAllSleeping(t *testing.T) {
	opts := defaultOptions()
	opts.CPUThreads = 0
	opts.Sleepers = 2
	opts.Ticks = 300
	sim, _ := runSim(t, opts)

	stats := sim.sched.Stats()
	if stats.IdleTicks == 0 {
		t.Error("Expected idle time with only sleeping threads")
	}
	for _, info := range sim.sched.Threads() {
		if info.Status == kthread.Dying {
			t.Errorf("Unexpected dying thread %s", info.Name)
		}
	}
}

func TestSimulationBadConfig(t *testing.T) {
	opts := defaultOptions()
	opts.Timer.Frequency = 5
	if _, err := newSimulation(opts, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for out-of-range frequency")
	}
}

func TestSimulationPlot(t *testing.T) {
	opts := defaultOptions()
	opts.Timer.MLFQS = true
	opts.Ticks = 500
	opts.Plot = filepath.Join(t.TempDir(), "sched.png")
	sim, out := runSim(t, opts)

	if len(sim.samples) != 5 {
		t.Errorf("Expected 5 per-second samples, got %d", len(sim.samples))
	}
	if _, ok := sim.samples[0].priorities["cpu0"]; !ok {
		t.Errorf("Expected cpu0 priority in first sample, got %v", sim.samples[0].priorities)
	}
	if !strings.Contains(out, "Wrote "+opts.Plot) {
		t.Errorf("Expected plot path in output:\n%s", out)
	}

	data, err := os.ReadFile(opts.Plot)
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Expected a PNG file")
	}
}

func TestRenderPlotNoSamples(t *testing.T) {
	err := renderPlot(nil, filepath.Join(t.TempDir(), "empty.png"))
	if !errors.Is(err, errNoSamples) {
		t.Errorf("Expected errNoSamples, got %v", err)
	}
}
