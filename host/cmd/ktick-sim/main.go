package main

import (
	"flag"
	"fmt"
	"os"

	"ktick/core"
)

var (
	configPath   = flag.String("config", "", "JSON timer configuration file")
	ticks        = flag.Int64("ticks", 1000, "Number of timer ticks to simulate")
	cpuThreads   = flag.Int("cpu", 2, "Number of CPU-bound threads")
	sleepers     = flag.Int("sleepers", 1, "Number of threads that sleep repeatedly")
	sleepTicks   = flag.Int64("sleep", 10, "Ticks each sleeper sleeps")
	workMicros   = flag.Int64("work", 200, "Microseconds each sleeper busy-waits before sleeping")
	nice         = flag.Int("nice", 0, "Nice value of the last CPU-bound thread")
	loopsPerTick = flag.Int64("loops-per-tick", 100000, "Simulated CPU speed in busy-wait loops per tick")
	mlfqs        = flag.Bool("mlfqs", false, "Use the multi-level feedback queue scheduler")
	report       = flag.Bool("report", true, "Print a line every simulated second")
	verbose      = flag.Bool("verbose", false, "Enable debug output and dump the timing ring")
	plot         = flag.String("plot", "", "Write a PNG chart of load average and priorities to this file")
)

func main() {
	flag.Parse()

	cfg := core.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		loaded, err := core.LoadConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid config %s: %v\n", *configPath, err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	if *mlfqs {
		cfg.MLFQS = true
	}

	core.SetDebugWriter(func(s string) { fmt.Println(s) })
	core.SetDebugEnabled(*verbose)
	if *verbose {
		core.InitAsyncDebug()
	}

	sim, err := newSimulation(options{
		Timer:        cfg,
		Ticks:        *ticks,
		CPUThreads:   *cpuThreads,
		Sleepers:     *sleepers,
		SleepTicks:   *sleepTicks,
		WorkMicros:   *workMicros,
		Nice:         *nice,
		LoopsPerTick: *loopsPerTick,
		Report:       *report,
		Dump:         *verbose,
		Plot:         *plot,
	}, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := sim.run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
