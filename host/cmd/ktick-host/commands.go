package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"ktick/host/monitor"
)

// runCommand executes one interactive command. It reports whether the
// session should end.
func runCommand(m *monitor.Monitor, args []string, out io.Writer) (bool, error) {
	switch args[0] {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		printHelp(out)

	case "dict":
		printDictionary(out, m.Dictionary())

	case "raw":
		raw := m.DictionaryRaw()
		fmt.Fprintf(out, "Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)

	case "ticks":
		ticks, err := m.Ticks()
		if err != nil {
			return false, fmt.Errorf("get_ticks: %w", err)
		}
		fmt.Fprintf(out, "ticks=%d\n", ticks)

	case "stats":
		stats, err := m.Stats()
		if err != nil {
			return false, fmt.Errorf("get_timer_stats: %w", err)
		}
		printStats(out, stats)

	case "print_stats":
		if err := m.PrintStats(); err != nil {
			return false, fmt.Errorf("timer_print_stats: %w", err)
		}
		fmt.Fprintln(out, "Sent; the report appears on the target's debug output")

	case "watch":
		return false, watch(m, args[1:], out)

	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for available commands)", args[0])
	}
	return false, nil
}

// watch polls stats: watch [count] [interval]
func watch(m *monitor.Monitor, args []string, out io.Writer) error {
	count := 5
	interval := time.Second
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		count = n
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", args[1], err)
		}
		interval = d
	}

	for i := 0; i < count; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		stats, err := m.Stats()
		if err != nil {
			return err
		}
		printStats(out, stats)
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  help                  - Show this help message")
	fmt.Fprintln(out, "  dict                  - Print dictionary summary")
	fmt.Fprintln(out, "  raw                   - Print raw dictionary data")
	fmt.Fprintln(out, "  ticks                 - Read the tick counter")
	fmt.Fprintln(out, "  stats                 - Read the timer core statistics")
	fmt.Fprintln(out, "  print_stats           - Ask the target to log its tick report")
	fmt.Fprintln(out, "  watch [n] [interval]  - Poll statistics n times")
	fmt.Fprintln(out, "  quit/exit/q           - Exit the program")
	fmt.Fprintln(out)
}

func printStats(out io.Writer, s *monitor.Stats) {
	mode := "priority"
	if s.MLFQS {
		mode = "mlfqs"
	}
	fmt.Fprintf(out, "ticks=%d freq=%dHz uptime=%v loops_per_tick=%d load_avg=%s sleepers=%d scheduler=%s\n",
		s.Ticks, s.Frequency, s.Uptime(), s.LoopsPerTick, s.LoadAvg, s.Sleepers, mode)
}

func printDictionary(out io.Writer, d *monitor.Dictionary) {
	if d == nil {
		fmt.Fprintln(out, "No dictionary loaded")
		return
	}

	fmt.Fprintln(out, "\n=== Target Dictionary ===")
	fmt.Fprintf(out, "Version: %s\n", d.Version)

	fmt.Fprintln(out, "\nConfig:")
	for _, k := range sortedKeys(d.Config) {
		fmt.Fprintf(out, "  %s = %s\n", k, d.Config[k])
	}

	fmt.Fprintf(out, "\nCommands (%d):\n", len(d.Commands))
	printIDs(out, d.Commands)
	fmt.Fprintf(out, "\nResponses (%d):\n", len(d.Responses))
	printIDs(out, d.Responses)
	fmt.Fprintln(out, "=========================")
}

func printIDs(out io.Writer, m map[string]int) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return m[names[i]] < m[names[j]] })
	for _, name := range names {
		fmt.Fprintf(out, "  [%d] %s\n", m[name], name)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
