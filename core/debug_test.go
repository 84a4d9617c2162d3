package core

import (
	"strings"
	"testing"
	"time"
)

func TestTimingRing(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	if len(TimingEvents()) != 0 {
		t.Fatal("Expected empty ring after clear")
	}

	for i := 0; i < TimingRingSize+5; i++ {
		RecordTiming(EvtWake, uint32(i), int32(i), 0)
	}

	events := TimingEvents()
	if len(events) != TimingRingSize {
		t.Fatalf("Expected %d events, got %d", TimingRingSize, len(events))
	}
	if events[0].Clock != 5 {
		t.Errorf("Expected oldest event at clock 5, got %d", events[0].Clock)
	}
	if events[len(events)-1].Clock != TimingRingSize+4 {
		t.Errorf("Expected newest event at clock %d, got %d", TimingRingSize+4, events[len(events)-1].Clock)
	}
}

func TestDumpTimingRing(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(nil)

	RecordTiming(EvtSleep, 3, 13, 31)
	RecordTiming(EvtLoadAvg, 100, 273, 1)
	DumpTimingRing()

	want := []string{
		"[TIMING] === Timing Ring Dump ===",
		"[TIMING] SLEEP clock=3 v1=13 v2=31",
		"[TIMING] LOAD_AVG clock=100 v1=273 v2=1",
		"[TIMING] === End Dump ===",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("Unexpected dump:\n%s", strings.Join(lines, "\n"))
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(nil)
	defer SetDebugEnabled(false)

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")

	if len(lines) != 1 || lines[0] != "shown" {
		t.Errorf("Expected only 'shown', got %v", lines)
	}
	if !IsDebugEnabled() {
		t.Error("Expected debug enabled")
	}
}

func TestNumberFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{itoa64(0), "0"},
		{itoa64(-42), "-42"},
		{itoa64(9223372036854775807), "9223372036854775807"},
		{utoa(18446744073709551615), "18446744073709551615"},
		{groupThousands(0), "0"},
		{groupThousands(999), "999"},
		{groupThousands(1000), "1,000"},
		{groupThousands(9996800), "9,996,800"},
		{groupThousands(123456789), "123,456,789"},
		{valueToString(true), "1"},
		{valueToString(uint32(14)), "14"},
		{valueToString("x"), "x"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, tt.got)
		}
	}
}

func TestDebugAsync(t *testing.T) {
	got := make(chan string, 4)
	SetDebugWriter(func(s string) { got <- s })
	defer SetDebugWriter(nil)
	defer SetDebugEnabled(false)

	SetDebugEnabled(false)
	InitAsyncDebug()
	DebugAsync("dropped while disabled")
	SetDebugEnabled(true)
	DebugAsync("queued")

	select {
	case msg := <-got:
		if msg != "queued" {
			t.Errorf("Expected 'queued', got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("async message never written")
	}

	ch := debugChan
	InitAsyncDebug()
	if debugChan != ch {
		t.Error("Expected a second InitAsyncDebug to keep the running worker")
	}
}
