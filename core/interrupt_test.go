package core

import "testing"

func TestCriticalNesting(t *testing.T) {
	if IntrLevel() != IntrOn {
		t.Fatalf("Expected interrupts on at start, got %s", IntrLevel())
	}

	outer := EnterCritical()
	inner := EnterCritical()
	inner.Exit()
	if IntrLevel() != IntrOff {
		t.Error("Inner Exit re-enabled interrupts")
	}
	outer.Exit()
	if IntrLevel() != IntrOn {
		t.Error("Outer Exit did not re-enable interrupts")
	}
}

func TestLevelString(t *testing.T) {
	if IntrOn.String() != "on" || IntrOff.String() != "off" {
		t.Errorf("Unexpected level names %q %q", IntrOn, IntrOff)
	}
}

func TestRaiseIRQDeferredByCriticalSection(t *testing.T) {
	count := 0
	RegisterIRQ(5, func() { count++ }, "test")

	c := EnterCritical()
	RaiseIRQ(5)
	if count != 0 {
		t.Error("Handler ran with interrupts off")
	}
	if !PendingIRQ(5) {
		t.Error("Expected IRQ 5 pending")
	}
	c.Exit()

	if count != 1 {
		t.Errorf("Expected handler to run once on restore, ran %d times", count)
	}
	if PendingIRQ(5) {
		t.Error("IRQ 5 still pending after delivery")
	}
}

func TestPendingMaskCoversEveryVector(t *testing.T) {
	var order []uint8
	for _, vec := range []uint8{0, MaxIRQ - 1} {
		v := vec
		RegisterIRQ(v, func() { order = append(order, v) }, "edge")
	}

	c := EnterCritical()
	RaiseIRQ(MaxIRQ - 1)
	RaiseIRQ(0)
	if !PendingIRQ(0) || !PendingIRQ(MaxIRQ-1) {
		t.Error("Expected the lowest and highest vectors pending")
	}
	c.Exit()

	if len(order) != 2 || order[0] != 0 || order[1] != MaxIRQ-1 {
		t.Errorf("Expected delivery [0 %d], got %v", MaxIRQ-1, order)
	}
	if PendingIRQ(0) || PendingIRQ(MaxIRQ-1) {
		t.Error("Vectors still pending after delivery")
	}
}

func TestDispatchIRQContext(t *testing.T) {
	var inside bool
	var level Level
	RegisterIRQ(6, func() {
		inside = InInterrupt()
		level = IntrLevel()
	}, "context")

	RaiseIRQ(6)

	if !inside {
		t.Error("Handler did not run in interrupt context")
	}
	if level != IntrOff {
		t.Error("Handler ran with interrupts on")
	}
	if InInterrupt() {
		t.Error("Interrupt context leaked past handler")
	}
	if IRQName(6) != "context" {
		t.Errorf("Expected name 'context', got %q", IRQName(6))
	}
}

func TestYieldOnReturn(t *testing.T) {
	yields := 0
	SetYieldHandler(func() {
		if !InInterrupt() && IntrLevel() == IntrOff {
			yields++
		}
	})
	defer SetYieldHandler(nil)

	RegisterIRQ(9, YieldOnReturn, "yielding")
	RegisterIRQ(10, func() {}, "quiet")

	RaiseIRQ(10)
	if yields != 0 {
		t.Errorf("Expected no yield, got %d", yields)
	}

	RaiseIRQ(9)
	if yields != 1 {
		t.Errorf("Expected one yield after handler returned, got %d", yields)
	}
}

func TestIRQRaisedInsideHandler(t *testing.T) {
	var order []uint8
	RegisterIRQ(8, func() { order = append(order, 8) }, "second")
	RegisterIRQ(7, func() {
		order = append(order, 7)
		RaiseIRQ(8)
		if len(order) != 1 {
			t.Error("Nested IRQ ran inside handler")
		}
	}, "first")

	RaiseIRQ(7)

	if len(order) != 2 || order[0] != 7 || order[1] != 8 {
		t.Errorf("Expected [7 8], got %v", order)
	}
}

func TestIRQAssertions(t *testing.T) {
	expectPanic(t, "unexpected interrupt", func() { DispatchIRQ(60) })
	expectPanic(t, "IRQ vector out of range", func() { RegisterIRQ(MaxIRQ, func() {}, "bad") })
	expectPanic(t, "nil IRQ handler", func() { RegisterIRQ(11, nil, "nil") })
	if IRQName(MaxIRQ) != "" {
		t.Error("Expected empty name for out-of-range vector")
	}
}
