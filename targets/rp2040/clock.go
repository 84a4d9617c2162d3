//go:build rp2040

package main

import (
	"errors"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"ktick/core"
)

// RP2040 timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM0   = timerBase + 0x10
	timerTIMERAWL = timerBase + 0x28
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	timerIRQ0 = 0 // TIMER_IRQ_0 in the NVIC

	clockFreq = 1000000 // the timer counts microseconds
)

var (
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm0 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM0)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

var errBadFrequency = errors.New("tick frequency does not divide the 1MHz timer")

// alarmTimer drives the system tick from ALARM0
type alarmTimer struct {
	period uint32
	next   uint32
	irq    interrupt.Interrupt
}

var tickSource alarmTimer

// Configure arms ALARM0 to fire frequency times per second
func (a *alarmTimer) Configure(frequency int) error {
	if frequency <= 0 || clockFreq%frequency != 0 {
		return errBadFrequency
	}
	a.period = uint32(clockFreq / frequency)

	a.irq = interrupt.New(timerIRQ0, func(interrupt.Interrupt) {
		tickSource.fire()
	})
	timerInte.SetBits(1)
	a.next = timerRAWL.Get() + a.period
	timerAlarm0.Set(a.next)
	a.irq.Enable()

	core.RegisterConstant("MCU", "rp2040")
	core.RegisterConstant("CLOCK_FREQ", uint32(clockFreq))
	return nil
}

// fire acknowledges the alarm, re-arms it one period after the previous
// deadline and hands the tick to the core
func (a *alarmTimer) fire() {
	timerIntr.Set(1)
	a.next += a.period
	// Skip deadlines that passed while interrupts were off
	for int32(a.next-timerRAWL.Get()) <= 0 {
		a.next += a.period
	}
	timerAlarm0.Set(a.next)

	core.DispatchIRQ(core.TimerVector)
}
