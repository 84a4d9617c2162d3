//go:build rp2040

package main

import (
	"errors"
	"machine"
	"time"

	"ktick/core"
	"ktick/kthread"
	"ktick/protocol"
)

var errUSBStalled = errors.New("usb write made no progress")

var (
	inputBuffer *protocol.FifoBuffer

	// Debug counters
	framesIn  uint32
	framesOut uint32
	usbErrors uint32
)

func main() {
	// Clear any watchdog state left over from before the reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	initUSB()
	initDebugUART()
	// Scheduler switch lines are produced inside the alarm ISR
	core.InitAsyncDebug()

	sched := kthread.New(false)

	// The alarm may fire before the handler is installed otherwise
	c := core.EnterCritical()
	timer, err := core.TimerInit(core.DefaultConfig(), sched, &tickSource)
	c.Exit()
	if err != nil {
		core.DebugPrintln("[Boot] timer init failed: " + err.Error())
		for {
			time.Sleep(time.Second)
		}
	}

	timer.Calibrate()

	core.GetGlobalDictionary().SetVersion(protocol.Version + "-rp2040")
	core.InitTimerCommands()
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)

	for {
		// Recover from panics in the main loop to keep the board answering
		func() {
			defer func() {
				if r := recover(); r != nil {
					usbErrors++
					inputBuffer.Reset()
				}
			}()

			readUSB()
			if inputBuffer.Available() > 0 {
				consumed := core.ServeFrames(inputBuffer.Data(), writeFrame)
				if consumed > 0 {
					inputBuffer.Pop(consumed)
					framesIn++
				}
			}
		}()

		time.Sleep(100 * time.Microsecond)
	}
}

// readUSB moves pending USB bytes into the input FIFO
func readUSB() {
	for usbAvailable() > 0 && inputBuffer.Free() > 0 {
		b, err := usbRead()
		if err != nil {
			usbErrors++
			return
		}
		inputBuffer.Write([]byte{b})
	}
}

func writeFrame(frame []byte) {
	if err := usbWrite(frame); err != nil {
		usbErrors++
		// Drop stale input so the host can resynchronize
		inputBuffer.Reset()
		return
	}
	framesOut++
}
