package core

import (
	"errors"

	"ktick/fixedpoint"
	"ktick/protocol"
)

// IdentifyChunkMax bounds one identify_response so it fits a frame
const IdentifyChunkMax = 40

var ErrTimerNotRunning = errors.New("system timer not initialized")

// FrameSink receives encoded response frames
type FrameSink func(frame []byte)

var (
	// Where SendResponse writes while a request is being served
	responseSink FrameSink
	responseSeq  uint8

	frameErrors   uint32
	commandErrors uint32
)

// InitTimerCommands registers the timer diagnostics commands.
// Registration order matters: hosts bootstrap with the fixed IDs
// identify_response = 0 and identify = 1.
func InitTimerCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s") // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify) // ID 1

	RegisterCommand("get_ticks", "", handleGetTicks)
	RegisterCommand("get_timer_stats", "", handleGetTimerStats)
	RegisterCommand("timer_print_stats", "", handlePrintStats)

	RegisterResponse("ticks", "high=%u low=%u")
	RegisterResponse("timer_stats",
		"high=%u low=%u freq=%u loops_per_tick=%u load_avg=%i sleepers=%u mlfqs=%c")

	RegisterConstant("FIXED_FRAC_BITS", uint32(fixedpoint.FracBits))
	RegisterConstant("PRI_MIN", uint32(PriMin))
	RegisterConstant("PRI_MAX", uint32(PriMax))
	if t := SystemTimer(); t != nil {
		RegisterConstant("TIMER_FREQ", uint32(t.Frequency()))
	}
}

// handleIdentify returns a chunk of the data dictionary
// Format: identify offset=%u count=%c
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > IdentifyChunkMax {
		count = IdentifyChunkMax
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))

	return SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
}

// handleGetTicks returns the 64-bit tick counter
func handleGetTicks(data *[]byte) error {
	t := SystemTimer()
	if t == nil {
		return ErrTimerNotRunning
	}
	ticks := t.Ticks()

	return SendResponse("ticks", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQInt64(output, ticks)
	})
}

// handleGetTimerStats returns a snapshot of the timer core
func handleGetTimerStats(data *[]byte) error {
	t := SystemTimer()
	if t == nil {
		return ErrTimerNotRunning
	}
	stats := t.Stats()

	return SendResponse("timer_stats", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQInt64(output, stats.Ticks)
		protocol.EncodeVLQUint(output, uint32(stats.Frequency))
		protocol.EncodeVLQUint(output, stats.LoopsPerTick)
		protocol.EncodeVLQInt(output, stats.LoadAvg.Raw())
		protocol.EncodeVLQUint(output, uint32(stats.Sleepers))
		if stats.MLFQS {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
	})
}

// handlePrintStats writes the tick report to the debug writer
func handlePrintStats(data *[]byte) error {
	t := SystemTimer()
	if t == nil {
		return ErrTimerNotRunning
	}
	t.PrintStats()
	return nil
}

// SendResponse encodes a registered response and sends it as a frame with
// the sequence number of the request being served.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) error {
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	kassert(ok && cmd.Handler == nil, "response not registered: "+responseName)

	if responseSink == nil {
		return nil
	}

	payload := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(payload, uint32(cmd.ID))
	if args != nil {
		args(payload)
	}

	frame, err := protocol.EncodeFrame(responseSeq, payload.Result())
	if err != nil {
		return err
	}
	responseSink(frame)
	return nil
}

// ServeFrames decodes the request frames in data, runs their commands and
// sends replies to sink. It returns the number of bytes consumed; a
// trailing partial frame is left for the next call.
func ServeFrames(data []byte, sink FrameSink) int {
	consumed := 0
	for consumed < len(data) {
		msg, n, err := protocol.ParseFrame(data[consumed:])
		if n == 0 {
			break
		}
		consumed += n
		if err != nil {
			frameErrors++
			DebugPrintln("[Serve] dropped frame: " + err.Error())
			continue
		}
		serveMessage(msg, sink)
	}
	return consumed
}

// serveMessage runs every command packed into one frame
func serveMessage(msg *protocol.Message, sink FrameSink) {
	prevSink, prevSeq := responseSink, responseSeq
	responseSink, responseSeq = sink, msg.Sequence
	defer func() {
		responseSink, responseSeq = prevSink, prevSeq
	}()

	payload := msg.Payload
	for len(payload) > 0 {
		cmdID, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			frameErrors++
			return
		}
		if err := globalRegistry.Dispatch(uint16(cmdID), &payload); err != nil {
			commandErrors++
			DebugPrintln("[Serve] command " + itoa(int(cmdID)) + ": " + err.Error())
			return
		}
	}
}

// FrameErrors returns the number of frames dropped as malformed
func FrameErrors() uint32 {
	return frameErrors
}

// CommandErrors returns the number of commands that failed
func CommandErrors() uint32 {
	return commandErrors
}
