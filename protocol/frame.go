package protocol

import "errors"

var (
	ErrFrameTooLong = errors.New("frame payload too long")
	ErrFrameLength  = errors.New("invalid frame length")
	ErrFrameSync    = errors.New("missing frame sync byte")
	ErrFrameCRC     = errors.New("frame CRC mismatch")
	ErrFrameSeq     = errors.New("invalid frame sequence byte")
)

// Message is one decoded frame
type Message struct {
	Sequence uint8  // Low nibble of the sequence byte
	Payload  []byte // Frame data without header/trailer
}

// NextSequence returns the sequence number following seq
func NextSequence(seq uint8) uint8 {
	return (seq + 1) & MessageSeqMask
}

// AppendFrame writes payload as a complete frame
func AppendFrame(output OutputBuffer, seq uint8, payload []byte) error {
	if len(payload) > MessagePayloadMax {
		return ErrFrameTooLong
	}

	var header [MessageHeaderSize]byte
	header[MessagePositionLen] = byte(len(payload) + MessageLengthMin)
	header[MessagePositionSeq] = MessageDest | (seq & MessageSeqMask)

	crc := CRC16(append(header[:], payload...))

	output.Output(header[:])
	output.Output(payload)
	output.Output([]byte{byte(crc >> 8), byte(crc), MessageValueSync})
	return nil
}

// EncodeFrame returns payload framed with sequence number seq
func EncodeFrame(seq uint8, payload []byte) ([]byte, error) {
	out := NewScratchOutput()
	if err := AppendFrame(out, seq, payload); err != nil {
		return nil, err
	}
	frame := make([]byte, out.Len())
	copy(frame, out.Result())
	return frame, nil
}

// ParseFrame decodes the frame at the start of data. It returns the number
// of bytes consumed; zero with a nil error means the frame is incomplete.
// On error the consumed count skips the bad bytes so the caller can resync.
func ParseFrame(data []byte) (*Message, int, error) {
	if len(data) == 0 {
		return nil, 0, nil
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return nil, skipToSync(data), ErrFrameLength
	}
	if len(data) < msgLen {
		return nil, 0, nil
	}

	if data[msgLen-1] != MessageValueSync {
		return nil, skipToSync(data), ErrFrameSync
	}

	body := data[:msgLen-MessageTrailerSize]
	crc := uint16(data[msgLen-3])<<8 | uint16(data[msgLen-2])
	if CRC16(body) != crc {
		return nil, msgLen, ErrFrameCRC
	}

	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return nil, msgLen, ErrFrameSeq
	}

	payload := make([]byte, len(body)-MessageHeaderSize)
	copy(payload, body[MessageHeaderSize:])
	return &Message{Sequence: seq & MessageSeqMask, Payload: payload}, msgLen, nil
}

// skipToSync returns the count of bytes up to and including the next sync
// byte, or all of data when there is none.
func skipToSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i + 1
		}
	}
	return len(data)
}
