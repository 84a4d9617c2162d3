// Package protocol implements the framed VLQ wire format the timer core uses
// to report its state to a host.
package protocol

// Version is the wire protocol version reported in the dictionary
const Version = "ktick-0.1.0"

// Frame layout: len | seq | payload | crc16 (big endian) | sync
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E

	// Sequence byte: destination flag in the high nibble, counter in the low
	MessageDest     = 0x10
	MessageSeqMask  = 0x0F
	MessageSeqShift = 4

	// MessageMax bounds a scratch buffer holding several frames
	MessageMax = 512
)
