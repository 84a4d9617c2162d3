package protocol

// OutputBuffer receives encoded protocol data
type OutputBuffer interface {
	Output(data []byte)
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer.
// Writes past the end are dropped.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

// Len returns the number of bytes written
func (s *ScratchOutput) Len() int {
	return s.pos
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a ring of received bytes waiting for the frame parser.
// Every slot of the ring is usable.
type FifoBuffer struct {
	buf   []byte
	head  int // index of the oldest byte
	count int
}

// NewFifoBuffer creates a FifoBuffer holding up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count written
func (f *FifoBuffer) Write(data []byte) int {
	n := min(len(data), f.Free())
	tail := (f.head + f.count) % len(f.buf)
	copied := copy(f.buf[tail:], data[:n])
	copy(f.buf, data[copied:n])
	f.count += n
	return n
}

// Available returns the number of buffered bytes
func (f *FifoBuffer) Available() int {
	return f.count
}

// Free returns the room left for Write
func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.count
}

// Data returns the buffered bytes in order. The slice aliases the ring
// unless the contents wrap, in which case it is a copy.
func (f *FifoBuffer) Data() []byte {
	end := f.head + f.count
	if end <= len(f.buf) {
		return f.buf[f.head:end]
	}
	out := make([]byte, f.count)
	n := copy(out, f.buf[f.head:])
	copy(out[n:], f.buf[:end-len(f.buf)])
	return out
}

// Pop discards up to n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	n = min(n, f.count)
	f.count -= n
	if f.count == 0 {
		f.head = 0
		return
	}
	f.head = (f.head + n) % len(f.buf)
}

// IsEmpty reports whether nothing is buffered
func (f *FifoBuffer) IsEmpty() bool {
	return f.count == 0
}

// Reset drops everything buffered
func (f *FifoBuffer) Reset() {
	f.head, f.count = 0, 0
}
