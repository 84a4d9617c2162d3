package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ktick/fixedpoint"
	"ktick/protocol"
)

// Bootstrap IDs fixed by the target so the dictionary can be fetched
const (
	identifyResponseID = 0
	identifyID         = 1

	identifyChunk = 40
)

var (
	ErrTimeout      = errors.New("timed out waiting for response")
	ErrNoDictionary = errors.New("dictionary not loaded")
)

// Dictionary is the target's command dictionary
type Dictionary struct {
	Version   string            `json:"version"`
	Config    map[string]string `json:"config"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
}

// CommandID returns the ID of the command called name
func (d *Dictionary) CommandID(name string) (uint32, bool) {
	return lookupID(d.Commands, name)
}

// ResponseID returns the ID of the response called name
func (d *Dictionary) ResponseID(name string) (uint32, bool) {
	return lookupID(d.Responses, name)
}

// lookupID matches name against "name format" keys
func lookupID(m map[string]int, name string) (uint32, bool) {
	for key, id := range m {
		if key == name || strings.HasPrefix(key, name+" ") {
			return uint32(id), true
		}
	}
	return 0, false
}

// Stats is a decoded timer_stats response
type Stats struct {
	Ticks        int64
	Frequency    uint32
	LoopsPerTick uint32
	LoadAvg      fixedpoint.Fixed
	Sleepers     uint32
	MLFQS        bool
}

// Uptime converts the tick count to wall time
func (s *Stats) Uptime() time.Duration {
	if s.Frequency == 0 {
		return 0
	}
	return time.Duration(s.Ticks) * time.Second / time.Duration(s.Frequency)
}

// Monitor queries a target's timer core over a byte stream
type Monitor struct {
	rw      io.ReadWriter
	rx      *protocol.FifoBuffer
	seq     uint8
	timeout time.Duration
	out     io.Writer

	dictionary     *Dictionary
	dictionaryData []byte
}

// New creates a monitor on rw, typically an open serial port
func New(rw io.ReadWriter) *Monitor {
	return &Monitor{
		rw:      rw,
		rx:      protocol.NewFifoBuffer(protocol.MessageMax * 4),
		timeout: time.Second,
		out:     io.Discard,
	}
}

// SetTimeout sets how long to wait for each response
func (m *Monitor) SetTimeout(d time.Duration) {
	m.timeout = d
}

// SetOutput sets where progress messages are written
func (m *Monitor) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	m.out = w
}

// RetrieveDictionary downloads and parses the target's dictionary
func (m *Monitor) RetrieveDictionary() error {
	fmt.Fprintln(m.out, "Retrieving dictionary...")

	var dictBuffer bytes.Buffer
	offset := uint32(0)
	for {
		chunk, err := m.identify(offset)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))
	}

	dict := &Dictionary{}
	if err := json.Unmarshal(dictBuffer.Bytes(), dict); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}

	m.dictionaryData = dictBuffer.Bytes()
	m.dictionary = dict
	fmt.Fprintf(m.out, "Dictionary retrieved: %d bytes\n", len(m.dictionaryData))
	return nil
}

// identify fetches one dictionary chunk
func (m *Monitor) identify(offset uint32) ([]byte, error) {
	payload, err := m.call(identifyID, identifyResponseID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, identifyChunk)
	})
	if err != nil {
		return nil, err
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}
	return protocol.DecodeVLQBytes(&payload)
}

// Dictionary returns the parsed dictionary, nil before RetrieveDictionary
func (m *Monitor) Dictionary() *Dictionary {
	return m.dictionary
}

// DictionaryRaw returns the dictionary JSON as received
func (m *Monitor) DictionaryRaw() []byte {
	return m.dictionaryData
}

// Ticks returns the target's tick counter
func (m *Monitor) Ticks() (int64, error) {
	payload, err := m.callByName("get_ticks", "ticks", nil)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeVLQInt64(&payload)
}

// Stats returns a snapshot of the target's timer core
func (m *Monitor) Stats() (*Stats, error) {
	payload, err := m.callByName("get_timer_stats", "timer_stats", nil)
	if err != nil {
		return nil, err
	}

	s := &Stats{}
	if s.Ticks, err = protocol.DecodeVLQInt64(&payload); err != nil {
		return nil, err
	}
	if s.Frequency, err = protocol.DecodeVLQUint(&payload); err != nil {
		return nil, err
	}
	if s.LoopsPerTick, err = protocol.DecodeVLQUint(&payload); err != nil {
		return nil, err
	}
	load, err := protocol.DecodeVLQInt(&payload)
	if err != nil {
		return nil, err
	}
	s.LoadAvg = fixedpoint.FromRaw(load)
	if s.Sleepers, err = protocol.DecodeVLQUint(&payload); err != nil {
		return nil, err
	}
	mlfqs, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	s.MLFQS = mlfqs != 0
	return s, nil
}

// PrintStats asks the target to write its tick report to its debug output
func (m *Monitor) PrintStats() error {
	if m.dictionary == nil {
		return ErrNoDictionary
	}
	id, ok := m.dictionary.CommandID("timer_print_stats")
	if !ok {
		return fmt.Errorf("unknown command: timer_print_stats")
	}
	return m.send(id, nil)
}

// callByName sends a command named in the dictionary and waits for the
// named response.
func (m *Monitor) callByName(command, response string, args func(protocol.OutputBuffer)) ([]byte, error) {
	if m.dictionary == nil {
		return nil, ErrNoDictionary
	}
	cmdID, ok := m.dictionary.CommandID(command)
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", command)
	}
	respID, ok := m.dictionary.ResponseID(response)
	if !ok {
		return nil, fmt.Errorf("unknown response: %s", response)
	}
	return m.call(cmdID, respID, args)
}

// call sends a command and returns the payload of the first matching
// response, after its ID.
func (m *Monitor) call(cmdID, respID uint32, args func(protocol.OutputBuffer)) ([]byte, error) {
	if err := m.send(cmdID, args); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(m.timeout)
	for {
		msg, err := m.receive(deadline)
		if err != nil {
			return nil, err
		}
		payload := msg.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode response command ID: %w", err)
		}
		if id == respID {
			return payload, nil
		}
	}
}

// send frames and writes one command
func (m *Monitor) send(cmdID uint32, args func(protocol.OutputBuffer)) error {
	payload := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(payload, cmdID)
	if args != nil {
		args(payload)
	}

	frame, err := protocol.EncodeFrame(m.seq, payload.Result())
	if err != nil {
		return err
	}
	m.seq = protocol.NextSequence(m.seq)

	if _, err := m.rw.Write(frame); err != nil {
		return fmt.Errorf("failed to send command %d: %w", cmdID, err)
	}
	return nil
}

// receive returns the next valid frame, skipping corrupt ones
func (m *Monitor) receive(deadline time.Time) (*protocol.Message, error) {
	buf := make([]byte, protocol.MessageMax)
	for {
		for !m.rx.IsEmpty() {
			msg, n, err := protocol.ParseFrame(m.rx.Data())
			if n == 0 {
				break
			}
			m.rx.Pop(n)
			if err == nil {
				return msg, nil
			}
			fmt.Fprintf(m.out, "Dropped frame: %v\n", err)
		}

		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		room := m.rx.Free()
		if room > len(buf) {
			room = len(buf)
		}
		n, err := m.rw.Read(buf[:room])
		if n > 0 {
			m.rx.Write(buf[:n])
			continue
		}
		// Serial read timeouts surface as empty reads or EOF
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		time.Sleep(time.Millisecond)
	}
}
