package core

import (
	"sync"

	"ktick/protocol"
)

// Constant is a build-time value exposed to the host
type Constant struct {
	Name  string
	Value interface{}
}

// Dictionary is the JSON document a host downloads with "identify" to learn
// command IDs and timer constants.
type Dictionary struct {
	mu         sync.RWMutex
	constants  map[string]*Constant
	commandReg *CommandRegistry
	version    string
	cachedDict []byte
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a dictionary over cmdReg
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:  make(map[string]*Constant),
		commandReg: cmdReg,
		version:    protocol.Version,
	}
}

// RegisterConstant registers a constant in the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// AddConstant adds a constant and drops any cached document
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{Name: name, Value: value}
	d.cachedDict = nil
}

// SetVersion sets the version string
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cachedDict = nil
}

// BuildDictionary renders and caches the document. Call it after every
// command is registered.
func (d *Dictionary) BuildDictionary() {
	// Read the registry before taking our own lock
	commands, responses := d.commandReg.GetCommandsAndResponses()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachedDict = d.buildJSONLocked(commands, responses)
	DebugPrintln("[Dict] built " + itoa(len(d.cachedDict)) + " bytes")
}

// Generate returns the dictionary JSON, building it if needed
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cachedDict
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}

	d.BuildDictionary()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cachedDict
}

// buildJSONLocked renders the document by hand; the firmware build avoids
// reflection-based encoders. Keys are sorted so the output is stable.
func (d *Dictionary) buildJSONLocked(commands, responses map[string]int) []byte {
	result := make([]byte, 0, 512)

	result = append(result, `{"version":`...)
	result = appendJSONString(result, d.version)
	result = append(result, `,"config":{`...)

	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	sortStrings(names)
	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendJSONString(result, name)
		result = append(result, ':')
		result = appendJSONString(result, valueToString(d.constants[name].Value))
	}

	result = append(result, `},"commands":`...)
	result = appendIDMap(result, commands)
	result = append(result, `,"responses":`...)
	result = appendIDMap(result, responses)
	result = append(result, '}')
	return result
}

// appendIDMap writes {"format": id, ...} ordered by id
func appendIDMap(result []byte, m map[string]int) []byte {
	formats := make([]string, 0, len(m))
	for f := range m {
		formats = append(formats, f)
	}
	// Insertion sort by ID; the maps hold a handful of entries
	for i := 1; i < len(formats); i++ {
		for j := i; j > 0 && m[formats[j]] < m[formats[j-1]]; j-- {
			formats[j], formats[j-1] = formats[j-1], formats[j]
		}
	}

	result = append(result, '{')
	for i, f := range formats {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendJSONString(result, f)
		result = append(result, ':')
		result = append(result, itoa(m[f])...)
	}
	return append(result, '}')
}

func appendJSONString(result []byte, s string) []byte {
	result = append(result, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			result = append(result, '\\')
		}
		result = append(result, c)
	}
	return append(result, '"')
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// GetChunk returns up to count bytes of the document starting at offset.
// The slice is a copy.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}

	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}

	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

// GetGlobalDictionary returns the global dictionary instance
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
