package core

import (
	"bytes"
	"sync"

	"brushless/protocol"
	"brushless/tinycompress"
)

// Constant is a firmware constant exposed to the host.
type Constant struct {
	Name  string
	Value interface{}
}

// Enumeration is a named set of values (pin names, drive modes).
type Enumeration struct {
	Name   string
	Values []string
}

// Dictionary manages the data dictionary served to the host during the
// identify handshake.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	enumerations  map[string]*Enumeration
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte // compressed dictionary, built once
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a new dictionary bound to a command registry.
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		enumerations:  make(map[string]*Enumeration),
		commandReg:    cmdReg,
		version:       protocol.Version,
		buildVersions: "go-tinygo",
	}
}

// RegisterConstant registers a constant in the global dictionary.
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// RegisterEnumeration registers an enumeration in the global dictionary.
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

// AddConstant adds a constant to the dictionary.
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{
		Name:  name,
		Value: value,
	}
}

// AddEnumeration adds an enumeration to the dictionary.
func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Copy the slice: TinyGo's GC may reclaim the caller's backing array
	// after its function returns.
	valuesCopy := make([]string, len(values))
	copy(valuesCopy, values)

	d.enumerations[name] = &Enumeration{
		Name:   name,
		Values: valuesCopy,
	}
}

// SetVersion sets the firmware version string.
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
}

// SetBuildVersions sets the build versions string.
func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
}

// BuildDictionary builds and caches the compressed dictionary. Call once,
// after all commands are registered.
func (d *Dictionary) BuildDictionary() {
	// Fetch commands/responses BEFORE taking the dictionary lock; the
	// registry has its own lock and reversing the order deadlocks when a
	// second core is registering commands.
	commands, responses := d.commandReg.GetCommandsAndResponses()

	d.mu.Lock()
	defer d.mu.Unlock()

	jsonData := d.buildJSONLockedWithData(commands, responses)

	var buf bytes.Buffer
	w := tinycompress.NewWriter(&buf)
	_, err := w.Write(jsonData)
	if err != nil {
		DebugPrintln("dictionary: compression write failed: " + err.Error())
		d.cachedDict = jsonData
		return
	}
	if err := w.Close(); err != nil {
		DebugPrintln("dictionary: compression close failed: " + err.Error())
		d.cachedDict = jsonData
		return
	}

	compressed := buf.Bytes()
	if len(compressed) == 0 {
		d.cachedDict = jsonData
		return
	}

	d.cachedDict = make([]byte, len(compressed))
	copy(d.cachedDict, compressed)
}

// Generate returns the complete dictionary, cached if available.
func (d *Dictionary) Generate() []byte {
	if d.cachedDict != nil {
		return d.cachedDict
	}
	return d.generateJSON()
}

func (d *Dictionary) generateJSON() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildJSONLocked()
}

func (d *Dictionary) buildJSONLocked() []byte {
	commands, responses := d.commandReg.GetCommandsAndResponses()
	return d.buildJSONLockedWithData(commands, responses)
}

// buildJSONLockedWithData builds the JSON dictionary from pre-fetched
// command data. Caller holds the dictionary lock.
func (d *Dictionary) buildJSONLockedWithData(commands map[string]int, responses map[string]int) []byte {
	result := make([]byte, 0, 1024)

	result = append(result, []byte(`{"version":"`)...)
	result = append(result, []byte(d.version)...)
	result = append(result, []byte(`","build_versions":"`)...)
	result = append(result, []byte(d.buildVersions)...)
	result = append(result, []byte(`","config":{`)...)

	// Constants, sorted for a stable CRC. Bubble sort keeps the sort
	// package out of the embedded build.
	constNames := make([]string, 0, len(d.constants))
	for name := range d.constants {
		constNames = append(constNames, name)
	}
	for i := 0; i < len(constNames); i++ {
		for j := i + 1; j < len(constNames); j++ {
			if constNames[i] > constNames[j] {
				constNames[i], constNames[j] = constNames[j], constNames[i]
			}
		}
	}

	first := true
	for _, name := range constNames {
		c := d.constants[name]
		if !first {
			result = append(result, ',')
		}
		result = append(result, '"')
		result = append(result, []byte(name)...)
		result = append(result, []byte(`":"`)...)
		result = append(result, []byte(valueToString(c.Value))...)
		result = append(result, '"')
		first = false
	}
	result = append(result, []byte(`},"commands":{`)...)

	cmdIDs := make([]int, 0, len(commands))
	for _, id := range commands {
		cmdIDs = append(cmdIDs, id)
	}
	for i := 0; i < len(cmdIDs); i++ {
		for j := i + 1; j < len(cmdIDs); j++ {
			if cmdIDs[i] > cmdIDs[j] {
				cmdIDs[i], cmdIDs[j] = cmdIDs[j], cmdIDs[i]
			}
		}
	}

	firstCmd := true
	for _, id := range cmdIDs {
		for cmdFormat, cmdID := range commands {
			if cmdID == id {
				if !firstCmd {
					result = append(result, ',')
				}
				result = append(result, '"')
				result = append(result, []byte(cmdFormat)...)
				result = append(result, []byte(`":`)...)
				result = append(result, []byte(itoa(cmdID))...)
				firstCmd = false
				break
			}
		}
	}
	result = append(result, []byte(`},"responses":{`)...)

	respIDs := make([]int, 0, len(responses))
	for _, id := range responses {
		respIDs = append(respIDs, id)
	}
	for i := 0; i < len(respIDs); i++ {
		for j := i + 1; j < len(respIDs); j++ {
			if respIDs[i] > respIDs[j] {
				respIDs[i], respIDs[j] = respIDs[j], respIDs[i]
			}
		}
	}

	firstResp := true
	for _, id := range respIDs {
		for respFormat, respID := range responses {
			if respID == id {
				if !firstResp {
					result = append(result, ',')
				}
				result = append(result, '"')
				result = append(result, []byte(respFormat)...)
				result = append(result, []byte(`":`)...)
				result = append(result, []byte(itoa(respID))...)
				firstResp = false
				break
			}
		}
	}
	result = append(result, '}')

	if len(d.enumerations) > 0 {
		result = append(result, []byte(`,"enumerations":{`)...)

		enumNames := make([]string, 0, len(d.enumerations))
		for name := range d.enumerations {
			enumNames = append(enumNames, name)
		}
		for i := 0; i < len(enumNames); i++ {
			for j := i + 1; j < len(enumNames); j++ {
				if enumNames[i] > enumNames[j] {
					enumNames[i], enumNames[j] = enumNames[j], enumNames[i]
				}
			}
		}

		firstEnum := true
		for _, name := range enumNames {
			enum := d.enumerations[name]
			if !firstEnum {
				result = append(result, ',')
			}
			result = append(result, '"')
			result = append(result, []byte(name)...)
			result = append(result, []byte(`":{`)...)

			firstValue := true
			for i, value := range enum.Values {
				if value != "" {
					if !firstValue {
						result = append(result, ',')
					}
					result = append(result, '"')
					result = append(result, []byte(value)...)
					result = append(result, []byte(`":`)...)
					result = append(result, []byte(itoa(i))...)
					firstValue = false
				}
			}
			result = append(result, '}')
			firstEnum = false
		}
		result = append(result, '}')
	}

	result = append(result, '}')

	return result
}

// GetChunk returns a chunk of the dictionary starting at offset. The chunk
// is a copy: slices of the cached dictionary must not escape while USB
// transmission can touch them.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()

	if len(data) == 0 {
		return []byte{}
	}

	if offset >= uint32(len(data)) {
		return []byte{}
	}

	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	if end <= offset {
		return []byte{}
	}

	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

// GetGlobalDictionary returns the global dictionary instance.
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
