package mcu

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"brushless/host/serial"
	"brushless/protocol"
)

// MCU represents a connection to a motor controller board.
type MCU struct {
	// Transport layer
	transport *protocol.HostTransport

	// Serial port
	port serial.Port

	// Dictionary data
	dictionary     *Dictionary
	dictionaryData []byte

	// Connection state
	connected bool
}

// Dictionary represents the parsed controller dictionary
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// MotorStatus is one decoded bldc_state report.
type MotorStatus struct {
	OID    uint8
	State  uint8
	Sector uint8
	Period uint32
	Duty   uint32
}

// Motor state codes as reported in bldc_state.
const (
	MotorOff    = 0
	MotorRampUp = 1
	MotorOn     = 2
)

// StateName returns a printable name for a reported motor state.
func StateName(state uint8) string {
	switch state {
	case MotorOff:
		return "off"
	case MotorRampUp:
		return "rampup"
	case MotorOn:
		return "on"
	default:
		return "unknown"
	}
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{
		connected: false,
	}
}

// Connect connects to a controller via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true

	m.transport.SetResponseHandler(m.handleResponse)

	// Give the board time to initialize if it just powered on.
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Close closes the connection
func (m *MCU) Close() error {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return err
		}
	}
	m.connected = false
	return nil
}

// RetrieveDictionary retrieves the complete dictionary from the board.
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}

	// Dictionary is retrieved in chunks: offset 0, 40 bytes at a time.
	var dictBuffer bytes.Buffer
	offset := uint32(0)
	chunkSize := uint8(40)
	maxIterations := 1000 // Safety limit

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset, chunkSize)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}

		if len(chunk) == 0 {
			break
		}

		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))

		// A short chunk is the last one.
		if len(chunk) < int(chunkSize) {
			break
		}
	}

	m.dictionaryData = dictBuffer.Bytes()

	// The firmware compresses the dictionary with zlib; a plain-JSON
	// fallback exists, so only decompress when the header says so.
	decompressed, err := m.tryDecompress(m.dictionaryData)
	if err == nil && len(decompressed) > 0 {
		m.dictionaryData = decompressed
	}

	if err := m.parseDictionary(); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}

	return nil
}

// sendIdentify sends an identify command and waits for its response
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	// identify is always command ID 1; it is how the dictionary that
	// maps the remaining IDs gets fetched in the first place.
	err := m.transport.SendCommand(1, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send identify command: %w", err)
	}

	resp, err := m.transport.ReceiveResponse(1 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to receive identify response: %w", err)
	}

	// Response payload: cmdID (0 = identify_response), offset, data.
	payload := resp.Payload

	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response command ID: %w", err)
	}
	if cmdID != 0 {
		return nil, fmt.Errorf("unexpected response command ID: %d (expected 0)", cmdID)
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}

	return data, nil
}

// tryDecompress inflates a zlib-compressed dictionary.
func (m *MCU) tryDecompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x78 {
		return nil, fmt.Errorf("not zlib compressed")
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib init: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib inflate: %w", err)
	}
	return out, nil
}

// parseDictionary parses the dictionary JSON
func (m *MCU) parseDictionary() error {
	dict := &Dictionary{}
	if err := json.Unmarshal(m.dictionaryData, dict); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	m.dictionary = dict
	return nil
}

// handleResponse receives async responses from the board. Responses the
// caller is waiting on come through ReceiveResponse instead.
func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	return nil
}

// GetDictionary returns the parsed dictionary
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the raw dictionary data
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// PrintDictionary prints a summary of the dictionary
func (m *MCU) PrintDictionary() {
	if m.dictionary == nil {
		fmt.Println("No dictionary loaded")
		return
	}

	fmt.Println("\n=== Controller Dictionary ===")
	fmt.Printf("Version: %s\n", m.dictionary.Version)
	fmt.Printf("Build: %s\n", m.dictionary.BuildVersions)

	fmt.Println("\nConfig:")
	for k, v := range m.dictionary.Config {
		fmt.Printf("  %s = %s\n", k, v)
	}

	fmt.Printf("\nCommands (%d):\n", len(m.dictionary.Commands))
	for name, id := range m.dictionary.Commands {
		fmt.Printf("  [%d] %s\n", id, name)
	}

	fmt.Printf("\nResponses (%d):\n", len(m.dictionary.Responses))
	for name, id := range m.dictionary.Responses {
		fmt.Printf("  [%d] %s\n", id, name)
	}

	if len(m.dictionary.Enumerations) > 0 {
		fmt.Printf("\nEnumerations (%d):\n", len(m.dictionary.Enumerations))
		for name, values := range m.dictionary.Enumerations {
			fmt.Printf("  %s: %d values\n", name, len(values))
		}
	}

	fmt.Println("=============================")
}

// SendCommand sends a command by dictionary name.
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}
	if m.dictionary == nil {
		return fmt.Errorf("dictionary not loaded")
	}

	cmdID, ok := lookupByName(m.dictionary.Commands, name)
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}

	return m.transport.SendCommand(uint16(cmdID), args)
}

// lookupByName finds an ID in a dictionary map whose keys are full format
// strings ("config_bldc oid=%c ..."). The bare command name is enough to
// identify the entry.
func lookupByName(entries map[string]int, name string) (int, bool) {
	if id, ok := entries[name]; ok {
		return id, true
	}
	for key, id := range entries {
		if strings.HasPrefix(key, name+" ") {
			return id, true
		}
	}
	return 0, false
}

// ConfigMotor creates a commutation controller on the board. Pins are
// board GPIO numbers; cycleTicks 0 picks the firmware default.
func (m *MCU) ConfigMotor(oid uint8, phasePins, gatePins [3]uint32, cycleTicks uint32, complementary, geometric, manual bool) error {
	return m.SendCommand("config_bldc", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		for _, pin := range phasePins {
			protocol.EncodeVLQUint(output, pin)
		}
		for _, pin := range gatePins {
			protocol.EncodeVLQUint(output, pin)
		}
		protocol.EncodeVLQUint(output, cycleTicks)
		protocol.EncodeVLQUint(output, boolArg(complementary))
		protocol.EncodeVLQUint(output, boolArg(geometric))
		protocol.EncodeVLQUint(output, boolArg(manual))
	})
}

// Stop stops a motor from any state.
func (m *MCU) Stop(oid uint8) error {
	return m.sendOIDCommand("bldc_stop", oid)
}

// SpeedIncrease starts the motor, or shortens the commutation period of
// a running one.
func (m *MCU) SpeedIncrease(oid uint8) error {
	return m.sendOIDCommand("bldc_speed_increase", oid)
}

// SpeedDecrease starts the motor, or lengthens the commutation period of
// a running one.
func (m *MCU) SpeedDecrease(oid uint8) error {
	return m.sendOIDCommand("bldc_speed_decrease", oid)
}

// SetDuty sets the manual PWM duty target.
func (m *MCU) SetDuty(oid uint8, duty uint32) error {
	return m.SendCommand("bldc_set_duty", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, duty)
	})
}

// QueryStatus requests and decodes one bldc_state report.
func (m *MCU) QueryStatus(oid uint8) (*MotorStatus, error) {
	stateID, ok := lookupByName(m.dictionary.Responses, "bldc_state")
	if !ok {
		return nil, fmt.Errorf("board reports no bldc_state response")
	}

	if err := m.sendOIDCommand("query_bldc", oid); err != nil {
		return nil, err
	}

	resp, err := m.transport.ReceiveResponse(1 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("no status report: %w", err)
	}

	payload := resp.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if cmdID != uint32(stateID) {
		return nil, fmt.Errorf("unexpected response ID %d", cmdID)
	}

	var fields [5]uint32
	for i := range fields {
		fields[i], err = protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, fmt.Errorf("truncated status report: %w", err)
		}
	}

	return &MotorStatus{
		OID:    uint8(fields[0]),
		State:  uint8(fields[1]),
		Sector: uint8(fields[2]),
		Period: fields[3],
		Duty:   fields[4],
	}, nil
}

// ConfigFaultMonitor sets up a debounced watcher on a gate driver nFAULT
// pin. triggerHigh is false for the usual open-drain active-low wiring.
func (m *MCU) ConfigFaultMonitor(oid uint8, pin uint32, pullUp, triggerHigh bool) error {
	return m.SendCommand("config_fault_monitor", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, pin)
		protocol.EncodeVLQUint(output, boolArg(pullUp))
		protocol.EncodeVLQUint(output, boolArg(triggerHigh))
	})
}

// ArmFaultMonitor starts sampling a fault monitor. A sampleCount of 0
// disarms it.
func (m *MCU) ArmFaultMonitor(oid uint8, clock, sampleTicks uint32, sampleCount uint8, restTicks uint32) error {
	return m.SendCommand("fault_monitor_arm", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, clock)
		protocol.EncodeVLQUint(output, sampleTicks)
		protocol.EncodeVLQUint(output, uint32(sampleCount))
		protocol.EncodeVLQUint(output, restTicks)
	})
}

func (m *MCU) sendOIDCommand(name string, oid uint8) error {
	return m.SendCommand(name, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
	})
}

func boolArg(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// IsConnected returns whether the board is connected
func (m *MCU) IsConnected() bool {
	return m.connected
}
