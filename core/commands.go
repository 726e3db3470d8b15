package core

import (
	"sync/atomic"
	"unsafe"

	"brushless/protocol"
)

// FirmwareState holds the global firmware state.
type FirmwareState struct {
	configCRC  uint32 // atomic
	isShutdown uint32 // atomic bool
}

var globalState = &FirmwareState{}

// InitCoreCommands registers the core protocol commands.
// Registration order matters for the bootstrap pair: the host assumes
// identify_response = ID 0 and identify = ID 1 before it has a dictionary.
func InitCoreCommands() {
	RegisterCommand("identify_response", "offset=%u data=%*s", nil)   // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify) // ID 1

	// Remaining commands; order past the bootstrap pair is free.
	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("get_config", "", handleGetConfig)
	RegisterCommand("config_reset", "", handleConfigReset)
	RegisterCommand("finalize_config", "crc=%u", handleFinalizeConfig)
	RegisterCommand("allocate_oids", "count=%c", handleAllocateOids)
	RegisterCommand("emergency_stop", "", handleEmergencyStop)
	RegisterCommand("reset", "", handleReset)

	// Debug commands
	RegisterCommand("debug_read", "order=%c addr=%u", handleDebugRead)
	RegisterResponse("debug_result", "val=%u")

	// Response messages (firmware -> host)
	RegisterResponse("clock", "clock=%u")
	RegisterResponse("uptime", "high=%u clock=%u")
	RegisterResponse("config", "is_config=%c crc=%u is_shutdown=%c")
}

// handleIdentify returns chunks of the data dictionary.
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	count8, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count := uint8(count8)

	chunk := GetGlobalDictionary().GetChunk(offset, count)

	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})

	return nil
}

// handleGetUptime returns the 64-bit system uptime split into two words.
func handleGetUptime(data *[]byte) error {
	uptime := GetUptime()
	high := uint32(uptime >> 32)
	low := uint32(uptime & 0xFFFFFFFF)

	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, high)
		protocol.EncodeVLQUint(output, low)
	})

	return nil
}

// handleGetClock returns the current clock value.
func handleGetClock(data *[]byte) error {
	clock := GetTime()

	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})

	return nil
}

// handleGetConfig returns the configuration state.
func handleGetConfig(data *[]byte) error {
	crc := atomic.LoadUint32(&globalState.configCRC)
	isShutdown := atomic.LoadUint32(&globalState.isShutdown) != 0
	isConfig := crc != 0

	SendResponse("config", func(output protocol.OutputBuffer) {
		if isConfig {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
		protocol.EncodeVLQUint(output, crc)
		if isShutdown {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
	})

	return nil
}

// handleConfigReset clears the configuration state.
func handleConfigReset(data *[]byte) error {
	atomic.StoreUint32(&globalState.configCRC, 0)
	return nil
}

// handleFinalizeConfig records the host's configuration CRC.
func handleFinalizeConfig(data *[]byte) error {
	crc, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	atomic.StoreUint32(&globalState.configCRC, crc)
	return nil
}

// handleAllocateOids reserves object IDs (currently a no-op; motors are
// created directly by config_bldc).
func handleAllocateOids(data *[]byte) error {
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	_ = count
	return nil
}

// handleEmergencyStop drops all power stages and halts motor activity.
func handleEmergencyStop(data *[]byte) error {
	atomic.StoreUint32(&globalState.isShutdown, 1)
	// De-energize every motor first: gates low, PWM channels disabled.
	StopAllMotors()
	// Stop speed-pot sampling.
	ShutdownAllAnalogIn()
	// Return remaining GPIO pins to their default state.
	ShutdownAllDigitalOut()
	// Coast the gate driver and silence bus peripherals.
	ShutdownSPI()
	ShutdownAllI2C()
	return nil
}

// TryShutdown triggers a firmware shutdown from a safety mechanism such as
// ADC range checking.
func TryShutdown(reason string) {
	atomic.StoreUint32(&globalState.isShutdown, 1)
	StopAllMotors()
	ShutdownAllAnalogIn()
	ShutdownAllDigitalOut()
	// Push configured shutdown messages to SPI peripherals (gate driver
	// coast) and stop I2C traffic.
	ShutdownSPI()
	ShutdownAllI2C()
	DebugPrintln("shutdown: " + reason)
}

// IsShutdown returns true if the firmware is in shutdown state.
func IsShutdown() bool {
	return atomic.LoadUint32(&globalState.isShutdown) != 0
}

// ResetFirmwareState resets the firmware state for reconnection.
func ResetFirmwareState() {
	atomic.StoreUint32(&globalState.configCRC, 0)
	atomic.StoreUint32(&globalState.isShutdown, 0)
}

// Global reset handler (set by target-specific code).
var globalResetHandler func()

// resetPending is set when a reset command arrives. The actual reset
// happens in the main loop, after the ACK has gone out.
var resetPending uint32 // atomic bool

// SetResetHandler sets the platform-specific reset handler.
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// handleDebugRead reads a raw value from a memory address.
// order: 1 = 16-bit read, 2 = 32-bit read.
func handleDebugRead(data *[]byte) error {
	order, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	addr, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	var val uint32
	switch order {
	case 1:
		ptr := (*uint16)(unsafe.Pointer(uintptr(addr)))
		val = uint32(*ptr)
	case 2:
		ptr := (*uint32)(unsafe.Pointer(uintptr(addr)))
		val = *ptr
	default:
		val = 0
	}

	SendResponse("debug_result", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, val)
	})

	return nil
}

// handleReset schedules a hardware reset. The reset is deferred until
// after the ACK is sent.
func handleReset(_ *[]byte) error {
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// CheckPendingReset executes a requested reset. Called from the main loop
// after all pending messages are flushed.
func CheckPendingReset() {
	if atomic.LoadUint32(&resetPending) != 0 {
		if globalResetHandler != nil {
			globalResetHandler()
		}
	}
}
