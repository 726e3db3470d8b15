//go:build rp2040

package main

import (
	"machine"
	"time"

	"brushless/core"
	"brushless/protocol"
	"brushless/targets/pio"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Debug counters
	messagesReceived uint32
	messagesSent     uint32
	msgerrors        uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Disable the watchdog on boot to clear any state persisting across
	// a firmware-requested reset.
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitDebugUART()
	core.SetDebugWriter(DebugPrintln)

	InitClock()
	core.TimerInit()

	// Register the command surface.
	core.InitCoreCommands()
	core.InitGPIOCommands()
	core.InitAnalogCommands()
	core.InitMotorCommands()
	core.InitFaultCommands()
	core.InitI2CCommands()
	core.InitSPICommands()
	core.InitDriverCommands()

	// Pin enumeration must be registered before BuildDictionary().
	registerBoardPins()

	// Wire the hardware drivers.
	core.SetGPIODriver(NewGPIODriver())
	core.SetADCDriver(NewAdcDriver())
	core.SetPhasePWMDriver(NewPhasePWMDriver())
	core.SetI2CDriver(NewRPI2CDriver())
	core.SetSPIDriver(NewRP2040SPIDriver())
	pio.InitGateDrive()

	// Standalone console mode never returns.
	if GetMode().Standalone {
		RunStandaloneMode()
	}

	// Build and cache the compressed dictionary after all commands,
	// constants and enumerations are registered.
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, handleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		core.ResetFirmwareState()
	})
	// Flush immediately so the ACK reaches the host before the response.
	transport.SetFlushCallback(func() {
		writeUSB()
	})
	core.SetGlobalTransport(transport)

	// Reset via the watchdog; it handles USB re-enumeration better than
	// ARM SYSRESETREQ on the RP2040.
	core.SetResetHandler(func() {
		err = machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
		if err != nil {
			return
		}
		err = machine.Watchdog.Start()
		if err != nil {
			return
		}
		for {
			time.Sleep(1 * time.Millisecond)
		}
	})

	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to keep the bridge
		// outputs under control; the shutdown path has already run by
		// the time a panic propagates here.
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)

				transport.Receive(inputBuf)
				messagesReceived++

				consumed := originalLen - inputBuf.Available()
				if consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			result := outputBuffer.Result()
			if len(result) > 0 {
				writeUSB()
				messagesSent++
			}

			// Reset only after the ACK has gone out.
			core.CheckPendingReset()

			core.ProcessTimers()

			// Ship pending speed_pot_state reports and fold new pot
			// readings into the motor duty. Runs here, not in timer
			// context, because it takes the motor lock.
			core.SpeedPotTask()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop feeds USB bytes into the input FIFO from a goroutine.
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// First byte after a disconnect: reset everything for a
			// fresh host session.
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				core.ResetFirmwareState()
				messagesReceived = 0
				messagesSent = 0
				consecutiveWriteFailures = 0
			}

			written := inputBuffer.Write([]byte{data})
			if written == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// handleCommand dispatches received commands to the command registry.
func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}

// registerBoardPins registers the combined pin enumeration: GPIO pins at
// indices 0-29, the four ADC inputs at 30-33.
func registerBoardPins() {
	pinNames := make([]string, 34)

	for i := 0; i < 30; i++ {
		pinNames[i] = "gpio" + itoa(i)
	}

	pinNames[30] = "ADC0"
	pinNames[31] = "ADC1"
	pinNames[32] = "ADC2"
	pinNames[33] = "ADC3"

	core.RegisterEnumeration("pin", pinNames)
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}

// writeUSB drains the output buffer to USB, handling partial writes and
// host disconnects.
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			// After several failures assume a disconnect and drop the
			// stale data rather than re-sending it to the next session.
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}

	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
