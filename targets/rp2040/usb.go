//go:build rp2040

package main

import (
	"machine"
)

// InitUSB brings up the USB CDC-ACM serial port. On the RP2040
// machine.Serial is the USB CDC endpoint, not a hardware UART; the
// descriptors come from TinyGo's runtime.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of bytes buffered for reading.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from the host.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes data to the host, returning the count written.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
