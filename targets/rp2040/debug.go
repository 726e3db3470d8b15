//go:build rp2040

package main

import (
	"machine"
)

var (
	debugUART    *machine.UART
	debugEnabled bool
)

// InitDebugUART brings up UART0 on GPIO0 (TX) / GPIO1 (RX) at 115200 as
// the debug sink. USB carries the wire protocol, so debug output gets its
// own port.
func InitDebugUART() {
	debugUART = machine.UART0

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO0,
		RX:       machine.GPIO1,
	})
	if err != nil {
		debugEnabled = false
		return
	}

	debugEnabled = true
	DebugPrintln("=== bldc firmware debug ===")
}

// DebugPrintln writes a line to the debug UART.
func DebugPrintln(s string) {
	if !debugEnabled || debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
