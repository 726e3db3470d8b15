//go:build rp2040

package main

import (
	"machine"
	"time"

	"brushless/core"
	"brushless/standalone"
	"brushless/standalone/config"
)

// RunStandaloneMode runs the board as a self-contained bench controller:
// no host, just the line console on USB. HAL drivers and the clock must
// already be up.
func RunStandaloneMode() {
	manager, err := standalone.NewManagerWithConfig(config.DefaultBenchConfig())
	if err != nil {
		blinkForever()
	}

	if err := manager.Initialize(); err != nil {
		blinkForever()
	}

	if err := manager.Start(); err != nil {
		return
	}

	// Three slow blinks: console is up.
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(200 * time.Millisecond)
		led.Low()
		time.Sleep(200 * time.Millisecond)
	}

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err == nil {
				if err := manager.ProcessByte(data); err != nil {
					manager.SendResponse("Error: ")
					manager.SendResponse(err.Error())
					manager.SendResponse("\n")
				}
			}
		}

		output := manager.GetOutput()
		if len(output) > 0 {
			USBWriteBytes(output)
		}

		UpdateSystemTime()
		core.ProcessTimers()
		core.SpeedPotTask()

		time.Sleep(10 * time.Microsecond)
	}
}

// blinkForever signals a fatal setup error on the on-board LED.
func blinkForever() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
