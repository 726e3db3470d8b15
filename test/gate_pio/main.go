//go:build rp2040

package main

// Gate PIO bench test - walks the six-step gate enable sequence on three
// consecutive pins. Watch GP5/GP6/GP7 on a scope: every transition must
// show all lines low for the dead-time gap before the next pair rises.

import (
	"machine"
	"time"

	"brushless/core"
	"brushless/targets/pio"
)

const gateBasePin = 5 // GP5, GP6, GP7

// Commutation period per sector while cycling; slow enough to see on
// an LED per line too.
const sectorDwell = 500 * time.Millisecond

func main() {
	time.Sleep(3 * time.Second)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// Flash LED to indicate start
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}

	println("=== Gate PIO Sequence Test ===")
	println("Gates: GP5 GP6 GP7, base", gateBasePin)

	gates := pio.NewGatePIO(0, 0)
	if err := gates.Init(gateBasePin); err != nil {
		println("Init error:", err.Error())
		for {
			led.High()
			time.Sleep(100 * time.Millisecond)
			led.Low()
			time.Sleep(100 * time.Millisecond)
		}
	}
	println("Init OK!")

	cycle := 0
	for {
		cycle++
		println("\n=== Cycle", cycle, "===")

		for sector := uint8(0); sector < core.NumSectors; sector++ {
			entry := core.SectorEntryFor(core.DriveAsymmetric, sector)
			if err := gates.ApplyGates(entry.Gates); err != nil {
				println("ApplyGates error:", err.Error())
			}
			println("Sector", sector, "- gate mask", entry.Gates)

			led.High()
			time.Sleep(sectorDwell / 2)
			led.Low()
			time.Sleep(sectorDwell / 2)
		}

		// Disable-all between cycles; inspect the idle low state
		if err := gates.ApplyGates(0); err != nil {
			println("ApplyGates error:", err.Error())
		}
		println("All gates off")
		time.Sleep(1 * time.Second)
	}
}
