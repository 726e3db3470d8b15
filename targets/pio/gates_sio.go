//go:build rp2040

package pio

import (
	"device/arm"
	"device/rp"
	"machine"
)

// GateSIO is the fallback gate backend for when no PIO state machine is
// free or the gate pins are not consecutive. It switches the gates
// through the single-cycle I/O block: clear all three, burn a software
// dead time, then set the new pattern. Slower and jitter-prone compared
// to the PIO backend, but still an atomic clear-before-set.
type GateSIO struct {
	pins    [3]machine.Pin
	allMask uint32
	// pinMask[n] is the SIO bit for gate line n.
	pinMask [3]uint32
}

func NewGateSIO() *GateSIO {
	return &GateSIO{}
}

// Init configures the three gate pins as outputs, driven low.
func (b *GateSIO) Init(pins [3]uint8) error {
	for i, pin := range pins {
		b.pins[i] = machine.Pin(pin)
		b.pins[i].Configure(machine.PinConfig{Mode: machine.PinOutput})
		b.pins[i].Low()
		b.pinMask[i] = 1 << pin
		b.allMask |= 1 << pin
	}
	return nil
}

// ApplyGates cuts every gate, waits out the dead time, then raises the
// requested lines in one register write.
func (b *GateSIO) ApplyGates(mask uint8) error {
	rp.SIO.GPIO_OUT_CLR.Set(b.allMask)

	// ~1us dead time: 125 NOPs at 125MHz. The gate driver needs the FET
	// fully off before the opposite half-bridge may conduct.
	for i := 0; i < 5; i++ {
		arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")
	}

	var setMask uint32
	for i := 0; i < 3; i++ {
		if mask&(1<<uint(i)) != 0 {
			setMask |= b.pinMask[i]
		}
	}
	if setMask != 0 {
		rp.SIO.GPIO_OUT_SET.Set(setMask)
	}
	return nil
}
