//go:build rp2040

package main

import (
	"errors"
	"machine"

	"brushless/core"
)

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type so the
// driver can hold the eight RP2040 PWM slices in an array.
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// PhasePWMDriver drives the three motor phase outputs from the RP2040's
// hardware PWM slices. The RP2040 latches channel compare values at the
// period boundary, which gives the glitch-free pulse updates the
// commutation core requires.
type PhasePWMDriver struct {
	pins     [core.NumPhases]machine.Pin
	slices   [core.NumPhases]pwmPeripheral
	channels [core.NumPhases]uint8
	cycle    uint32
}

func NewPhasePWMDriver() *PhasePWMDriver {
	return &PhasePWMDriver{}
}

// ConfigurePhases binds the three phase pins to their PWM slices and
// programs the common cycle length. GPIO pin N lives on slice (N>>1)&7;
// the three phases may share slices as long as the period is the same,
// which it is here by construction.
func (d *PhasePWMDriver) ConfigurePhases(pinA, pinB, pinC core.PWMPin, cycleTicks uint32) (uint32, error) {
	if cycleTicks == 0 {
		return 0, errors.New("pwm: zero cycle length")
	}

	pins := [core.NumPhases]core.PWMPin{pinA, pinB, pinC}
	period := (uint64(cycleTicks) * 1000000000) / core.TimerFreq

	for i, pin := range pins {
		pinNum := uint32(pin)
		if pinNum > 29 {
			return 0, errors.New("pwm: pin out of range")
		}
		slice := pwmSlice(uint8((pinNum >> 1) & 0x7))

		if err := slice.Configure(machine.PWMConfig{Period: period}); err != nil {
			return 0, err
		}

		machinePin := machine.Pin(pinNum)
		channel, err := slice.Channel(machinePin)
		if err != nil {
			return 0, err
		}

		d.pins[i] = machinePin
		d.slices[i] = slice
		d.channels[i] = channel
		slice.Set(channel, 0)
	}

	// The slice counter quantizes the period; the compare scaling in
	// SetPulse absorbs the difference, so the requested cycle length is
	// the achieved one as far as duty arithmetic is concerned.
	d.cycle = cycleTicks
	return cycleTicks, nil
}

// SetPulse programs the channel compare value. The width is given in
// timer ticks against the configured cycle and scaled to the slice's
// wrap value.
func (d *PhasePWMDriver) SetPulse(ch core.PhaseChannel, width uint32) error {
	if int(ch) >= core.NumPhases || d.slices[ch] == nil {
		return errors.New("pwm: channel not configured")
	}
	if width > d.cycle {
		width = d.cycle
	}

	slice := d.slices[ch]
	top := slice.Top()
	compare := uint32((uint64(width) * uint64(top)) / uint64(d.cycle))
	slice.Set(d.channels[ch], compare)
	return nil
}

// SetEnabled connects or floats the channel's pad. The slice keeps
// counting either way; switching the pin function to input disconnects
// the output driver immediately, leaving the phase high-impedance so its
// back-EMF is observable.
func (d *PhasePWMDriver) SetEnabled(ch core.PhaseChannel, enabled bool) error {
	if int(ch) >= core.NumPhases || d.slices[ch] == nil {
		return errors.New("pwm: channel not configured")
	}
	if enabled {
		d.pins[ch].Configure(machine.PinConfig{Mode: machine.PinPWM})
	} else {
		d.pins[ch].Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	return nil
}

func (d *PhasePWMDriver) CycleTicks() uint32 {
	return d.cycle
}

// pwmSlice returns the PWM peripheral for a slice number. TinyGo exposes
// the eight slices as PWM0-PWM7 globals of an unexported type.
func pwmSlice(n uint8) pwmPeripheral {
	switch n {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
