//go:build rp2040

package main

import (
	"machine"

	"brushless/core"
)

// GPIODriver implements core.GPIODriver on the RP2040. Pin numbers map
// directly to GPIO numbers; configured pins are tracked so a SetPin on an
// unconfigured pin can bring it up as an output first.
type GPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

func NewGPIODriver() *GPIODriver {
	return &GPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *GPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}

	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = machinePin
	return nil
}

func (d *GPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}

	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	d.configuredPins[pin] = machinePin
	return nil
}

func (d *GPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}

	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	d.configuredPins[pin] = machinePin
	return nil
}

func (d *GPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}

	machinePin.Set(value)
	return nil
}

func (d *GPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false, nil
	}
	return machinePin.Get(), nil
}
