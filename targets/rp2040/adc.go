//go:build rp2040

package main

import (
	"errors"
	"machine"

	"brushless/core"
)

// AdcDriver implements core.ADCDriver using TinyGo's machine.ADC. The
// speed potentiometer is the only consumer; channels are configured
// lazily on first read.
type AdcDriver struct {
	channels map[core.ADCChannelID]*machine.ADC
}

func NewAdcDriver() *AdcDriver {
	machine.InitADC()
	return &AdcDriver{
		channels: make(map[core.ADCChannelID]*machine.ADC),
	}
}

// ConfigureChannel sets up an ADC input. Channel IDs follow the board pin
// enumeration: indices 30-33 name ADC0-ADC3 and translate to hardware
// channels 0-3.
func (d *AdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	if ch >= 30 && ch <= 33 {
		ch -= 30
	}

	if _, ok := d.channels[ch]; ok {
		return nil
	}

	var adc machine.ADC
	switch ch {
	case 0:
		adc = machine.ADC{Pin: machine.ADC0}
	case 1:
		adc = machine.ADC{Pin: machine.ADC1}
	case 2:
		adc = machine.ADC{Pin: machine.ADC2}
	case 3:
		adc = machine.ADC{Pin: machine.ADC3}
	default:
		return errors.New("unsupported ADC channel")
	}

	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}

	d.channels[ch] = &adc
	return nil
}

// ReadRaw performs a one-shot conversion. TinyGo reports readings
// left-aligned in 16 bits; the commutation core works with the native
// 12-bit range, so shift back down.
func (d *AdcDriver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if ch >= 30 && ch <= 33 {
		ch -= 30
	}

	adc, ok := d.channels[ch]
	if !ok {
		if err := d.ConfigureChannel(ch); err != nil {
			return 0, err
		}
		adc = d.channels[ch]
	}

	return core.ADCValue(adc.Get() >> 4), nil
}
