package core

// ADCChannelID identifies a logical ADC channel.
type ADCChannelID uint8

// ADCValue is a raw ADC reading as seen by the rest of the firmware.
// Convention: 16-bit value, even when the underlying hardware is 12 bits.
type ADCValue uint16

// ADCDriver is the analog input interface the core uses; the only consumer
// here is the speed potentiometer.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input. For pin-muxed
	// channels this sets the pin to analog mode.
	ConfigureChannel(ch ADCChannelID) error

	// ReadRaw performs a one-shot sample from the given channel. Values
	// are right-aligned 12-bit readings (0..4095).
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}

// Global singleton used by core code.
var adcDriver ADCDriver

// SetADCDriver is called by target-specific code to register its driver.
func SetADCDriver(d ADCDriver) {
	adcDriver = d
}

// MustADC returns the configured driver or panics if missing.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("ADC driver not configured")
	}
	return adcDriver
}
