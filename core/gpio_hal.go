package core

// GPIOPin identifies a hardware GPIO pin number.
type GPIOPin uint32

// GPIODriver is the digital I/O interface the core drives. The commutation
// core uses it for the hard rail states of undriven phases and for the
// low-side gate enable (/SD) lines; platform code implements it once per
// target.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output.
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as an input with pull-up.
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as an input with pull-down.
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin drives the pin high (true) or low (false).
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state.
	GetPin(pin GPIOPin) (bool, error)
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
