//go:build tinygo

package core

import (
	"errors"
	"machine"
)

// Helpers to unwrap HAL bus handles into machine.* instances so TinyGo
// device drivers (tinygo.org/x/drivers) can be initialized directly.

// GetMachineI2C returns a configured machine.I2C instance for a bus
func GetMachineI2C(bus I2CBusID) (*machine.I2C, error) {
	busInterface, err := MustI2C().GetMachineBus(bus)
	if err != nil {
		return nil, err
	}

	i2c, ok := busInterface.(*machine.I2C)
	if !ok {
		return nil, errors.New("bus is not a machine.I2C instance")
	}

	return i2c, nil
}

// GetMachineSPI returns a configured machine.SPI instance for a bus handle
func GetMachineSPI(busHandle interface{}) (*machine.SPI, error) {
	if busHandle == nil {
		return nil, errors.New("invalid bus handle")
	}

	spiInterface, err := MustSPI().GetMachineBus(busHandle)
	if err != nil {
		return nil, err
	}

	spi, ok := spiInterface.(*machine.SPI)
	if !ok {
		return nil, errors.New("bus is not a machine.SPI instance")
	}

	return spi, nil
}
