// Host command surface for the commutation controllers.
package core

import (
	"brushless/protocol"
)

// InitMotorCommands registers the motor commands.
func InitMotorCommands() {
	RegisterCommand("config_bldc", "oid=%c pwm_a=%u pwm_b=%u pwm_c=%u sd_a=%u sd_b=%u sd_c=%u cycle_ticks=%u drive_mode=%c ramp_mode=%c manual=%c", handleConfigBLDC)
	RegisterCommand("bldc_stop", "oid=%c", handleBLDCStop)
	RegisterCommand("bldc_speed_increase", "oid=%c", handleBLDCSpeedIncrease)
	RegisterCommand("bldc_speed_decrease", "oid=%c", handleBLDCSpeedDecrease)
	RegisterCommand("bldc_set_duty", "oid=%c duty=%u", handleBLDCSetDuty)
	RegisterCommand("query_bldc", "oid=%c", handleQueryBLDC)

	RegisterResponse("bldc_state", "oid=%c state=%c sector=%c period=%u duty=%u")

	RegisterEnumeration("drive_mode", []string{"asymmetric", "complementary"})
	RegisterEnumeration("ramp_mode", []string{"linear", "geometric"})
}

// handleConfigBLDC creates a motor: three phase PWM pins, three gate
// enable pins, and the mode flags. Outputs come up de-energized; the
// motor only spins once a speed command arrives.
func handleConfigBLDC(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	var phasePins [NumPhases]PWMPin
	for i := range phasePins {
		pin, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		phasePins[i] = PWMPin(pin)
	}

	var gatePins [NumPhases]GPIOPin
	for i := range gatePins {
		pin, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		gatePins[i] = GPIOPin(pin)
	}

	cycleTicks, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	driveMode, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	rampMode, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	manual, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	cfg := DefaultMotorConfig()
	cfg.DriveMode = DriveMode(driveMode)
	cfg.RampMode = RampMode(rampMode)
	cfg.ManualControl = manual != 0

	_, err = SetupMotor(uint8(oid), phasePins, gatePins, cycleTicks, cfg)
	return err
}

// SetupMotor brings up one commutation controller: PWM channels bound,
// gate lines driven low, outputs de-energized, tick timers armed. Both
// the host command path and standalone mode create motors through here.
func SetupMotor(oid uint8, phasePins [NumPhases]PWMPin, gatePins [NumPhases]GPIOPin, cycleTicks uint32, cfg MotorConfig) (*Motor, error) {
	if cycleTicks == 0 {
		cycleTicks = DefaultCycleTicks
	}

	// The PWM hardware may round the cycle; the achieved value is what
	// duty targets are validated against.
	achieved, err := MustPhasePWM().ConfigurePhases(phasePins[PhaseA], phasePins[PhaseB], phasePins[PhaseC], cycleTicks)
	if err != nil {
		return nil, err
	}

	m, err := NewMotor(oid, cfg, achieved)
	if err != nil {
		return nil, err
	}
	m.PhasePins = phasePins
	m.GatePins = gatePins

	// Gate lines start low: all half-bridges off. A platform gate backend,
	// if one can serve these pins, takes over the writes from here on.
	for _, pin := range gatePins {
		if err := MustGPIO().ConfigureOutput(pin); err != nil {
			return nil, err
		}
		if err := MustGPIO().SetPin(pin, false); err != nil {
			return nil, err
		}
	}
	m.gates = newGateDriver(gatePins)

	m.mu.Lock()
	err = m.applyAllOff()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.StartTicking()

	return m, nil
}

// handleBLDCStop stops a motor from any state.
func handleBLDCStop(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	if m := GetMotor(uint8(oid)); m != nil {
		m.Stop()
	}
	return nil
}

// handleBLDCSpeedIncrease starts the motor or nudges it faster.
func handleBLDCSpeedIncrease(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	if m := GetMotor(uint8(oid)); m != nil {
		m.SpeedIncrease()
	}
	return nil
}

// handleBLDCSpeedDecrease starts the motor or nudges it slower.
func handleBLDCSpeedDecrease(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	if m := GetMotor(uint8(oid)); m != nil {
		m.SpeedDecrease()
	}
	return nil
}

// handleBLDCSetDuty sets the manual duty target.
func handleBLDCSetDuty(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	duty, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	if m := GetMotor(uint8(oid)); m != nil {
		m.SetManualDuty(duty)
	}
	return nil
}

// handleQueryBLDC reports a motor's state back to the host.
func handleQueryBLDC(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	m := GetMotor(uint8(oid))
	if m == nil {
		return nil
	}

	state := m.State()
	sector := m.Sector()
	period := m.Period()
	duty := m.Duty()

	SendResponse("bldc_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, uint32(state))
		protocol.EncodeVLQUint(output, uint32(sector))
		protocol.EncodeVLQUint(output, period)
		protocol.EncodeVLQUint(output, duty)
	})

	return nil
}
