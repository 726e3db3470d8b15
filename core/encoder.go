package core

// Phase output encoding: translate the logical per-phase states of a
// commutation sector into PWM pulse widths, rail levels and gate lines.

// PulseFor maps a logical phase state and the current duty target to a
// pulse width. PhasePwmMinus is the complemented duty used by the
// symmetric drive mode.
func PulseFor(state PhaseState, duty, cycleTicks uint32) uint32 {
	switch state {
	case PhaseHigh:
		return cycleTicks
	case PhasePwmPlus:
		return duty
	case PhasePwmMinus:
		return cycleTicks - duty
	default:
		// PhaseOff, PhaseLow, PhaseFloat carry no pulse
		return 0
	}
}

// applySector pushes one commutation sector to the hardware.
//
// The bracketing here is a hard safety invariant: every channel's active
// drive is cut before any channel is reconfigured, and nothing is
// re-enabled until all three are set. A PWM channel caught mid-pulse during
// the switch would otherwise leave its output at an indeterminate level,
// and two half-configured channels can short the supply rails through the
// bridge.
//
// A failed HAL write aborts the sequence on the safe side: the disable
// pass runs first, so the bridge is left dark rather than half-switched.
// Callers must treat the error as fatal and shut down.
func (m *Motor) applySector(entry SectorEntry, duty uint32) error {
	pwm := MustPhasePWM()
	gpio := MustGPIO()
	cycle := pwm.CycleTicks()

	for ch := PhaseChannel(0); ch < NumPhases; ch++ {
		if err := pwm.SetEnabled(ch, false); err != nil {
			return err
		}
	}

	var enable [NumPhases]bool
	for i := 0; i < NumPhases; i++ {
		ch := PhaseChannel(i)
		state := entry.States[i]

		switch {
		case isModulated(state):
			if err := pwm.SetPulse(ch, PulseFor(state, duty, cycle)); err != nil {
				return err
			}
			enable[i] = true
		case state == PhaseHigh || state == PhaseLow:
			// Hard rail: the phase pin is driven as plain GPIO while its
			// PWM channel stays disconnected.
			if err := gpio.SetPin(GPIOPin(m.PhasePins[i]), state == PhaseHigh); err != nil {
				return err
			}
		}
		// PhaseFloat and PhaseOff leave the output stage dark.
	}

	if m.gates != nil {
		// Hardware backend switches all gate lines in one shot with its
		// own dead time between the old and new pattern.
		if err := m.gates.ApplyGates(entry.Gates); err != nil {
			return err
		}
	} else {
		for i := 0; i < NumPhases; i++ {
			if err := gpio.SetPin(m.GatePins[i], entry.Gates&(1<<uint(i)) != 0); err != nil {
				return err
			}
		}
	}

	for i := 0; i < NumPhases; i++ {
		if enable[i] {
			if err := pwm.SetEnabled(PhaseChannel(i), true); err != nil {
				return err
			}
		}
	}

	return nil
}

// applyAllOff de-energizes the bridge completely: gates dropped, channels
// disconnected, phase pins parked at the low rail. Every line is written
// even after a failure; the first error is reported.
func (m *Motor) applyAllOff() error {
	pwm := MustPhasePWM()
	gpio := MustGPIO()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for ch := PhaseChannel(0); ch < NumPhases; ch++ {
		keep(pwm.SetEnabled(ch, false))
	}
	if m.gates != nil {
		keep(m.gates.ApplyGates(0))
	}
	for i := 0; i < NumPhases; i++ {
		if m.gates == nil {
			keep(gpio.SetPin(m.GatePins[i], false))
		}
		keep(gpio.SetPin(GPIOPin(m.PhasePins[i]), false))
	}

	return firstErr
}
