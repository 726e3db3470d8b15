package core

// PWMPin identifies a hardware pin capable of PWM output.
type PWMPin uint32

// PhaseChannel indexes one of the three motor phases.
type PhaseChannel uint8

const (
	PhaseA PhaseChannel = iota
	PhaseB
	PhaseC

	NumPhases = 3
)

// PhasePWMDriver is the modulation interface the commutation core drives.
// One channel per motor phase. A disabled channel must leave its pin
// high-impedance so the floating phase's back-EMF can be observed.
//
// Implementations must apply SetPulse at a PWM period boundary (glitch-free
// update); a pulse change landing mid-cycle shows up as a voltage spike on
// the motor winding.
type PhasePWMDriver interface {
	// ConfigurePhases binds the three phase output pins and sets the PWM
	// cycle length in timer ticks. Returns the cycle length actually
	// programmed (hardware may quantize it).
	ConfigurePhases(pinA, pinB, pinC PWMPin, cycleTicks uint32) (uint32, error)

	// SetPulse sets the channel's pulse width, 0..cycleTicks.
	SetPulse(ch PhaseChannel, width uint32) error

	// SetEnabled connects (true) or floats (false) the channel's output
	// stage. Disabling must be immediate, not deferred to a period boundary.
	SetEnabled(ch PhaseChannel, enabled bool) error

	// CycleTicks returns the programmed PWM cycle length.
	CycleTicks() uint32
}

// Global singleton used by core code.
var phasePWMDriver PhasePWMDriver

// SetPhasePWMDriver is called by target-specific code to register its driver.
func SetPhasePWMDriver(d PhasePWMDriver) {
	phasePWMDriver = d
}

// MustPhasePWM returns the configured driver or panics if missing.
func MustPhasePWM() PhasePWMDriver {
	if phasePWMDriver == nil {
		panic("phase PWM driver not configured")
	}
	return phasePWMDriver
}
