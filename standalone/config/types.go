package config

// MotorProfile describes one motor as wired on the bench: the three phase
// output pins, the three gate enable pins, and the commutation tuning.
// Zero tuning values pick the firmware defaults.
type MotorProfile struct {
	PhasePins [3]uint32 `json:"phase_pins"` // PWM-capable GPIO numbers
	GatePins  [3]uint32 `json:"gate_pins"`  // low-side gate enable lines

	CycleTicks uint32 `json:"cycle_ticks,omitempty"` // PWM cycle length

	Drive  string `json:"drive,omitempty"`  // "asymmetric" or "complementary"
	Ramp   string `json:"ramp,omitempty"`   // "linear" or "geometric"
	Manual bool   `json:"manual,omitempty"` // duty follows the pot / duty command

	// Ramp tuning overrides, in commutation period units.
	RampStartPeriod uint32 `json:"ramp_start_period,omitempty"`
	HandoffPeriod   uint32 `json:"handoff_period,omitempty"`
	ManualPeriodMin uint32 `json:"manual_period_min,omitempty"`

	// Duty targets in PWM ticks.
	RampDuty uint32 `json:"ramp_duty,omitempty"`
	RunDuty  uint32 `json:"run_duty,omitempty"`
}

// BenchConfig is the complete standalone-mode configuration: motors by
// object ID plus the optional speed potentiometer binding.
type BenchConfig struct {
	Mode   string                  `json:"mode,omitempty"`
	Motors map[string]MotorProfile `json:"motors"`

	// SpeedPotPin, when nonzero, samples a potentiometer on that ADC
	// channel and feeds the reading into motor 0's manual duty.
	SpeedPotPin uint32 `json:"speed_pot_pin,omitempty"`
}
