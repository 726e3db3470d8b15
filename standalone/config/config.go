package config

import (
	"encoding/json"
	"errors"
)

// LoadConfig parses a JSON configuration string and returns a BenchConfig
func LoadConfig(jsonData []byte) (*BenchConfig, error) {
	var config BenchConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *BenchConfig) {
	if config.Mode == "" {
		config.Mode = "standalone"
	}

	for name, motor := range config.Motors {
		if motor.Drive == "" {
			motor.Drive = "asymmetric"
		}
		if motor.Ramp == "" {
			motor.Ramp = "linear"
		}
		config.Motors[name] = motor
	}
}

// Validate rejects configurations the firmware would refuse or, worse,
// run badly: an unknown drive mode, or ramp tuning that can never hand
// off. Full tuning validation happens again in the motor core against
// the achieved PWM cycle; this pass catches what can be caught before
// touching hardware.
func Validate(config *BenchConfig) error {
	if len(config.Motors) == 0 {
		return errors.New("no motors configured")
	}

	for name, motor := range config.Motors {
		switch motor.Drive {
		case "asymmetric", "complementary":
		default:
			return errors.New("motor " + name + ": unknown drive mode " + motor.Drive)
		}

		switch motor.Ramp {
		case "linear", "geometric":
		default:
			return errors.New("motor " + name + ": unknown ramp mode " + motor.Ramp)
		}

		if motor.RampStartPeriod != 0 && motor.HandoffPeriod >= motor.RampStartPeriod {
			return errors.New("motor " + name + ": hand-off period must be below the ramp start period")
		}

		for i := 0; i < 3; i++ {
			if motor.PhasePins[i] > 29 || motor.GatePins[i] > 29 {
				return errors.New("motor " + name + ": pin number out of range")
			}
		}
	}

	return nil
}

// DefaultBenchConfig returns the configuration for the reference bench:
// one motor on gpio4/6/8 (phases) and gpio5/7/9 (gates), speed pot on
// ADC0.
func DefaultBenchConfig() *BenchConfig {
	return &BenchConfig{
		Mode: "standalone",
		Motors: map[string]MotorProfile{
			"0": {
				PhasePins: [3]uint32{4, 6, 8},
				GatePins:  [3]uint32{5, 7, 9},
				Drive:     "asymmetric",
				Ramp:      "linear",
				Manual:    true,
			},
		},
		SpeedPotPin: 26, // gpio26 = ADC0
	}
}
