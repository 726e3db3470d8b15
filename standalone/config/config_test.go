package config

import (
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	jsonData := []byte(`{
		"motors": {
			"0": {"phase_pins": [4, 6, 8], "gate_pins": [5, 7, 9]}
		}
	}`)

	cfg, err := LoadConfig(jsonData)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Mode != "standalone" {
		t.Errorf("mode = %q, want standalone", cfg.Mode)
	}

	motor := cfg.Motors["0"]
	if motor.Drive != "asymmetric" {
		t.Errorf("drive = %q, want asymmetric", motor.Drive)
	}
	if motor.Ramp != "linear" {
		t.Errorf("ramp = %q, want linear", motor.Ramp)
	}
}

func TestLoadConfigRejectsBadDrive(t *testing.T) {
	jsonData := []byte(`{
		"motors": {
			"0": {"phase_pins": [4, 6, 8], "gate_pins": [5, 7, 9], "drive": "sinusoidal"}
		}
	}`)

	if _, err := LoadConfig(jsonData); err == nil {
		t.Error("unknown drive mode should be rejected")
	}
}

func TestLoadConfigRejectsBadRampTuning(t *testing.T) {
	jsonData := []byte(`{
		"motors": {
			"0": {
				"phase_pins": [4, 6, 8], "gate_pins": [5, 7, 9],
				"ramp_start_period": 100, "handoff_period": 100
			}
		}
	}`)

	if _, err := LoadConfig(jsonData); err == nil {
		t.Error("hand-off period at the ramp start period should be rejected")
	}
}

func TestLoadConfigRejectsNoMotors(t *testing.T) {
	if _, err := LoadConfig([]byte(`{"motors": {}}`)); err == nil {
		t.Error("empty motor set should be rejected")
	}
}

func TestLoadConfigRejectsBadPins(t *testing.T) {
	jsonData := []byte(`{
		"motors": {
			"0": {"phase_pins": [4, 6, 99], "gate_pins": [5, 7, 9]}
		}
	}`)

	if _, err := LoadConfig(jsonData); err == nil {
		t.Error("out-of-range pin should be rejected")
	}
}

func TestDefaultBenchConfig(t *testing.T) {
	cfg := DefaultBenchConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config fails validation: %v", err)
	}

	if len(cfg.Motors) != 1 {
		t.Fatalf("default config has %d motors, want 1", len(cfg.Motors))
	}
}
