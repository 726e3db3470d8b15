package standalone

import (
	"strings"
	"testing"

	"brushless/core"
	"brushless/standalone/config"
)

type benchGPIO struct {
	pins map[core.GPIOPin]bool
}

func (g *benchGPIO) ConfigureOutput(pin core.GPIOPin) error        { return nil }
func (g *benchGPIO) ConfigureInputPullUp(pin core.GPIOPin) error   { return nil }
func (g *benchGPIO) ConfigureInputPullDown(pin core.GPIOPin) error { return nil }
func (g *benchGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.pins[pin] = value
	return nil
}
func (g *benchGPIO) GetPin(pin core.GPIOPin) (bool, error) { return g.pins[pin], nil }

type benchPWM struct {
	cycle uint32
}

func (p *benchPWM) ConfigurePhases(a, b, c core.PWMPin, cycleTicks uint32) (uint32, error) {
	p.cycle = cycleTicks
	return cycleTicks, nil
}
func (p *benchPWM) SetPulse(ch core.PhaseChannel, width uint32) error   { return nil }
func (p *benchPWM) SetEnabled(ch core.PhaseChannel, enabled bool) error { return nil }
func (p *benchPWM) CycleTicks() uint32                                  { return p.cycle }

func benchManager(t *testing.T) *Manager {
	t.Helper()
	core.SetGPIODriver(&benchGPIO{pins: make(map[core.GPIOPin]bool)})
	core.SetPhasePWMDriver(&benchPWM{})
	core.SetGateDriverFactory(nil)
	core.ResetMotors()
	core.ResetTimers()
	core.ResetFirmwareState()

	mgr, err := NewManagerWithConfig(config.DefaultBenchConfig())
	if err != nil {
		t.Fatalf("NewManagerWithConfig: %v", err)
	}
	if err := mgr.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return mgr
}

func TestManagerFromJSONConfig(t *testing.T) {
	core.SetGPIODriver(&benchGPIO{pins: make(map[core.GPIOPin]bool)})
	core.SetPhasePWMDriver(&benchPWM{})
	core.SetGateDriverFactory(nil)
	core.ResetMotors()
	core.ResetTimers()
	core.ResetFirmwareState()

	mgr, err := NewManager([]byte(`{
		"motors": {
			"0": {
				"phase_pins": [2, 4, 6],
				"gate_pins": [3, 5, 7],
				"ramp": "geometric"
			}
		}
	}`))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := mgr.ProcessLine("M3 P0"); err != nil {
		t.Fatalf("M3: %v", err)
	}
	if core.GetMotor(0).State() != core.MotorRampUp {
		t.Error("configured motor did not start")
	}
}

func TestManagerInitializeCreatesMotors(t *testing.T) {
	benchManager(t)

	if core.GetMotor(0) == nil {
		t.Fatal("motor 0 not created")
	}
}

func TestManagerConsoleRoundTrip(t *testing.T) {
	mgr := benchManager(t)
	if err := mgr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mgr.GetOutput() // drain the banner

	for _, b := range []byte("M3 P0 S100\n") {
		if err := mgr.ProcessByte(b); err != nil {
			t.Fatalf("ProcessByte: %v", err)
		}
	}

	out := string(mgr.GetOutput())
	if !strings.Contains(out, "ok") {
		t.Errorf("no ok response, got %q", out)
	}

	if core.GetMotor(0).State() != core.MotorRampUp {
		t.Error("M3 did not start the motor")
	}
}

func TestManagerReportLine(t *testing.T) {
	mgr := benchManager(t)

	if err := mgr.ProcessLine("M114 P0"); err != nil {
		t.Fatalf("M114: %v", err)
	}

	out := string(mgr.GetOutput())
	if !strings.Contains(out, "motor 0") {
		t.Errorf("missing report, got %q", out)
	}
}

func TestManagerStopHaltsMotors(t *testing.T) {
	mgr := benchManager(t)

	if err := mgr.ProcessLine("M3 P0"); err != nil {
		t.Fatalf("M3: %v", err)
	}
	mgr.Stop()

	if core.GetMotor(0).State() != core.MotorOff {
		t.Error("Stop should halt every motor")
	}
}

func TestManagerRejectsUninitialized(t *testing.T) {
	mgr, err := NewManagerWithConfig(config.DefaultBenchConfig())
	if err != nil {
		t.Fatalf("NewManagerWithConfig: %v", err)
	}

	if err := mgr.ProcessLine("M3"); err == nil {
		t.Error("ProcessLine before Initialize should fail")
	}
	if err := mgr.Start(); err == nil {
		t.Error("Start before Initialize should fail")
	}
}
