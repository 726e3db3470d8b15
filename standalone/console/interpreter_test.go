package console

import (
	"strings"
	"testing"

	"brushless/core"
)

type fakeGPIO struct {
	pins map[core.GPIOPin]bool
}

func (g *fakeGPIO) ConfigureOutput(pin core.GPIOPin) error        { return nil }
func (g *fakeGPIO) ConfigureInputPullUp(pin core.GPIOPin) error   { return nil }
func (g *fakeGPIO) ConfigureInputPullDown(pin core.GPIOPin) error { return nil }
func (g *fakeGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.pins[pin] = value
	return nil
}
func (g *fakeGPIO) GetPin(pin core.GPIOPin) (bool, error) { return g.pins[pin], nil }

type fakePhasePWM struct {
	cycle uint32
}

func (p *fakePhasePWM) ConfigurePhases(a, b, c core.PWMPin, cycleTicks uint32) (uint32, error) {
	p.cycle = cycleTicks
	return cycleTicks, nil
}
func (p *fakePhasePWM) SetPulse(ch core.PhaseChannel, width uint32) error   { return nil }
func (p *fakePhasePWM) SetEnabled(ch core.PhaseChannel, enabled bool) error { return nil }
func (p *fakePhasePWM) CycleTicks() uint32                                  { return p.cycle }

func consoleTestMotor(t *testing.T) *core.Motor {
	t.Helper()
	core.SetGPIODriver(&fakeGPIO{pins: make(map[core.GPIOPin]bool)})
	core.SetPhasePWMDriver(&fakePhasePWM{})
	core.SetGateDriverFactory(nil)
	core.ResetMotors()
	core.ResetTimers()
	core.ResetFirmwareState()

	cfg := core.DefaultMotorConfig()
	cfg.ManualControl = true
	m, err := core.SetupMotor(0,
		[core.NumPhases]core.PWMPin{4, 6, 8},
		[core.NumPhases]core.GPIOPin{5, 7, 9},
		0, cfg)
	if err != nil {
		t.Fatalf("SetupMotor: %v", err)
	}
	return m
}

func execute(t *testing.T, interp *Interpreter, line string) error {
	t.Helper()
	cmd, err := NewParser().ParseLine(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return interp.Execute(cmd)
}

func TestInterpreterStartStop(t *testing.T) {
	m := consoleTestMotor(t)
	interp := NewInterpreter(nil)

	if err := execute(t, interp, "M3 P0 S100"); err != nil {
		t.Fatalf("M3: %v", err)
	}
	if m.State() != core.MotorRampUp {
		t.Errorf("state after M3 = %v, want rampup", m.State())
	}

	if err := execute(t, interp, "M5 P0"); err != nil {
		t.Fatalf("M5: %v", err)
	}
	if m.State() != core.MotorOff {
		t.Errorf("state after M5 = %v, want off", m.State())
	}
}

func TestInterpreterDutyRequiresValue(t *testing.T) {
	consoleTestMotor(t)
	interp := NewInterpreter(nil)

	if err := execute(t, interp, "M4 P0"); err == nil {
		t.Error("M4 without S should fail")
	}
	if err := execute(t, interp, "M4 P0 S80"); err != nil {
		t.Errorf("M4 with S: %v", err)
	}
}

func TestInterpreterUnknownMotor(t *testing.T) {
	consoleTestMotor(t)
	interp := NewInterpreter(nil)

	if err := execute(t, interp, "M3 P7"); err == nil {
		t.Error("M3 on unconfigured motor should fail")
	}
}

func TestInterpreterReport(t *testing.T) {
	consoleTestMotor(t)

	var out strings.Builder
	interp := NewInterpreter(func(s string) { out.WriteString(s) })

	if err := execute(t, interp, "M114 P0"); err != nil {
		t.Fatalf("M114: %v", err)
	}

	report := out.String()
	if !strings.Contains(report, "motor 0") || !strings.Contains(report, "off") {
		t.Errorf("unexpected report: %q", report)
	}
}

func TestInterpreterEmergencyStop(t *testing.T) {
	m := consoleTestMotor(t)
	interp := NewInterpreter(nil)

	if err := execute(t, interp, "M3 P0"); err != nil {
		t.Fatalf("M3: %v", err)
	}
	if err := execute(t, interp, "M112"); err != nil {
		t.Fatalf("M112: %v", err)
	}

	if m.State() != core.MotorOff {
		t.Errorf("state after M112 = %v, want off", m.State())
	}
	if !core.IsShutdown() {
		t.Error("M112 should latch the shutdown flag")
	}
}
