package core

import (
	"errors"
	"testing"
)

func fsmTestMotor(t *testing.T, cfg MotorConfig) (*Motor, *mockGPIO, *mockPhasePWM) {
	t.Helper()
	gpio, pwm, _ := installMockHAL(DefaultCycleTicks)
	m, err := NewMotor(0, cfg, DefaultCycleTicks)
	if err != nil {
		t.Fatalf("NewMotor: %v", err)
	}
	m.PhasePins = [NumPhases]PWMPin{4, 6, 8}
	m.GatePins = [NumPhases]GPIOPin{5, 7, 9}
	return m, gpio, pwm
}

// tickUpdate drives the fixed-rate update handler directly, bypassing the
// scheduler.
func tickUpdate(m *Motor, n int) {
	for i := 0; i < n; i++ {
		m.updateEvent(&m.updateTimer)
	}
}

func tickComm(m *Motor, n int) {
	for i := 0; i < n; i++ {
		m.commEvent(&m.commTimer)
	}
}

func TestMotorInitialState(t *testing.T) {
	m, _, _ := fsmTestMotor(t, DefaultMotorConfig())

	if m.State() != MotorOff {
		t.Errorf("initial state = %v, want off", m.State())
	}
	if m.Duty() != 0 {
		t.Errorf("initial duty = %d, want 0", m.Duty())
	}
	if m.Period() != DefaultMotorConfig().RampStartPeriod {
		t.Errorf("initial period = %d, want standstill", m.Period())
	}
}

func TestSpeedIncreaseStartsRamp(t *testing.T) {
	m, _, _ := fsmTestMotor(t, DefaultMotorConfig())

	m.SpeedIncrease()
	if m.State() != MotorRampUp {
		t.Fatalf("state after start = %v, want ramp-up", m.State())
	}

	// First update tick raises the duty to the ramp target.
	tickUpdate(m, 1)
	if m.Duty() != DefaultMotorConfig().RampDuty {
		t.Errorf("ramp duty = %d, want %d", m.Duty(), DefaultMotorConfig().RampDuty)
	}
}

func TestSpeedDecreaseAlsoStartsFromStandstill(t *testing.T) {
	m, _, _ := fsmTestMotor(t, DefaultMotorConfig())

	m.SpeedDecrease()
	if m.State() != MotorRampUp {
		t.Errorf("state after SpeedDecrease from off = %v, want ramp-up", m.State())
	}
}

func TestRampHandoffToSteadyState(t *testing.T) {
	cfg := DefaultMotorConfig()
	m, _, _ := fsmTestMotor(t, cfg)

	m.SpeedIncrease()

	// One decrement per update tick; the arrival tick flips the state.
	ticks := int(cfg.RampStartPeriod - cfg.HandoffPeriod + 1)
	tickUpdate(m, ticks)

	if m.State() != MotorOn {
		t.Fatalf("state after %d ticks = %v, want on", ticks, m.State())
	}
	if m.Period() != cfg.HandoffPeriod {
		t.Errorf("period at hand-off = %d, want %d", m.Period(), cfg.HandoffPeriod)
	}
	if m.Duty() != cfg.RunDuty {
		t.Errorf("duty at hand-off = %d, want run duty %d", m.Duty(), cfg.RunDuty)
	}

	// One tick earlier it must still be ramping.
	m2, _, _ := fsmTestMotor(t, cfg)
	m2.SpeedIncrease()
	tickUpdate(m2, ticks-1)
	if m2.State() != MotorRampUp {
		t.Errorf("state one tick before hand-off = %v, want ramp-up", m2.State())
	}
}

func TestHandoffUsesManualDuty(t *testing.T) {
	cfg := DefaultMotorConfig()
	cfg.ManualControl = true
	m, _, _ := fsmTestMotor(t, cfg)

	m.SetManualDuty(42)
	m.SpeedIncrease()
	tickUpdate(m, int(cfg.RampStartPeriod-cfg.HandoffPeriod+1))

	if m.State() != MotorOn {
		t.Fatal("motor did not reach steady state")
	}
	if m.Duty() != 42 {
		t.Errorf("duty after hand-off = %d, want manual 42", m.Duty())
	}
}

func TestCommutationAdvancesAndWraps(t *testing.T) {
	m, _, _ := fsmTestMotor(t, DefaultMotorConfig())

	m.mu.Lock()
	m.state = MotorOn
	m.dutyTarget = 100
	m.mu.Unlock()

	start := m.Sector()
	tickComm(m, NumSectors)
	if m.Sector() != start {
		t.Errorf("sector after full revolution = %d, want %d", m.Sector(), start)
	}

	tickComm(m, 1)
	if m.Sector() != (start+1)%NumSectors {
		t.Errorf("sector did not advance by one step")
	}
}

func TestZeroDutyFreezesSectorAndDeEnergizes(t *testing.T) {
	m, gpio, pwm := fsmTestMotor(t, DefaultMotorConfig())

	m.mu.Lock()
	m.state = MotorOn
	m.dutyTarget = 100
	m.mu.Unlock()
	tickComm(m, 4)
	sector := m.Sector()

	m.Stop()
	tickComm(m, 5)

	if m.Sector() != sector {
		t.Errorf("sector moved while de-energized: %d -> %d", sector, m.Sector())
	}
	for i := 0; i < NumPhases; i++ {
		if pwm.enabled[i] {
			t.Errorf("channel %d enabled while duty is zero", i)
		}
		if gpio.pins[m.GatePins[i]] {
			t.Errorf("gate %d high while duty is zero", i)
		}
	}
}

func TestStopFromAnyState(t *testing.T) {
	for _, setup := range []func(*Motor){
		func(m *Motor) {}, // already off
		func(m *Motor) { m.SpeedIncrease() },
		func(m *Motor) {
			m.SpeedIncrease()
			tickUpdate(m, int(m.cfg.RampStartPeriod-m.cfg.HandoffPeriod+1))
		},
	} {
		m, _, _ := fsmTestMotor(t, DefaultMotorConfig())
		setup(m)

		m.Stop()
		if m.State() != MotorOff {
			t.Errorf("state after stop = %v, want off", m.State())
		}
		if m.Duty() != 0 {
			t.Errorf("duty after stop = %d, want 0", m.Duty())
		}
	}
}

func TestOffStateRestoresStandstillPeriod(t *testing.T) {
	cfg := DefaultMotorConfig()
	m, _, _ := fsmTestMotor(t, cfg)

	m.SpeedIncrease()
	tickUpdate(m, 50)
	if m.Period() == cfg.RampStartPeriod {
		t.Fatal("ramp did not move")
	}

	m.Stop()
	tickUpdate(m, 1)
	if m.Period() != cfg.RampStartPeriod {
		t.Errorf("period after off-state tick = %d, want %d", m.Period(), cfg.RampStartPeriod)
	}
}

func TestSpeedAdjustClamps(t *testing.T) {
	cfg := DefaultMotorConfig()
	m, _, _ := fsmTestMotor(t, cfg)

	m.mu.Lock()
	m.state = MotorOn
	m.commPeriod = cfg.ManualPeriodMin + 2
	m.mu.Unlock()

	for i := 0; i < 100; i++ {
		m.SpeedIncrease()
	}
	if m.Period() != cfg.ManualPeriodMin {
		t.Errorf("period after many increases = %d, want clamp %d", m.Period(), cfg.ManualPeriodMin)
	}

	for i := 0; i < 10000; i++ {
		m.SpeedDecrease()
	}
	if m.Period() != cfg.RampStartPeriod {
		t.Errorf("period after many decreases = %d, want clamp %d", m.Period(), cfg.RampStartPeriod)
	}
}

func TestSpeedAdjustIgnoredDuringRamp(t *testing.T) {
	m, _, _ := fsmTestMotor(t, DefaultMotorConfig())

	m.SpeedIncrease()
	tickUpdate(m, 10)
	period := m.Period()

	m.SpeedIncrease()
	m.SpeedDecrease()
	if m.Period() != period {
		t.Errorf("speed adjust changed the period during ramp-up: %d -> %d", period, m.Period())
	}
	if m.State() != MotorRampUp {
		t.Errorf("state changed during ramp-up: %v", m.State())
	}
}

func TestSetManualDutyClampedToCycle(t *testing.T) {
	m, _, _ := fsmTestMotor(t, DefaultMotorConfig())

	m.SetManualDuty(DefaultCycleTicks + 50)
	m.mu.Lock()
	got := m.manualDuty
	m.mu.Unlock()
	if got != DefaultCycleTicks-1 {
		t.Errorf("manual duty = %d, want clamp %d", got, DefaultCycleTicks-1)
	}
}

func TestMotorConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MotorConfig)
	}{
		{"handoff above start", func(c *MotorConfig) { c.HandoffPeriod = c.RampStartPeriod + 1 }},
		{"handoff equals start", func(c *MotorConfig) { c.HandoffPeriod = c.RampStartPeriod }},
		{"zero handoff", func(c *MotorConfig) { c.HandoffPeriod = 0 }},
		{"manual floor above handoff", func(c *MotorConfig) { c.ManualPeriodMin = c.HandoffPeriod + 1 }},
		{"zero manual floor", func(c *MotorConfig) { c.ManualPeriodMin = 0 }},
		{"geometric zero floor", func(c *MotorConfig) {
			c.RampMode = RampGeometric
			c.RampStepMin = 0
		}},
		{"ramp duty at cycle", func(c *MotorConfig) { c.RampDuty = DefaultCycleTicks }},
		{"run duty at cycle", func(c *MotorConfig) { c.RunDuty = DefaultCycleTicks }},
	}

	for _, tc := range tests {
		cfg := DefaultMotorConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(DefaultCycleTicks); err == nil {
			t.Errorf("%s: Validate accepted an invalid config", tc.name)
		}
	}

	cfg := DefaultMotorConfig()
	if err := cfg.Validate(DefaultCycleTicks); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func TestStopAllMotors(t *testing.T) {
	gpio, pwm, _ := installMockHAL(DefaultCycleTicks)

	for oid := uint8(0); oid < 2; oid++ {
		m, err := NewMotor(oid, DefaultMotorConfig(), DefaultCycleTicks)
		if err != nil {
			t.Fatalf("NewMotor(%d): %v", oid, err)
		}
		m.PhasePins = [NumPhases]PWMPin{4, 6, 8}
		m.GatePins = [NumPhases]GPIOPin{5, 7, 9}
		m.mu.Lock()
		m.state = MotorOn
		m.dutyTarget = 100
		m.mu.Unlock()
		m.commEvent(&m.commTimer)
	}

	StopAllMotors()

	for oid := uint8(0); oid < 2; oid++ {
		m := GetMotor(oid)
		if m.State() != MotorOff {
			t.Errorf("motor %d not off after StopAllMotors", oid)
		}
	}
	for i := 0; i < NumPhases; i++ {
		if pwm.enabled[i] {
			t.Errorf("channel %d still enabled after StopAllMotors", i)
		}
	}
	for pin, high := range gpio.pins {
		if high {
			t.Errorf("pin %d still high after StopAllMotors", pin)
		}
	}
}

// A write failure on the commutation tick must latch the firmware
// shutdown and stop the timer rather than keep switching a bridge whose
// state is unknown.
func TestCommEventWriteErrorShutsDown(t *testing.T) {
	ResetFirmwareState()
	m, _, pwm := fsmTestMotor(t, DefaultMotorConfig())

	m.SpeedIncrease()
	tickUpdate(m, 1)

	pwm.failWrites = errors.New("pwm write timeout")
	if res := m.commEvent(&m.commTimer); res != SF_DONE {
		t.Errorf("commEvent after write failure = %d, want done", res)
	}
	if !IsShutdown() {
		t.Error("write failure did not latch the shutdown")
	}
	ResetFirmwareState()
}
