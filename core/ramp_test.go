package core

import (
	"testing"
)

func rampTestMotor(t *testing.T, cfg MotorConfig) *Motor {
	t.Helper()
	installMockHAL(DefaultCycleTicks)
	m, err := NewMotor(0, cfg, DefaultCycleTicks)
	if err != nil {
		t.Fatalf("NewMotor: %v", err)
	}
	return m
}

func TestLinearRampReachesHandoff(t *testing.T) {
	cfg := DefaultMotorConfig()
	m := rampTestMotor(t, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	// One decrement per step from the standstill period down to the
	// hand-off threshold, then the step after reports arrival.
	steps := 0
	for !m.rampStep() {
		steps++
		if steps > 100000 {
			t.Fatal("ramp never reached hand-off")
		}
	}

	want := int(cfg.RampStartPeriod - cfg.HandoffPeriod + 1)
	if steps+1 != want {
		t.Errorf("ramp took %d steps, want %d", steps+1, want)
	}
	if m.commPeriod != cfg.HandoffPeriod {
		t.Errorf("period after ramp = %d, want %d", m.commPeriod, cfg.HandoffPeriod)
	}
}

func TestLinearRampMonotonic(t *testing.T) {
	m := rampTestMotor(t, DefaultMotorConfig())

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.commPeriod
	for i := 0; i < 1000; i++ {
		if m.rampStep() {
			break
		}
		if m.commPeriod > prev {
			t.Fatalf("period increased during ramp: %d -> %d", prev, m.commPeriod)
		}
		prev = m.commPeriod
	}
}

func TestRampNeverUndershootsHandoff(t *testing.T) {
	for _, mode := range []RampMode{RampLinear, RampGeometric} {
		cfg := DefaultMotorConfig()
		cfg.RampMode = mode
		m := rampTestMotor(t, cfg)

		m.mu.Lock()
		for i := 0; i < 1000000; i++ {
			if m.rampStep() {
				break
			}
			if m.commPeriod < cfg.HandoffPeriod {
				t.Fatalf("mode %d: period %d fell below hand-off %d", mode, m.commPeriod, cfg.HandoffPeriod)
			}
		}
		m.mu.Unlock()
	}
}

func TestGeometricRampTerminates(t *testing.T) {
	cfg := DefaultMotorConfig()
	cfg.RampMode = RampGeometric
	m := rampTestMotor(t, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	steps := 0
	for !m.rampStep() {
		steps++
		if steps > 10000000 {
			t.Fatal("geometric ramp never terminated")
		}
	}

	if m.commPeriod != cfg.HandoffPeriod {
		t.Errorf("period after ramp = %d, want %d", m.commPeriod, cfg.HandoffPeriod)
	}
	// The interval halves down to the configured floor and stays there.
	if m.rampStepInterval != cfg.RampStepMin {
		t.Errorf("final step interval = %d, want floor %d", m.rampStepInterval, cfg.RampStepMin)
	}
}

func TestGeometricRampAccelerates(t *testing.T) {
	cfg := DefaultMotorConfig()
	cfg.RampMode = RampGeometric
	m := rampTestMotor(t, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Count ticks between the first two decrements and between a later
	// pair; the gap must shrink.
	gaps := []int{}
	tick := 0
	last := -1
	prev := m.commPeriod
	for len(gaps) < 6 {
		if m.rampStep() {
			t.Fatal("ramp finished before enough decrements were observed")
		}
		tick++
		if m.commPeriod != prev {
			if last >= 0 {
				gaps = append(gaps, tick-last)
			}
			last = tick
			prev = m.commPeriod
		}
	}

	if gaps[len(gaps)-1] >= gaps[0] {
		t.Errorf("decrement gaps did not shrink: first %d, later %d", gaps[0], gaps[len(gaps)-1])
	}
}

func TestResetRampRestoresStandstill(t *testing.T) {
	cfg := DefaultMotorConfig()
	m := rampTestMotor(t, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < 100; i++ {
		m.rampStep()
	}
	if m.commPeriod == cfg.RampStartPeriod {
		t.Fatal("ramp did not move before reset")
	}

	m.resetRamp()
	if m.commPeriod != cfg.RampStartPeriod {
		t.Errorf("period after reset = %d, want %d", m.commPeriod, cfg.RampStartPeriod)
	}
	if m.rampStepInterval != cfg.RampStepStart || m.rampStepTm != cfg.RampStepStart {
		t.Error("ramp step counters not restored by reset")
	}
}
