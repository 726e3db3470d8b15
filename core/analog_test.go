package core

import (
	"testing"
)

func analogSetup(t *testing.T) (*mockADC, *Motor) {
	t.Helper()
	_, _, adc := installMockHAL(DefaultCycleTicks)
	ResetSpeedPots()
	ResetFirmwareState()
	globalRegistry = NewCommandRegistry()
	globalTransport = nil

	cfg := DefaultMotorConfig()
	cfg.ManualControl = true
	m, err := NewMotor(1, cfg, DefaultCycleTicks)
	if err != nil {
		t.Fatalf("NewMotor: %v", err)
	}
	return adc, m
}

func configPot(t *testing.T, potOID, motorOID, pin uint32) *SpeedPot {
	t.Helper()
	data := encodeArgs(potOID, motorOID, pin)
	if err := handleConfigSpeedPot(&data); err != nil {
		t.Fatalf("config_speed_pot: %v", err)
	}
	pot, ok := speedPots[uint8(potOID)]
	if !ok {
		t.Fatal("pot not registered after config")
	}
	return pot
}

func queryPot(t *testing.T, potOID uint32, sampleCount, rangeCheckCount uint32, minValue, maxValue uint32) {
	t.Helper()
	data := encodeArgs(potOID, 0 /* clock */, 10 /* sample_ticks */, sampleCount,
		1000 /* rest_ticks */, minValue, maxValue, rangeCheckCount)
	if err := handleQuerySpeedPot(&data); err != nil {
		t.Fatalf("query_speed_pot: %v", err)
	}
}

func TestSpeedPotConfig(t *testing.T) {
	adc, _ := analogSetup(t)
	pot := configPot(t, 0, 1, 26)

	if pot.MotorOID != 1 || pot.Pin != 26 {
		t.Errorf("pot fields = %+v", pot)
	}
	if !adc.configured[ADCChannelID(26)] {
		t.Error("ADC channel not configured")
	}
	if pot.State != PotStateReady {
		t.Errorf("fresh pot state = %d, want ready", pot.State)
	}
}

func TestSpeedPotSamplingAppliesDuty(t *testing.T) {
	adc, m := analogSetup(t)
	pot := configPot(t, 0, 1, 26)

	// Mid-scale wiper: 2048 of 4096. Four samples per cycle.
	adc.values[ADCChannelID(26)] = 2048
	queryPot(t, 0, 4, 0, 0, 65535)

	if pot.State != PotStateSampling {
		t.Fatalf("pot state = %d, want sampling", pot.State)
	}

	for i := 0; i < 4; i++ {
		res := speedPotTimerHandler(&pot.Timer)
		if res != SF_RESCHEDULE {
			t.Fatalf("sample %d: handler returned %d, want reschedule", i, res)
		}
	}

	if pot.State != PotStateReportPending {
		t.Fatalf("pot state after cycle = %d, want report pending", pot.State)
	}
	if pot.PendingValue != 4*2048 {
		t.Errorf("pending sum = %d, want %d", pot.PendingValue, 4*2048)
	}

	SpeedPotTask()

	// avg 2048 over a 4096 span maps to half the PWM cycle.
	want := uint32(2048) * DefaultCycleTicks / 4096
	m.mu.Lock()
	got := m.manualDuty
	m.mu.Unlock()
	if got != want {
		t.Errorf("manual duty = %d, want %d", got, want)
	}
	if pot.State != PotStateReady {
		t.Errorf("pot state after task = %d, want ready", pot.State)
	}
}

func TestSpeedPotTaskIdleWithoutWake(t *testing.T) {
	_, m := analogSetup(t)
	configPot(t, 0, 1, 26)

	SpeedPotTask() // no wake flag, must be a no-op

	m.mu.Lock()
	got := m.manualDuty
	m.mu.Unlock()
	if got != 0 {
		t.Errorf("duty changed without a completed cycle: %d", got)
	}
}

func TestSpeedPotZeroSampleCountStops(t *testing.T) {
	_, _ = analogSetup(t)
	pot := configPot(t, 0, 1, 26)

	queryPot(t, 0, 0, 0, 0, 65535)

	if pot.State != PotStateReady {
		t.Errorf("pot state = %d, want ready (no sampling)", pot.State)
	}
}

func TestSpeedPotRangeCheckShutsDown(t *testing.T) {
	adc, _ := analogSetup(t)
	pot := configPot(t, 0, 1, 26)

	// Wiper shorted to the rail: sum 4095 with min 100 demanded.
	adc.values[ADCChannelID(26)] = 4095
	queryPot(t, 0, 1, 0 /* first strike */, 8000, 65535)

	speedPotTimerHandler(&pot.Timer)

	if !IsShutdown() {
		t.Error("out-of-range pot did not trigger shutdown")
	}
	ResetFirmwareState()
}

func TestSpeedPotRangeCheckCountsStrikes(t *testing.T) {
	adc, _ := analogSetup(t)
	pot := configPot(t, 0, 1, 26)

	adc.values[ADCChannelID(26)] = 4095
	queryPot(t, 0, 1, 3, 8000, 65535)

	for i := 0; i < 2; i++ {
		speedPotTimerHandler(&pot.Timer)
		if IsShutdown() {
			t.Fatalf("shutdown after %d strikes, want 3", i+1)
		}
		// Re-arm: report pending blocks further sampling until the task runs.
		pot.State = PotStateSampling
	}

	speedPotTimerHandler(&pot.Timer)
	if !IsShutdown() {
		t.Error("three strikes did not trigger shutdown")
	}
	ResetFirmwareState()
}

func TestShutdownAllAnalogIn(t *testing.T) {
	adc, _ := analogSetup(t)
	pot := configPot(t, 0, 1, 26)

	adc.values[ADCChannelID(26)] = 1000
	queryPot(t, 0, 4, 0, 0, 65535)

	ShutdownAllAnalogIn()

	if pot.State != PotStateReady {
		t.Errorf("pot state after shutdown = %d, want ready", pot.State)
	}
	if speedPotTimerHandler(&pot.Timer) != SF_DONE {
		t.Error("timer should stop after shutdown")
	}
}
