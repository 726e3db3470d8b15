package core

import (
	"testing"

	"brushless/protocol"
)

// encodeArgs builds a command payload the way the host frames it.
func encodeArgs(values ...uint32) []byte {
	output := protocol.NewScratchOutput()
	for _, v := range values {
		protocol.EncodeVLQUint(output, v)
	}
	return output.Result()
}

func motorCommandsSetup(t *testing.T) {
	t.Helper()
	installMockHAL(DefaultCycleTicks)
	globalRegistry = NewCommandRegistry()
	globalTransport = nil
	InitMotorCommands()
}

func configMotor(t *testing.T, oid uint32) *Motor {
	t.Helper()
	data := encodeArgs(oid,
		4, 6, 8, // pwm_a pwm_b pwm_c
		5, 7, 9, // sd_a sd_b sd_c
		DefaultCycleTicks,
		uint32(DriveAsymmetric),
		uint32(RampLinear),
		0) // manual
	if err := handleConfigBLDC(&data); err != nil {
		t.Fatalf("config_bldc: %v", err)
	}
	m := GetMotor(uint8(oid))
	if m == nil {
		t.Fatal("motor not registered after config_bldc")
	}
	return m
}

func TestMotorCommandRegistration(t *testing.T) {
	motorCommandsSetup(t)

	for _, name := range []string{
		"config_bldc", "bldc_stop", "bldc_speed_increase",
		"bldc_speed_decrease", "bldc_set_duty", "query_bldc",
	} {
		cmd, ok := globalRegistry.GetCommandByName(name)
		if !ok {
			t.Errorf("command %s not registered", name)
			continue
		}
		if cmd.Handler == nil {
			t.Errorf("command %s has no handler", name)
		}
	}

	cmd, ok := globalRegistry.GetCommandByName("bldc_state")
	if !ok {
		t.Fatal("bldc_state response not registered")
	}
	if cmd.Handler != nil {
		t.Error("bldc_state should be a response, not a command")
	}
}

func TestConfigBLDC(t *testing.T) {
	motorCommandsSetup(t)
	m := configMotor(t, 3)

	if m.PhasePins != [NumPhases]PWMPin{4, 6, 8} {
		t.Errorf("phase pins = %v", m.PhasePins)
	}
	if m.GatePins != [NumPhases]GPIOPin{5, 7, 9} {
		t.Errorf("gate pins = %v", m.GatePins)
	}
	if m.CycleTicks() != DefaultCycleTicks {
		t.Errorf("cycle ticks = %d, want %d", m.CycleTicks(), DefaultCycleTicks)
	}
	if m.State() != MotorOff {
		t.Errorf("fresh motor state = %v, want off", m.State())
	}
	if !m.running {
		t.Error("motor timers not armed after config")
	}
}

func TestConfigBLDCDefaultsCycle(t *testing.T) {
	motorCommandsSetup(t)

	data := encodeArgs(0, 4, 6, 8, 5, 7, 9, 0 /* cycle */, 0, 0, 0)
	if err := handleConfigBLDC(&data); err != nil {
		t.Fatalf("config_bldc: %v", err)
	}
	m := GetMotor(0)
	if m.CycleTicks() != DefaultCycleTicks {
		t.Errorf("cycle ticks = %d, want default %d", m.CycleTicks(), DefaultCycleTicks)
	}
}

func TestBLDCSpeedAndStopCommands(t *testing.T) {
	motorCommandsSetup(t)
	m := configMotor(t, 0)

	data := encodeArgs(0)
	if err := handleBLDCSpeedIncrease(&data); err != nil {
		t.Fatalf("speed_increase: %v", err)
	}
	if m.State() != MotorRampUp {
		t.Errorf("state after speed_increase = %v, want ramp-up", m.State())
	}

	data = encodeArgs(0)
	if err := handleBLDCStop(&data); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m.State() != MotorOff {
		t.Errorf("state after stop = %v, want off", m.State())
	}
}

func TestBLDCSetDutyCommand(t *testing.T) {
	motorCommandsSetup(t)
	m := configMotor(t, 0)

	data := encodeArgs(0, 77)
	if err := handleBLDCSetDuty(&data); err != nil {
		t.Fatalf("set_duty: %v", err)
	}
	m.mu.Lock()
	got := m.manualDuty
	m.mu.Unlock()
	if got != 77 {
		t.Errorf("manual duty = %d, want 77", got)
	}
}

func TestMotorCommandsIgnoreUnknownOID(t *testing.T) {
	motorCommandsSetup(t)

	for _, handler := range []CommandHandler{
		handleBLDCStop, handleBLDCSpeedIncrease, handleBLDCSpeedDecrease, handleQueryBLDC,
	} {
		data := encodeArgs(99)
		if err := handler(&data); err != nil {
			t.Errorf("handler errored on unknown OID: %v", err)
		}
	}

	data := encodeArgs(99, 10)
	if err := handleBLDCSetDuty(&data); err != nil {
		t.Errorf("set_duty errored on unknown OID: %v", err)
	}
}

func TestQueryBLDCResponse(t *testing.T) {
	motorCommandsSetup(t)
	m := configMotor(t, 2)

	m.mu.Lock()
	m.state = MotorOn
	m.sector = 3
	m.commPeriod = 120
	m.dutyTarget = 60
	m.mu.Unlock()

	// Capture the response frame in a scratch buffer.
	out := protocol.NewScratchOutput()
	transport := protocol.NewTransport(out, nil)
	SetGlobalTransport(transport)
	defer SetGlobalTransport(nil)

	data := encodeArgs(2)
	if err := handleQueryBLDC(&data); err != nil {
		t.Fatalf("query_bldc: %v", err)
	}

	frame := out.Result()
	if len(frame) < protocol.MessageLengthMin {
		t.Fatalf("no frame emitted (%d bytes)", len(frame))
	}

	// Strip framing down to the payload: length and seq in front, CRC and
	// sync behind.
	payload := frame[protocol.MessageHeaderSize : len(frame)-protocol.MessageTrailerSize]
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		t.Fatalf("decode command id: %v", err)
	}
	stateCmd, _ := globalRegistry.GetCommandByName("bldc_state")
	if uint16(id) != stateCmd.ID {
		t.Fatalf("response command id = %d, want %d", id, stateCmd.ID)
	}

	want := []uint32{2, uint32(MotorOn), 3, 120, 60}
	for i, w := range want {
		v, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			t.Fatalf("decode field %d: %v", i, err)
		}
		if v != w {
			t.Errorf("field %d = %d, want %d", i, v, w)
		}
	}
}
