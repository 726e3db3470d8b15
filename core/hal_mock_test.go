package core

// Mock HAL drivers shared by the core tests. The phase PWM mock records
// every call in order so the tests can assert the disable/configure/enable
// bracketing around sector changes.

type mockGPIO struct {
	pins  map[GPIOPin]bool
	calls []gpioCall
}

type gpioCall struct {
	pin   GPIOPin
	value bool
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{pins: make(map[GPIOPin]bool)}
}

func (m *mockGPIO) ConfigureOutput(pin GPIOPin) error {
	m.pins[pin] = false
	return nil
}

func (m *mockGPIO) ConfigureInputPullUp(pin GPIOPin) error   { return nil }
func (m *mockGPIO) ConfigureInputPullDown(pin GPIOPin) error { return nil }

func (m *mockGPIO) SetPin(pin GPIOPin, value bool) error {
	m.pins[pin] = value
	m.calls = append(m.calls, gpioCall{pin, value})
	return nil
}

func (m *mockGPIO) GetPin(pin GPIOPin) (bool, error) {
	return m.pins[pin], nil
}

// pwmOp is one recorded phase PWM driver call.
type pwmOp struct {
	op      string // "pulse" or "enable"
	channel PhaseChannel
	width   uint32
	enabled bool
}

type mockPhasePWM struct {
	cycle   uint32
	pulse   [NumPhases]uint32
	enabled [NumPhases]bool
	ops     []pwmOp

	// failWrites, when set, is returned from every SetPulse and
	// SetEnabled call to simulate a dead PWM peripheral.
	failWrites error
}

func newMockPhasePWM(cycle uint32) *mockPhasePWM {
	return &mockPhasePWM{cycle: cycle}
}

func (m *mockPhasePWM) ConfigurePhases(pinA, pinB, pinC PWMPin, cycleTicks uint32) (uint32, error) {
	m.cycle = cycleTicks
	return cycleTicks, nil
}

func (m *mockPhasePWM) SetPulse(ch PhaseChannel, width uint32) error {
	if m.failWrites != nil {
		return m.failWrites
	}
	m.pulse[ch] = width
	m.ops = append(m.ops, pwmOp{op: "pulse", channel: ch, width: width})
	return nil
}

func (m *mockPhasePWM) SetEnabled(ch PhaseChannel, enabled bool) error {
	if m.failWrites != nil {
		return m.failWrites
	}
	m.enabled[ch] = enabled
	m.ops = append(m.ops, pwmOp{op: "enable", channel: ch, enabled: enabled})
	return nil
}

func (m *mockPhasePWM) CycleTicks() uint32 { return m.cycle }

type mockADC struct {
	values     map[ADCChannelID]uint16
	configured map[ADCChannelID]bool
}

func newMockADC() *mockADC {
	return &mockADC{
		values:     make(map[ADCChannelID]uint16),
		configured: make(map[ADCChannelID]bool),
	}
}

func (m *mockADC) ConfigureChannel(ch ADCChannelID) error {
	m.configured[ch] = true
	return nil
}

func (m *mockADC) ReadRaw(ch ADCChannelID) (ADCValue, error) {
	return ADCValue(m.values[ch]), nil
}

// installMockHAL wires fresh mocks into the HAL singletons and clears the
// motor registry so each test starts from a clean slate.
func installMockHAL(cycle uint32) (*mockGPIO, *mockPhasePWM, *mockADC) {
	gpio := newMockGPIO()
	pwm := newMockPhasePWM(cycle)
	adc := newMockADC()
	SetGPIODriver(gpio)
	SetPhasePWMDriver(pwm)
	SetADCDriver(adc)
	SetGateDriverFactory(nil)
	ResetMotors()
	ResetTimers()
	return gpio, pwm, adc
}
