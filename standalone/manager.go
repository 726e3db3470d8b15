package standalone

import (
	"errors"

	"brushless/core"
	"brushless/standalone/config"
	"brushless/standalone/console"
)

// Manager runs the board without a host: a line console on USB drives
// the motor cores directly.
type Manager struct {
	cfg         *config.BenchConfig
	parser      *console.Parser
	interpreter *console.Interpreter

	// Serial interface
	inputBuffer  []byte
	outputBuffer []byte

	// Status
	initialized bool
	running     bool
}

// NewManager creates a standalone mode manager from JSON config data.
func NewManager(configData []byte) (*Manager, error) {
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}

	return NewManagerWithConfig(cfg)
}

// NewManagerWithConfig creates a manager with an existing config
func NewManagerWithConfig(cfg *config.BenchConfig) (*Manager, error) {
	mgr := &Manager{
		cfg:          cfg,
		parser:       console.NewParser(),
		inputBuffer:  make([]byte, 0, 256),
		outputBuffer: make([]byte, 0, 256),
	}
	mgr.interpreter = console.NewInterpreter(mgr.SendResponse)

	return mgr, nil
}

// Initialize brings up every configured motor. The HAL drivers must be
// registered before this runs.
func (m *Manager) Initialize() error {
	if m.initialized {
		return errors.New("already initialized")
	}

	for name, profile := range m.cfg.Motors {
		oid, err := parseOID(name)
		if err != nil {
			return err
		}

		cfg := motorConfigFor(profile)

		phasePins := [core.NumPhases]core.PWMPin{
			core.PWMPin(profile.PhasePins[0]),
			core.PWMPin(profile.PhasePins[1]),
			core.PWMPin(profile.PhasePins[2]),
		}
		gatePins := [core.NumPhases]core.GPIOPin{
			core.GPIOPin(profile.GatePins[0]),
			core.GPIOPin(profile.GatePins[1]),
			core.GPIOPin(profile.GatePins[2]),
		}

		if _, err := core.SetupMotor(oid, phasePins, gatePins, profile.CycleTicks, cfg); err != nil {
			return errors.New("motor " + name + ": " + err.Error())
		}
	}

	m.initialized = true
	return nil
}

// motorConfigFor translates a profile into the motor core's tuning,
// starting from the firmware defaults.
func motorConfigFor(profile config.MotorProfile) core.MotorConfig {
	cfg := core.DefaultMotorConfig()

	if profile.Drive == "complementary" {
		cfg.DriveMode = core.DriveComplementary
	}
	if profile.Ramp == "geometric" {
		cfg.RampMode = core.RampGeometric
	}
	cfg.ManualControl = profile.Manual

	if profile.RampStartPeriod != 0 {
		cfg.RampStartPeriod = profile.RampStartPeriod
	}
	if profile.HandoffPeriod != 0 {
		cfg.HandoffPeriod = profile.HandoffPeriod
	}
	if profile.ManualPeriodMin != 0 {
		cfg.ManualPeriodMin = profile.ManualPeriodMin
	}
	if profile.RampDuty != 0 {
		cfg.RampDuty = profile.RampDuty
	}
	if profile.RunDuty != 0 {
		cfg.RunDuty = profile.RunDuty
	}

	return cfg
}

func parseOID(name string) (uint8, error) {
	if len(name) == 0 {
		return 0, errors.New("empty motor name")
	}
	var v uint32
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '0' || c > '9' {
			return 0, errors.New("motor names must be numeric object IDs")
		}
		v = v*10 + uint32(c-'0')
	}
	if v > 255 {
		return 0, errors.New("motor object ID out of range")
	}
	return uint8(v), nil
}

// ProcessLine processes one console line
func (m *Manager) ProcessLine(line string) error {
	if !m.initialized {
		return errors.New("manager not initialized")
	}

	cmd, err := m.parser.ParseLine(line)
	if err != nil {
		return err
	}

	if cmd != nil {
		if err := m.interpreter.Execute(cmd); err != nil {
			return err
		}
	}

	return nil
}

// ProcessByte processes a single byte of input (for serial streaming)
func (m *Manager) ProcessByte(b byte) error {
	m.inputBuffer = append(m.inputBuffer, b)

	if b == '\n' || b == '\r' {
		line := string(m.inputBuffer)
		m.inputBuffer = m.inputBuffer[:0]

		// Remove trailing whitespace
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r' || line[len(line)-1] == ' ') {
			line = line[:len(line)-1]
		}

		if len(line) > 0 {
			if err := m.ProcessLine(line); err != nil {
				return err
			}

			m.SendResponse("ok\n")
		}
	}

	return nil
}

// SendResponse queues a response to be sent out the console
func (m *Manager) SendResponse(response string) {
	m.outputBuffer = append(m.outputBuffer, []byte(response)...)
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	if len(m.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// Start begins standalone operation
func (m *Manager) Start() error {
	if !m.initialized {
		return errors.New("manager not initialized")
	}

	m.running = true
	m.SendResponse("bldc standalone console ready\n")
	return nil
}

// Stop halts every motor
func (m *Manager) Stop() {
	m.running = false
	core.StopAllMotors()
}

// IsRunning returns whether the manager is running
func (m *Manager) IsRunning() bool {
	return m.running
}

// EmergencyStop drops every output and latches the shutdown flag.
func (m *Manager) EmergencyStop() {
	m.running = false
	core.TryShutdown("standalone emergency stop")
}
