// BLDC commutation state machine.
//
// A motor runs open loop: from standstill it is stepped through the sector
// sequence at a slowly decreasing commutation period until the rotor locks
// to the rotating field and the period reaches the hand-off threshold;
// from there commutation continues at a fixed rate under user speed
// control. There is no back-EMF feedback yet; the hand-off threshold marks
// where closed-loop control would take over.
package core

import (
	"errors"
	"sync"
)

// MotorState is the top-level operating state of one motor.
type MotorState uint8

const (
	MotorOff MotorState = iota
	MotorRampUp
	MotorOn
)

func (s MotorState) String() string {
	switch s {
	case MotorOff:
		return "off"
	case MotorRampUp:
		return "rampup"
	case MotorOn:
		return "on"
	}
	return "unknown"
}

const (
	// periodUnitTicks converts a commutation period count to timer ticks.
	// Period counts are 8 microsecond units, a carry-over from the timer
	// granularity the commutation tables were tuned against.
	periodUnitTicks = 8 * (TimerFreq / 1000000)

	// updateTickTicks is the fixed period of the state-machine update
	// (ramp) tick: 1 ms.
	updateTickTicks = 1000 * (TimerFreq / 1000000)

	// DefaultCycleTicks is the default PWM cycle length.
	DefaultCycleTicks = 255
)

// MotorConfig holds the static tuning of one motor. All periods are in
// 8 microsecond units, all duties in PWM timer ticks.
type MotorConfig struct {
	RampStartPeriod uint32 // commutation period at standstill
	HandoffPeriod   uint32 // period at which open-loop ramp-up completes
	ManualPeriodMin uint32 // fastest period reachable by manual speed-up

	RampMode      RampMode
	RampStepStart uint32 // initial countdown interval (geometric mode)
	RampStepMin   uint32 // countdown interval floor (geometric mode)

	DriveMode DriveMode

	RampDuty      uint32 // duty target held while ramping
	RunDuty       uint32 // duty target once handed off
	ManualControl bool   // duty follows SetManualDuty while on
}

// DefaultMotorConfig returns the tuning for the reference motor: ramp from
// a 24.6 ms electrical cycle down to 3.8 ms, ramping at half duty and
// running at quarter duty.
func DefaultMotorConfig() MotorConfig {
	return MotorConfig{
		RampStartPeriod: 512,
		HandoffPeriod:   80,
		ManualPeriodMin: 64,
		RampMode:        RampLinear,
		RampStepStart:   64,
		RampStepMin:     2,
		DriveMode:       DriveAsymmetric,
		RampDuty:        DefaultCycleTicks / 2,
		RunDuty:         DefaultCycleTicks / 4,
	}
}

// Validate checks the config contract once, before the motor is allowed to
// run. A hand-off threshold at or above the start period would ramp
// forever; these are configuration bugs, not runtime conditions.
func (c *MotorConfig) Validate(cycleTicks uint32) error {
	if c.HandoffPeriod == 0 || c.HandoffPeriod >= c.RampStartPeriod {
		return errors.New("hand-off period must be below the ramp start period")
	}
	if c.ManualPeriodMin == 0 || c.ManualPeriodMin > c.HandoffPeriod {
		return errors.New("manual period limit must be nonzero and at most the hand-off period")
	}
	if c.RampMode == RampGeometric && c.RampStepMin == 0 {
		return errors.New("ramp step floor must be at least 1")
	}
	if c.RampDuty >= cycleTicks || c.RunDuty >= cycleTicks {
		return errors.New("duty targets must be below the PWM cycle length")
	}
	return nil
}

// Motor is one commutation controller instance. The operating state, the
// commutation period, the sector and the duty target are shared between
// the tick handlers and the command entry points; m.mu makes each
// read-modify-write atomic as a unit.
type Motor struct {
	OID uint8

	PhasePins [NumPhases]PWMPin  // phase outputs, also rail-driven as GPIO
	GatePins  [NumPhases]GPIOPin // low-side gate driver enable (/SD) lines

	// gates, when non-nil, replaces per-pin GPIO writes for the gate lines
	// with a platform backend that switches them atomically.
	gates GateDriver

	mu         sync.Mutex
	state      MotorState
	sector     uint8
	commPeriod uint32
	dutyTarget uint32
	manualDuty uint32

	rampStepInterval uint32
	rampStepTm       uint32

	cfg        MotorConfig
	cycleTicks uint32

	updateTimer Timer
	commTimer   Timer
	running     bool
}

// Motor registry, keyed by OID. One motor per controller in practice, but
// the command surface carries an OID like every other object.
var bldcMotors = make(map[uint8]*Motor)

// GetMotor returns a configured motor by OID, or nil.
func GetMotor(oid uint8) *Motor {
	return bldcMotors[oid]
}

// NewMotor validates the config, registers the motor and arms its timers.
// Both timers run from configuration on: the update tick keeps the off
// state's period reset current, and the commutation tick re-asserts the
// de-energized outputs while the duty target is zero.
func NewMotor(oid uint8, cfg MotorConfig, cycleTicks uint32) (*Motor, error) {
	if cycleTicks == 0 {
		cycleTicks = DefaultCycleTicks
	}
	if err := cfg.Validate(cycleTicks); err != nil {
		return nil, err
	}

	m := &Motor{
		OID:        oid,
		state:      MotorOff,
		cfg:        cfg,
		cycleTicks: cycleTicks,
	}
	m.resetRamp()

	m.updateTimer.Handler = m.updateEvent
	m.commTimer.Handler = m.commEvent

	bldcMotors[oid] = m
	return m, nil
}

// StartTicking schedules both motor timers against the system clock.
// Separate from NewMotor so tests can drive the handlers directly.
func (m *Motor) StartTicking() {
	if m.running {
		return
	}
	m.running = true

	now := GetTime()
	m.updateTimer.Next = nil
	m.updateTimer.WakeTime = now + updateTickTicks
	ScheduleTimer(&m.updateTimer)

	m.commTimer.Next = nil
	m.commTimer.WakeTime = now + m.periodTicks()
	ScheduleTimer(&m.commTimer)
}

// periodTicks returns the current commutation period in timer ticks.
func (m *Motor) periodTicks() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commPeriod * periodUnitTicks
}

// updateEvent is the fixed-rate state machine update. While ramping it
// advances the ramp; the commutation timer picks up the shrunken period on
// its next reschedule, which is the "reprogram the tick source" half of
// the contract.
func (m *Motor) updateEvent(t *Timer) uint8 {
	m.mu.Lock()

	switch m.state {
	case MotorOff:
		// Park the ramp at the slow end, ready for the next start.
		m.resetRamp()

	case MotorOn:
		if m.cfg.ManualControl {
			m.dutyTarget = m.manualDuty
		}

	case MotorRampUp:
		m.dutyTarget = m.cfg.RampDuty
		if m.rampStep() {
			m.state = MotorOn
			if m.cfg.ManualControl {
				m.dutyTarget = m.manualDuty
			} else {
				m.dutyTarget = m.cfg.RunDuty
			}
			RecordEvent(EvtHandoff, m.OID, t.WakeTime, m.commPeriod, m.dutyTarget)
		}
	}

	m.mu.Unlock()

	t.WakeTime += updateTickTicks
	return SF_RESCHEDULE
}

// commEvent is the commutation tick: advance the sector and push the new
// phase states out, then reschedule at the current period. A zero duty
// target de-energizes the bridge and freezes the sector.
func (m *Motor) commEvent(t *Timer) uint8 {
	m.mu.Lock()

	var err error
	if m.dutyTarget > 0 {
		m.sector = (m.sector + 1) % NumSectors
		entry := SectorEntryFor(m.cfg.DriveMode, m.sector)
		err = m.applySector(entry, m.dutyTarget)
		if err == nil {
			RecordEvent(EvtCommStep, m.OID, t.WakeTime, uint32(m.sector), m.commPeriod)
		}
	} else {
		err = m.applyAllOff()
	}

	period := m.commPeriod * periodUnitTicks
	m.mu.Unlock()

	if err != nil {
		// A failed output write means the bridge state is no longer
		// known; latch the shutdown and stop commutating.
		TryShutdown("phase output error: " + err.Error())
		return SF_DONE
	}

	t.WakeTime += period
	return SF_RESCHEDULE
}

// Stop is honored unconditionally from any state. The duty target is
// zeroed immediately; the next commutation tick de-energizes the bridge
// and the next off-state update restores the standstill period.
func (m *Motor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = MotorOff
	m.dutyTarget = 0
	RecordEvent(EvtStop, m.OID, GetTime(), 0, 0)
}

// SpeedIncrease starts the motor from standstill, or shortens the
// commutation period by one unit while running, clamped at the configured
// fastest period. No effect during ramp-up; the ramp owns the period.
func (m *Motor) SpeedIncrease() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == MotorOff {
		m.state = MotorRampUp
		RecordEvent(EvtStart, m.OID, GetTime(), m.commPeriod, 0)
		return
	}
	if m.state == MotorOn && m.commPeriod > m.cfg.ManualPeriodMin {
		m.commPeriod--
	}
}

// SpeedDecrease starts the motor from standstill, or lengthens the
// commutation period by one unit while running, clamped at the standstill
// period. No effect during ramp-up.
func (m *Motor) SpeedDecrease() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == MotorOff {
		m.state = MotorRampUp
		RecordEvent(EvtStart, m.OID, GetTime(), m.commPeriod, 0)
		return
	}
	if m.state == MotorOn && m.commPeriod < m.cfg.RampStartPeriod {
		m.commPeriod++
	}
}

// SetManualDuty records the user duty target, clamped into the PWM cycle.
// Takes effect on the next update tick while on (manual control mode).
func (m *Motor) SetManualDuty(duty uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if duty >= m.cycleTicks {
		duty = m.cycleTicks - 1
	}
	m.manualDuty = duty
}

// State returns the current operating state.
func (m *Motor) State() MotorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Period returns the current commutation period in 8 microsecond units.
func (m *Motor) Period() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commPeriod
}

// Sector returns the current commutation sector.
func (m *Motor) Sector() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sector
}

// Duty returns the current duty target.
func (m *Motor) Duty() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dutyTarget
}

// CycleTicks returns the PWM cycle length the motor was configured with.
func (m *Motor) CycleTicks() uint32 {
	return m.cycleTicks
}

// StopAllMotors de-energizes every registered motor. Called from the
// emergency stop path.
func StopAllMotors() {
	for _, m := range bldcMotors {
		if m != nil {
			m.Stop()
			m.mu.Lock()
			if err := m.applyAllOff(); err != nil {
				DebugPrintln("motor off: " + err.Error())
			}
			m.mu.Unlock()
		}
	}
}

// ResetMotors drops the motor registry. Used by tests and firmware reset.
func ResetMotors() {
	for oid, m := range bldcMotors {
		if m != nil && m.running {
			CancelTimer(&m.updateTimer)
			CancelTimer(&m.commTimer)
		}
		delete(bldcMotors, oid)
	}
}
