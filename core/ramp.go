package core

// Open-loop ramp generation. During ramp-up the commutation period shrinks
// from the standstill value toward the hand-off threshold; once it arrives
// the state machine switches to steady-state operation.

// RampMode selects the period-shrink schedule.
type RampMode uint8

const (
	// RampLinear removes one period unit per update tick: linear
	// acceleration of the commutation frequency.
	RampLinear RampMode = iota

	// RampGeometric runs a countdown between period decrements and halves
	// the countdown interval (with a floor) on every underflow. Decrements
	// arrive faster and faster, approximating a smoother speed curve while
	// staying integer-only.
	RampGeometric
)

// RampUnit is the number of period counts removed per ramp decrement.
const RampUnit = 1

// rampStep advances the ramp by one update tick. It returns true once the
// commutation period has reached the hand-off threshold, i.e. the caller
// should leave ramp-up. The period never drops below the threshold here:
// a decrement is only taken while the period is still above it.
//
// Caller holds m.mu.
func (m *Motor) rampStep() bool {
	if m.commPeriod <= m.cfg.HandoffPeriod {
		return true
	}

	switch m.cfg.RampMode {
	case RampGeometric:
		if m.rampStepTm > 0 {
			m.rampStepTm--
			return false
		}
		next := m.rampStepInterval / 2
		if next < m.cfg.RampStepMin {
			next = m.cfg.RampStepMin
		}
		m.rampStepInterval = next
		m.rampStepTm = next
		m.commPeriod -= RampUnit

	default: // RampLinear
		m.commPeriod -= RampUnit
	}

	return false
}

// resetRamp restores the standstill ramp state. Runs on every off-state
// update so a subsequent start always begins from the slow end.
//
// Caller holds m.mu.
func (m *Motor) resetRamp() {
	m.commPeriod = m.cfg.RampStartPeriod
	m.rampStepInterval = m.cfg.RampStepStart
	m.rampStepTm = m.cfg.RampStepStart
}
