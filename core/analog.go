// Speed potentiometer support. A pot on an ADC pin sets the manual duty
// target of a motor: samples are oversampled on a timer, range checked,
// then mapped onto the motor's PWM cycle from task context.
package core

import (
	"brushless/protocol"
)

// Sampler states
const (
	PotStateIdle     = 0
	PotStateReady    = 1
	PotStateSampling = 2
	// PotStateReportPending means a sample cycle completed and the task
	// context still has to apply the duty and send speed_pot_state.
	PotStateReportPending = 3
)

// adcFullScale is the raw span of a 12-bit converter.
const adcFullScale = 4096

// SpeedPot is a configured potentiometer input bound to one motor.
type SpeedPot struct {
	OID      uint8
	MotorOID uint8  // motor whose manual duty this pot drives
	Pin      uint32 // interpreted as ADCChannelID by the HAL
	State    uint8

	Timer Timer

	RestTime      uint32 // ticks between reporting cycles
	SampleTime    uint32 // ticks between individual samples
	NextBeginTime uint32

	SampleCount   uint8 // oversampling factor
	CurrentSample uint8

	Value uint32 // accumulated sum of samples

	MinValue        uint16
	MaxValue        uint16
	RangeCheckCount uint8 // violations before shutdown; 0 = first strike
	InvalidCount    uint8

	PendingValue uint16 // sum awaiting task-context delivery
}

var speedPots = make(map[uint8]*SpeedPot)

var speedPotWake bool

// InitAnalogCommands registers the speed pot commands.
func InitAnalogCommands() {
	RegisterCommand("config_speed_pot", "oid=%c motor_oid=%c pin=%u", handleConfigSpeedPot)
	RegisterCommand("query_speed_pot", "oid=%c clock=%u sample_ticks=%u sample_count=%c rest_ticks=%u min_value=%hu max_value=%hu range_check_count=%c", handleQuerySpeedPot)

	RegisterResponse("speed_pot_state", "oid=%c next_clock=%u value=%hu")

	RegisterConstant("ADC_MAX", uint32(adcFullScale-1))
}

// handleConfigSpeedPot binds an ADC pin to a motor's manual duty.
func handleConfigSpeedPot(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	motorOID, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pot := &SpeedPot{
		OID:      uint8(oid),
		MotorOID: uint8(motorOID),
		Pin:      pin,
		State:    PotStateReady,
	}

	if err := MustADC().ConfigureChannel(ADCChannelID(pin)); err != nil {
		return err
	}

	speedPots[uint8(oid)] = pot

	return nil
}

// handleQuerySpeedPot starts periodic sampling.
func handleQuerySpeedPot(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	clock, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	sampleTicks, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	sampleCount, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	restTicks, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	minValue, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	maxValue, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	rangeCheckCount, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pot, exists := speedPots[uint8(oid)]
	if !exists {
		return nil
	}

	pot.SampleTime = sampleTicks
	pot.SampleCount = uint8(sampleCount)
	pot.RestTime = restTicks
	pot.MinValue = uint16(minValue)
	pot.MaxValue = uint16(maxValue)
	pot.RangeCheckCount = uint8(rangeCheckCount)
	pot.NextBeginTime = clock

	pot.Value = 0
	pot.CurrentSample = 0
	pot.InvalidCount = 0

	// A zero sample count stops sampling rather than scheduling an empty
	// cycle.
	if pot.SampleCount == 0 {
		pot.State = PotStateReady
		pot.Timer.Next = nil
		return nil
	}

	pot.State = PotStateSampling

	pot.Timer.Next = nil
	pot.Timer.WakeTime = clock
	pot.Timer.Handler = speedPotTimerHandler
	ScheduleTimer(&pot.Timer)

	return nil
}

func wakeSpeedPotTask() {
	state := disableInterrupts()
	speedPotWake = true
	restoreInterrupts(state)
}

// SpeedPotTask runs in task context: it applies completed sample cycles
// to their motors and reports speed_pot_state to the host. Mutex-taking
// calls like SetManualDuty must not happen in the timer handler.
func SpeedPotTask() {
	state := disableInterrupts()
	if !speedPotWake {
		restoreInterrupts(state)
		return
	}
	speedPotWake = false
	restoreInterrupts(state)

	for oid, pot := range speedPots {
		if pot == nil || pot.State != PotStateReportPending {
			continue
		}

		// Snapshot fields the timer may also touch.
		state = disableInterrupts()
		if pot.State != PotStateReportPending {
			restoreInterrupts(state)
			continue
		}
		sum := pot.PendingValue
		nextClock := pot.NextBeginTime
		sampleCount := pot.SampleCount
		pot.State = PotStateReady
		restoreInterrupts(state)

		if motor := GetMotor(pot.MotorOID); motor != nil && sampleCount > 0 {
			avg := uint32(sum) / uint32(sampleCount)
			duty := avg * motor.CycleTicks() / adcFullScale
			motor.SetManualDuty(duty)
		}

		SendResponse("speed_pot_state", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(oid))
			protocol.EncodeVLQUint(output, nextClock)
			protocol.EncodeVLQUint(output, uint32(sum))
		})
	}
}

// speedPotTimerHandler collects one sample per invocation.
func speedPotTimerHandler(t *Timer) uint8 {
	var pot *SpeedPot
	for _, pPtr := range speedPots {
		if pPtr != nil && &pPtr.Timer == t {
			pot = pPtr
			break
		}
	}

	if pot == nil {
		return SF_DONE
	}

	if pot.State != PotStateSampling {
		return SF_DONE
	}

	if pot.SampleCount == 0 {
		pot.State = PotStateReady
		return SF_DONE
	}

	value, err := MustADC().ReadRaw(ADCChannelID(pot.Pin))
	if err != nil {
		pot.State = PotStateReady
		return SF_DONE
	}

	pot.Value += uint32(value)
	pot.CurrentSample++

	if pot.CurrentSample >= pot.SampleCount {
		// Range check the accumulated sum; a wiper shorted to a rail
		// drops power before the motor can run away.
		sum16 := uint16(pot.Value)

		if sum16 < pot.MinValue || sum16 > pot.MaxValue {
			pot.InvalidCount++
			if pot.RangeCheckCount == 0 || pot.InvalidCount >= pot.RangeCheckCount {
				TryShutdown("speed pot out of range")
				pot.InvalidCount = 0
			}
		} else {
			pot.InvalidCount = 0
		}

		pot.NextBeginTime += pot.RestTime

		pot.PendingValue = sum16
		pot.State = PotStateReportPending

		pot.Value = 0
		pot.CurrentSample = 0

		t.WakeTime = pot.NextBeginTime

		wakeSpeedPotTask()

		return SF_RESCHEDULE
	}

	t.WakeTime = GetTime() + pot.SampleTime
	return SF_RESCHEDULE
}

// ShutdownSpeedPot stops sampling for one pot.
func ShutdownSpeedPot(pot *SpeedPot) {
	if pot.State == PotStateSampling || pot.State == PotStateReportPending {
		pot.State = PotStateReady
	}
	pot.PendingValue = 0
	pot.Timer.Next = nil
}

// ShutdownAllAnalogIn stops sampling on all configured pots.
func ShutdownAllAnalogIn() {
	for _, pot := range speedPots {
		if pot != nil {
			ShutdownSpeedPot(pot)
		}
	}
}

// ResetSpeedPots clears the registry (tests only).
func ResetSpeedPots() {
	speedPots = make(map[uint8]*SpeedPot)
	speedPotWake = false
}
