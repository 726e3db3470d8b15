// Digital output support for auxiliary pins: drive-enable lines, brake
// outputs, status LEDs. Phase and gate pins are owned by the motor objects
// and never pass through here.
package core

import (
	"brushless/protocol"
)

// DigitalOut flags
const (
	DF_ON         = 1 << 0 // current pin state (1=high, 0=low)
	DF_CHECK_END  = 1 << 1 // monitor max_duration
	DF_DEFAULT_ON = 1 << 2 // default state for shutdown/power-loss
)

// DigitalOut is a configured auxiliary output pin.
type DigitalOut struct {
	OID   uint8
	Pin   GPIOPin
	Flags uint8

	Timer Timer // scheduled updates and max_duration enforcement

	EndTime     uint32 // time when max_duration expires
	MaxDuration uint32 // max time the pin may sit in a non-default state
}

var digitalOutputs = make(map[uint8]*DigitalOut)

// InitGPIOCommands registers the digital output commands.
func InitGPIOCommands() {
	RegisterCommand("config_digital_out", "oid=%c pin=%u value=%c default_value=%c max_duration=%u", handleConfigDigitalOut)
	RegisterCommand("queue_digital_out", "oid=%c clock=%u value=%c", handleQueueDigitalOut)
	RegisterCommand("update_digital_out", "oid=%c value=%c", handleUpdateDigitalOut)
}

// handleConfigDigitalOut configures a pin for digital output.
func handleConfigDigitalOut(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	value, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	defaultValue, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	maxDuration, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	dout := &DigitalOut{
		OID:         uint8(oid),
		Pin:         GPIOPin(pin),
		MaxDuration: maxDuration,
		Flags:       0,
	}

	if defaultValue != 0 {
		dout.Flags |= DF_DEFAULT_ON
	}

	if err := MustGPIO().ConfigureOutput(dout.Pin); err != nil {
		return err
	}

	initialState := value != 0
	if err := MustGPIO().SetPin(dout.Pin, initialState); err != nil {
		return err
	}

	if initialState {
		dout.Flags |= DF_ON
	}

	digitalOutputs[uint8(oid)] = dout

	return nil
}

// handleQueueDigitalOut schedules a pin state change at a clock time.
func handleQueueDigitalOut(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	clock, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	value, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	dout, exists := digitalOutputs[uint8(oid)]
	if !exists {
		return nil
	}

	if value != 0 {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}

	if dout.MaxDuration != 0 {
		newStateOn := (dout.Flags & DF_ON) != 0
		defaultOn := (dout.Flags & DF_DEFAULT_ON) != 0

		if newStateOn != defaultOn {
			dout.EndTime = clock + dout.MaxDuration
			dout.Flags |= DF_CHECK_END
		} else {
			dout.Flags &^= DF_CHECK_END
		}
	}

	// Clear Next in case the timer was previously scheduled.
	dout.Timer.Next = nil
	dout.Timer.WakeTime = clock
	dout.Timer.Handler = digitalOutLoadEvent
	ScheduleTimer(&dout.Timer)

	return nil
}

// handleUpdateDigitalOut updates a pin value immediately.
func handleUpdateDigitalOut(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	value, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	dout, exists := digitalOutputs[uint8(oid)]
	if !exists {
		return nil
	}

	state := value != 0
	if err := MustGPIO().SetPin(dout.Pin, state); err != nil {
		return err
	}

	if state {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}

	return nil
}

// findDigitalOut maps a timer back to its owning DigitalOut.
func findDigitalOut(t *Timer) *DigitalOut {
	for _, dPtr := range digitalOutputs {
		if dPtr != nil && &dPtr.Timer == t {
			return dPtr
		}
	}
	return nil
}

// digitalOutLoadEvent applies a scheduled pin update when its clock time
// arrives.
func digitalOutLoadEvent(t *Timer) uint8 {
	dout := findDigitalOut(t)
	if dout == nil {
		return SF_DONE
	}

	state := (dout.Flags & DF_ON) != 0
	if err := MustGPIO().SetPin(dout.Pin, state); err != nil {
		return SF_DONE
	}

	if (dout.Flags & DF_CHECK_END) != 0 {
		t.WakeTime = dout.EndTime
		t.Handler = digitalOutEndEvent
		return SF_RESCHEDULE
	}

	return SF_DONE
}

// digitalOutEndEvent enforces max_duration by returning the pin to its
// default state.
func digitalOutEndEvent(t *Timer) uint8 {
	dout := findDigitalOut(t)
	if dout == nil {
		return SF_DONE
	}

	defaultState := (dout.Flags & DF_DEFAULT_ON) != 0
	if err := MustGPIO().SetPin(dout.Pin, defaultState); err != nil {
		return SF_DONE
	}

	if defaultState {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}

	dout.Flags &^= DF_CHECK_END

	return SF_DONE
}

// ShutdownDigitalOut returns a pin to its default state.
func ShutdownDigitalOut(dout *DigitalOut) {
	defaultState := (dout.Flags & DF_DEFAULT_ON) != 0
	_ = MustGPIO().SetPin(dout.Pin, defaultState)

	if defaultState {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}

	dout.Flags &^= DF_CHECK_END

	dout.Timer.Next = nil
}

// ShutdownAllDigitalOut returns all auxiliary pins to their default
// states. Called from the shutdown path.
func ShutdownAllDigitalOut() {
	for _, dout := range digitalOutputs {
		if dout != nil {
			ShutdownDigitalOut(dout)
		}
	}
}

// ResetDigitalOutputs clears the registry (tests only).
func ResetDigitalOutputs() {
	digitalOutputs = make(map[uint8]*DigitalOut)
}
