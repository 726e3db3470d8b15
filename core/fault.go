// Gate driver fault monitoring. Smart gate drivers report faults on an
// open-drain nFAULT line; this module debounces that line with a timer and
// shuts the power stage down when a fault is confirmed.
package core

import (
	"brushless/protocol"
)

// Fault monitor flags
const (
	FMF_TRIGGER_HIGH = 1 << 0 // Pin state that indicates a fault (1=high, 0=low)
	FMF_ARMED        = 1 << 1 // Monitor is actively sampling
)

// FaultMonitor watches a single fault input pin.
type FaultMonitor struct {
	OID          uint8   // Object ID
	Pin          GPIOPin // GPIO pin for the fault input
	Flags        uint8   // State flags (FMF_*)
	Timer        Timer   // Timer for sampling
	SampleTime   uint32  // Time between confirmation samples (in ticks)
	SampleCount  uint8   // Number of consecutive samples required
	TriggerCount uint8   // Remaining samples before trigger
	RestTime     uint32  // Rest time between check cycles
	NextWake     uint32  // Next scheduled wake time
}

// Global registry of fault monitors
var faultMonitors = make(map[uint8]*FaultMonitor)

// InitFaultCommands registers fault monitor commands
func InitFaultCommands() {
	// Command to configure a fault monitor
	RegisterCommand("config_fault_monitor", "oid=%c pin=%u pull_up=%c trigger_high=%c", handleConfigFaultMonitor)

	// Command to arm or disarm a fault monitor
	RegisterCommand("fault_monitor_arm", "oid=%c clock=%u sample_ticks=%u sample_count=%c rest_ticks=%u", handleFaultMonitorArm)

	// Command to query fault monitor state
	RegisterCommand("fault_monitor_query", "oid=%c", handleFaultMonitorQuery)

	// Response: fault monitor state report
	RegisterResponse("fault_monitor_state", "oid=%c armed=%c pin_value=%c")

	// Response: confirmed fault report
	RegisterResponse("fault_triggered", "oid=%c pin_value=%c")
}

// handleConfigFaultMonitor configures a fault input pin
// Format: config_fault_monitor oid=%c pin=%u pull_up=%c trigger_high=%c
func handleConfigFaultMonitor(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pullUp, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	triggerHigh, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	// Create new fault monitor instance
	fm := &FaultMonitor{
		OID: uint8(oid),
		Pin: GPIOPin(pin),
	}

	if triggerHigh != 0 {
		fm.Flags |= FMF_TRIGGER_HIGH
	}

	// nFAULT lines are open-drain, so a pull-up is the usual wiring
	if pullUp != 0 {
		if err := MustGPIO().ConfigureInputPullUp(fm.Pin); err != nil {
			return err
		}
	} else {
		if err := MustGPIO().ConfigureInputPullDown(fm.Pin); err != nil {
			return err
		}
	}

	// Register in global map
	faultMonitors[uint8(oid)] = fm

	return nil
}

// handleFaultMonitorArm starts (or stops) sampling a fault input
// Format: fault_monitor_arm oid=%c clock=%u sample_ticks=%u sample_count=%c rest_ticks=%u
func handleFaultMonitorArm(data *[]byte) error {
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

	// Get fault monitor object
	fm, exists := faultMonitors[uint8(oid)]
	if !exists {
		return nil // Silently ignore if not configured
	}

	// Cancel any existing timer
	CancelTimer(&fm.Timer)

	// A sample_count of 0 disarms the monitor
	if sampleCount == 0 {
		fm.Flags &^= FMF_ARMED
		return nil
	}

	// Configure sampling parameters
	fm.SampleTime = sampleTicks
	fm.SampleCount = uint8(sampleCount)
	fm.TriggerCount = uint8(sampleCount)
	fm.RestTime = restTicks
	fm.Flags |= FMF_ARMED

	// Schedule initial timer
	fm.Timer.WakeTime = clock
	fm.Timer.Handler = faultMonitorEvent
	ScheduleTimer(&fm.Timer)

	return nil
}

// handleFaultMonitorQuery reports the current monitor state
// Format: fault_monitor_query oid=%c
func handleFaultMonitorQuery(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	// Get fault monitor object
	fm, exists := faultMonitors[uint8(oid)]
	if !exists {
		return nil // Silently ignore if not configured
	}

	state := disableInterrupts()
	flags := fm.Flags
	restoreInterrupts(state)

	pinValue := uint32(0)
	if high, err := MustGPIO().GetPin(fm.Pin); err == nil && high {
		pinValue = 1
	}

	armed := uint32(0)
	if (flags & FMF_ARMED) != 0 {
		armed = 1
	}

	SendResponse("fault_monitor_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, armed)
		protocol.EncodeVLQUint(output, pinValue)
	})

	return nil
}

// faultPinMatches reads the pin and compares against the trigger level.
func faultPinMatches(fm *FaultMonitor) bool {
	high, err := MustGPIO().GetPin(fm.Pin)
	if err != nil {
		return false
	}
	expectHigh := (fm.Flags & FMF_TRIGGER_HIGH) != 0
	return high == expectHigh
}

// faultMonitorEvent is the timer callback for fault checking.
// This is the first-stage check that looks for a potential fault.
func faultMonitorEvent(t *Timer) uint8 {
	// Find the FaultMonitor instance that owns this timer
	var fm *FaultMonitor
	for _, fmPtr := range faultMonitors {
		if fmPtr != nil && &fmPtr.Timer == t {
			fm = fmPtr
			break
		}
	}

	if fm == nil || (fm.Flags&FMF_ARMED) == 0 {
		return SF_DONE
	}

	nextWake := t.WakeTime + fm.RestTime

	if !faultPinMatches(fm) {
		// Line is clean - reschedule for the next check
		t.WakeTime = nextWake
		return SF_RESCHEDULE
	}

	// Potential fault detected - start oversampling to filter glitches
	fm.NextWake = nextWake
	t.Handler = faultOversampleEvent
	return faultOversampleEvent(t)
}

// faultOversampleEvent confirms a fault with consecutive samples.
func faultOversampleEvent(t *Timer) uint8 {
	// Find the FaultMonitor instance that owns this timer
	var fm *FaultMonitor
	for _, fmPtr := range faultMonitors {
		if fmPtr != nil && &fmPtr.Timer == t {
			fm = fmPtr
			break
		}
	}

	if fm == nil || (fm.Flags&FMF_ARMED) == 0 {
		return SF_DONE
	}

	if !faultPinMatches(fm) {
		// Glitch - go back to the slow scan
		t.Handler = faultMonitorEvent
		t.WakeTime = fm.NextWake
		fm.TriggerCount = fm.SampleCount
		return SF_RESCHEDULE
	}

	// Decrement trigger count
	count := fm.TriggerCount - 1
	if count == 0 {
		// Fault confirmed: kill the power stage first, then report
		fm.Flags &^= FMF_ARMED
		TryShutdown("gate driver fault")
		SendResponse("fault_triggered", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(fm.OID))
			pinValue := uint32(0)
			if (fm.Flags & FMF_TRIGGER_HIGH) != 0 {
				pinValue = 1
			}
			protocol.EncodeVLQUint(output, pinValue)
		})
		return SF_DONE
	}

	// Continue oversampling
	fm.TriggerCount = count
	t.WakeTime += fm.SampleTime
	return SF_RESCHEDULE
}

// ResetFaultMonitors clears all fault monitors (used by tests and on reset).
func ResetFaultMonitors() {
	for _, fm := range faultMonitors {
		if fm != nil {
			CancelTimer(&fm.Timer)
		}
	}
	faultMonitors = make(map[uint8]*FaultMonitor)
}
