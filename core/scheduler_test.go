package core

import (
	"testing"
)

func TestTimerDispatchOrder(t *testing.T) {
	ResetTimers()

	var fired []int
	mk := func(id int, wake uint32) *Timer {
		return &Timer{
			WakeTime: wake,
			Handler: func(*Timer) uint8 {
				fired = append(fired, id)
				return SF_DONE
			},
		}
	}

	// Insert out of order; dispatch must run them sorted by wake time.
	ScheduleTimer(mk(3, 300))
	ScheduleTimer(mk(1, 100))
	ScheduleTimer(mk(2, 200))

	SetTime(250)
	ProcessTimers()

	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Fatalf("fired = %v, want [1 2]", fired)
	}

	SetTime(300)
	ProcessTimers()
	if len(fired) != 3 || fired[2] != 3 {
		t.Fatalf("fired = %v, want [1 2 3]", fired)
	}
}

func TestTimerReschedule(t *testing.T) {
	ResetTimers()

	count := 0
	timer := &Timer{WakeTime: 10}
	timer.Handler = func(tm *Timer) uint8 {
		count++
		if count >= 3 {
			return SF_DONE
		}
		tm.WakeTime += 10
		return SF_RESCHEDULE
	}
	ScheduleTimer(timer)

	SetTime(100)
	ProcessTimers()

	if count != 3 {
		t.Errorf("handler ran %d times, want 3", count)
	}
}

func TestCancelTimer(t *testing.T) {
	ResetTimers()

	fired := false
	a := &Timer{WakeTime: 10, Handler: func(*Timer) uint8 { return SF_DONE }}
	b := &Timer{WakeTime: 20, Handler: func(*Timer) uint8 { fired = true; return SF_DONE }}
	c := &Timer{WakeTime: 30, Handler: func(*Timer) uint8 { return SF_DONE }}

	ScheduleTimer(a)
	ScheduleTimer(b)
	ScheduleTimer(c)
	CancelTimer(b)

	SetTime(100)
	ProcessTimers()

	if fired {
		t.Error("cancelled timer still fired")
	}

	// Cancelling a timer that is not queued must be harmless.
	CancelTimer(b)
}
