package core

// Timer is an intrusive scheduled event. Handlers run in tick-dispatch
// context and return SF_DONE or SF_RESCHEDULE; a rescheduling handler sets
// its own next WakeTime before returning.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// ScheduleTimer inserts a timer into the pending list.
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	insertTimer(t)
}

// insertTimer keeps the list sorted by WakeTime.
func insertTimer(t *Timer) {
	if timerList == nil || t.WakeTime < timerList.WakeTime {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && current.Next.WakeTime < t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// CancelTimer removes a timer from the pending list if present.
func CancelTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if timerList == t {
		timerList = t.Next
		t.Next = nil
		return
	}

	for current := timerList; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// TimerDispatch runs every timer whose WakeTime has passed.
func TimerDispatch() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for timerList != nil && timerList.WakeTime <= currentTime {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil

		result := timer.Handler(timer)

		if result == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
}

// ResetTimers drops all pending timers. Used by tests and on firmware reset.
func ResetTimers() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	timerList = nil
}
