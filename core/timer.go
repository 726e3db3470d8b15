package core

const (
	// TimerFreq is the system timer frequency in Hz. All scheduler wake
	// times and PWM cycle lengths are expressed in ticks of this clock.
	TimerFreq = 12000000
)

var (
	systemTicks uint32
	bootTime    uint64
)

// GetTime returns the current system time in timer ticks.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (hardware integration and tests).
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// GetUptime returns 64-bit uptime in timer ticks. With real hardware this
// would read an extended counter; the plain 32-bit clock is returned until
// a target provides one.
func GetUptime() uint64 {
	return uint64(GetTime())
}

// TimerFromUS converts microseconds to timer ticks.
func TimerFromUS(us uint32) uint32 {
	return (us * (TimerFreq / 1000000))
}

// TimerToUS converts timer ticks to microseconds.
func TimerToUS(ticks uint32) uint32 {
	return ticks / (TimerFreq / 1000000)
}

// TimerInit initializes the system timer.
func TimerInit() {
	bootTime = uint64(GetTime())
}

// ProcessTimers advances the scheduler to the current hardware time.
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
