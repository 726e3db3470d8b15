//go:build !tinygo

package core

// getSystemTicks returns the current system ticks (host builds; tests set
// the clock explicitly).
func getSystemTicks() uint32 {
	return systemTicks
}

// setSystemTicks sets the system ticks.
func setSystemTicks(ticks uint32) {
	systemTicks = ticks
}
