//go:build !tinygo

package core

// State mirrors the interrupt state type on regular Go builds.
type State uintptr

// disableInterrupts is a no-op on regular Go; host builds are only used for
// tests and the bench simulator, which are single-threaded through the
// scheduler.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts restores the interrupt state (no-op on regular Go).
func restoreInterrupts(state State) {
}
