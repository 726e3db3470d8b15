//go:build rp2040

package main

// ModeConfig determines which mode to run
type ModeConfig struct {
	// Set to true to run the standalone console instead of the host
	// wire protocol.
	Standalone bool
}

// GetMode returns the current mode configuration. Host protocol mode is
// the default; the standalone console is a build-time switch.
func GetMode() ModeConfig {
	return ModeConfig{
		Standalone: false,
	}
}
