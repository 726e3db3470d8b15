package core

// GateDriver applies all three low-side gate enable lines in one operation.
// A hardware backend (PIO on the RP2040) can cut every gate and insert a
// fixed dead time before the new pattern goes out, which the per-pin GPIO
// fallback cannot guarantee.
type GateDriver interface {
	// ApplyGates drives the gate lines to mask; bit n = phase n enabled.
	ApplyGates(mask uint8) error
}

// gateFactory builds a GateDriver for a motor's gate pins, or returns nil
// when the pins cannot be served (non-consecutive, resources exhausted).
// Registered by target code; motors without a backend fall back to plain
// GPIO writes.
var gateFactory func(pins [NumPhases]GPIOPin) GateDriver

// SetGateDriverFactory registers the platform gate backend factory.
func SetGateDriverFactory(f func(pins [NumPhases]GPIOPin) GateDriver) {
	gateFactory = f
}

func newGateDriver(pins [NumPhases]GPIOPin) GateDriver {
	if gateFactory == nil {
		return nil
	}
	return gateFactory(pins)
}
