//go:build rp2040

package pio

import (
	"brushless/core"
)

var (
	// PIO allocation tracking
	// RP2040/RP2350 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{} // [pioNum][smNum]
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
)

// InitGateDrive registers the gate backend factory. Each configured motor
// gets its own backend: a PIO state machine when its gate pins are
// consecutive and a machine is free, the SIO fallback otherwise.
func InitGateDrive() {
	core.SetGateDriverFactory(createGateBackend)
}

func createGateBackend(pins [core.NumPhases]core.GPIOPin) core.GateDriver {
	base := pins[0]
	consecutive := pins[1] == base+1 && pins[2] == base+2

	if consecutive {
		if pioNum, smNum, ok := allocatePIO(); ok {
			backend := NewGatePIO(pioNum, smNum)
			if err := backend.Init(uint8(base)); err == nil {
				return backend
			}
			releasePIO(pioNum, smNum)
		}
	}

	fallback := NewGateSIO()
	if err := fallback.Init([3]uint8{uint8(pins[0]), uint8(pins[1]), uint8(pins[2])}); err != nil {
		return nil
	}
	return fallback
}

// allocatePIO allocates a PIO state machine
// Returns (pioNum, smNum, ok)
func allocatePIO() (uint8, uint8, bool) {
	// Round-robin allocation across PIO blocks and state machines
	for i := 0; i < 8; i++ { // 2 PIO x 4 SM = 8 total
		pioNum := nextPIONum
		smNum := nextSMNum

		// Advance to next slot
		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		// Check if this slot is free
		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}

	// All PIO resources exhausted
	return 0, 0, false
}

func releasePIO(pioNum, smNum uint8) {
	pioAllocations[pioNum][smNum] = false
}

// GetPIOAllocationStatus returns PIO allocation status for debugging
func GetPIOAllocationStatus() [2][4]bool {
	return pioAllocations
}

// ResetPIOAllocations resets all PIO allocations (for testing)
func ResetPIOAllocations() {
	pioAllocations = [2][4]bool{}
	nextPIONum = 0
	nextSMNum = 0
}
