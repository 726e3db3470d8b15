// Six-step commutation tables for a three-phase sensorless BLDC motor.
// Each electrical revolution is six 60-degree sectors; every sector drives
// two phases and floats the third so its back-EMF stays observable.
package core

// PhaseState is the logical drive state of one phase output.
type PhaseState uint8

const (
	PhaseOff      PhaseState = iota // output stage de-energized
	PhasePwmPlus                    // modulated at the duty-cycle target
	PhasePwmMinus                   // modulated at the complement of the target
	PhaseHigh                       // hard rail high, no modulation
	PhaseLow                        // hard rail low, no modulation
	PhaseFloat                      // high-impedance, back-EMF visible
)

// DriveMode selects which commutation table a motor runs.
type DriveMode uint8

const (
	// DriveAsymmetric modulates the high side of one phase and holds the
	// return phase at the low rail.
	DriveAsymmetric DriveMode = iota

	// DriveComplementary modulates both driven phases, the return phase at
	// the complement of the duty target, for a symmetric voltage swing.
	DriveComplementary
)

// NumSectors is the number of commutation steps per electrical revolution.
const NumSectors = 6

// SectorEntry is one row of a commutation table: the logical state of the
// three phases plus the low-side gate enable lines. A gate bit is set for
// every phase that participates in the current conduction path; the
// floating phase's gate stays off.
type SectorEntry struct {
	States [NumPhases]PhaseState
	Gates  uint8 // bit n = phase n /SD gate enabled
}

// gateAB etc. name the three two-phase conduction patterns.
const (
	gateAB = 1<<PhaseA | 1<<PhaseB
	gateAC = 1<<PhaseA | 1<<PhaseC
	gateBC = 1<<PhaseB | 1<<PhaseC
)

// sectorTableAsymmetric is the rail-return commutation sequence. Adjacent
// sectors are a single role rotation: one phase keeps its state while the
// other two exchange roles, so exactly one winding current path changes
// per step.
var sectorTableAsymmetric = [NumSectors]SectorEntry{
	{States: [NumPhases]PhaseState{PhasePwmPlus, PhaseLow, PhaseFloat}, Gates: gateAB},
	{States: [NumPhases]PhaseState{PhasePwmPlus, PhaseFloat, PhaseLow}, Gates: gateAC},
	{States: [NumPhases]PhaseState{PhaseFloat, PhasePwmPlus, PhaseLow}, Gates: gateBC},
	{States: [NumPhases]PhaseState{PhaseLow, PhasePwmPlus, PhaseFloat}, Gates: gateAB},
	{States: [NumPhases]PhaseState{PhaseLow, PhaseFloat, PhasePwmPlus}, Gates: gateAC},
	{States: [NumPhases]PhaseState{PhaseFloat, PhaseLow, PhasePwmPlus}, Gates: gateBC},
}

// sectorTableComplementary is the same sequence with the return phase
// modulated at the complement of the duty target instead of pinned to the
// low rail.
var sectorTableComplementary = [NumSectors]SectorEntry{
	{States: [NumPhases]PhaseState{PhasePwmPlus, PhasePwmMinus, PhaseFloat}, Gates: gateAB},
	{States: [NumPhases]PhaseState{PhasePwmPlus, PhaseFloat, PhasePwmMinus}, Gates: gateAC},
	{States: [NumPhases]PhaseState{PhaseFloat, PhasePwmPlus, PhasePwmMinus}, Gates: gateBC},
	{States: [NumPhases]PhaseState{PhasePwmMinus, PhasePwmPlus, PhaseFloat}, Gates: gateAB},
	{States: [NumPhases]PhaseState{PhasePwmMinus, PhaseFloat, PhasePwmPlus}, Gates: gateAC},
	{States: [NumPhases]PhaseState{PhaseFloat, PhasePwmMinus, PhasePwmPlus}, Gates: gateBC},
}

// SectorEntryFor returns the commutation table row for a sector.
func SectorEntryFor(mode DriveMode, sector uint8) SectorEntry {
	if mode == DriveComplementary {
		return sectorTableComplementary[sector%NumSectors]
	}
	return sectorTableAsymmetric[sector%NumSectors]
}

// isModulated reports whether a state drives the PWM carrier.
func isModulated(s PhaseState) bool {
	return s == PhasePwmPlus || s == PhasePwmMinus
}
