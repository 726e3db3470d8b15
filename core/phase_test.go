package core

import (
	"testing"
)

func countStates(entry SectorEntry, pred func(PhaseState) bool) int {
	n := 0
	for _, s := range entry.States {
		if pred(s) {
			n++
		}
	}
	return n
}

func TestSectorTableOneFloatingPhase(t *testing.T) {
	for _, mode := range []DriveMode{DriveAsymmetric, DriveComplementary} {
		for sector := uint8(0); sector < NumSectors; sector++ {
			entry := SectorEntryFor(mode, sector)
			floating := countStates(entry, func(s PhaseState) bool { return s == PhaseFloat })
			if floating != 1 {
				t.Errorf("mode %d sector %d: %d floating phases, want 1", mode, sector, floating)
			}
		}
	}
}

func TestSectorTableModulationCount(t *testing.T) {
	for sector := uint8(0); sector < NumSectors; sector++ {
		entry := SectorEntryFor(DriveAsymmetric, sector)
		modulated := countStates(entry, isModulated)
		if modulated != 1 {
			t.Errorf("asymmetric sector %d: %d modulated phases, want 1", sector, modulated)
		}
		rail := countStates(entry, func(s PhaseState) bool { return s == PhaseLow })
		if rail != 1 {
			t.Errorf("asymmetric sector %d: %d rail phases, want 1", sector, rail)
		}
	}

	for sector := uint8(0); sector < NumSectors; sector++ {
		entry := SectorEntryFor(DriveComplementary, sector)
		modulated := countStates(entry, isModulated)
		if modulated != 2 {
			t.Errorf("complementary sector %d: %d modulated phases, want 2", sector, modulated)
		}
		plus := countStates(entry, func(s PhaseState) bool { return s == PhasePwmPlus })
		if plus != 1 {
			t.Errorf("complementary sector %d: %d PwmPlus phases, want 1", sector, plus)
		}
	}
}

func TestSectorTableGatesMatchDrivenPhases(t *testing.T) {
	for _, mode := range []DriveMode{DriveAsymmetric, DriveComplementary} {
		for sector := uint8(0); sector < NumSectors; sector++ {
			entry := SectorEntryFor(mode, sector)
			for i := 0; i < NumPhases; i++ {
				gated := entry.Gates&(1<<uint(i)) != 0
				driven := entry.States[i] != PhaseFloat
				if gated != driven {
					t.Errorf("mode %d sector %d phase %d: gate=%v driven=%v",
						mode, sector, i, gated, driven)
				}
			}
		}
	}
}

// Adjacent sectors must be a single role rotation: exactly one phase keeps
// its state while the other two exchange roles. Anything else would change
// two conduction paths in one step and stall the rotor.
func TestSectorTableSingleRoleRotation(t *testing.T) {
	for _, mode := range []DriveMode{DriveAsymmetric, DriveComplementary} {
		for sector := uint8(0); sector < NumSectors; sector++ {
			cur := SectorEntryFor(mode, sector)
			next := SectorEntryFor(mode, sector+1)

			kept := 0
			for i := 0; i < NumPhases; i++ {
				if cur.States[i] == next.States[i] {
					kept++
				}
			}
			if kept != 1 {
				t.Errorf("mode %d sector %d->%d: %d phases kept their state, want 1",
					mode, sector, sector+1, kept)
			}
		}
	}
}

func TestSectorTableFloatRotates(t *testing.T) {
	// Every phase must float exactly twice per electrical revolution.
	var floats [NumPhases]int
	for sector := uint8(0); sector < NumSectors; sector++ {
		entry := SectorEntryFor(DriveAsymmetric, sector)
		for i, s := range entry.States {
			if s == PhaseFloat {
				floats[i]++
			}
		}
	}
	for i, n := range floats {
		if n != 2 {
			t.Errorf("phase %d floats %d times per revolution, want 2", i, n)
		}
	}
}

func TestSectorEntryForWrapsSector(t *testing.T) {
	a := SectorEntryFor(DriveAsymmetric, 1)
	b := SectorEntryFor(DriveAsymmetric, 1+NumSectors)
	if a != b {
		t.Error("sector lookup should wrap modulo the table length")
	}
}

func TestPulseFor(t *testing.T) {
	const cycle = 255
	tests := []struct {
		state PhaseState
		duty  uint32
		want  uint32
	}{
		{PhasePwmPlus, 100, 100},
		{PhasePwmMinus, 100, 155},
		{PhaseHigh, 100, cycle},
		{PhaseLow, 100, 0},
		{PhaseFloat, 100, 0},
		{PhaseOff, 100, 0},
		{PhasePwmPlus, 0, 0},
		{PhasePwmMinus, 0, cycle},
	}

	for _, tc := range tests {
		got := PulseFor(tc.state, tc.duty, cycle)
		if got != tc.want {
			t.Errorf("PulseFor(%d, %d, %d) = %d, want %d", tc.state, tc.duty, cycle, got, tc.want)
		}
	}
}
