//go:build rp2040

package pio

// PIO gate-drive backend using the tinygo-org/pio package. The three
// low-side gate enable lines of one motor are switched by a PIO state
// machine: on every commutation the program first cuts all gates, holds
// them low for a fixed dead time, then drives the new pattern. The cut
// and the dead time happen in hardware, so a commutation can never
// overlap two half-bridges no matter how late the CPU runs.

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Command word format: bits 0-2 carry the gate mask, bit n = phase n on.
//
// Program flow:
//  1. Pull the command word from the FIFO
//  2. Drive all three gates low and wait out the dead time
//  3. Shift the new gate mask onto the pins
//
// buildGateProgram assembles the program with AssemblerV0.
func buildGateProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                   // 0: pull block
		asm.Set(rp2pio.SetDestPins, 0).Delay(7).Encode(), // 1: set pins, 0 [7] (dead time)
		asm.Out(rp2pio.OutDestPins, 3).Encode(),          // 2: out pins, 3
		// .wrap
	}
}

const gatePIOOrigin = 0

// deadTimeDivInt slows the state machine to 125MHz/16. The 8-cycle low
// window in the program then spans just over 1us, comfortably beyond the
// turn-off time of common gate driver and FET combinations.
const deadTimeDivInt = 16

// GatePIO drives three consecutive gate pins from one PIO state machine.
type GatePIO struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	basePin machine.Pin
	offset  uint8
	pioNum  uint8
	smNum   uint8
}

// NewGatePIO creates a backend on the given PIO block and state machine.
func NewGatePIO(pioNum, smNum uint8) *GatePIO {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &GatePIO{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
	}
}

// Init loads the gate program and points SET and OUT at the three pins
// starting at basePin.
func (b *GatePIO) Init(basePin uint8) error {
	b.basePin = machine.Pin(basePin)

	b.sm.TryClaim()

	program := buildGateProgram()
	offset, err := b.pio.AddProgram(program, gatePIOOrigin)
	if err != nil {
		return err
	}
	b.offset = offset

	for i := uint8(0); i < 3; i++ {
		machine.Pin(basePin + i).Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()

	// SET cuts the gates, OUT applies the new mask; both cover the same
	// three pins.
	cfg.SetSetPins(b.basePin, 3)
	cfg.SetOutPins(b.basePin, 3)

	// Shift right, autopull disabled: the program pulls explicitly, and
	// out pins,3 then consumes the low three bits of the command word.
	cfg.SetOutShift(true, false, 32)

	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(deadTimeDivInt, 0)

	b.sm.Init(offset, cfg)

	// Pin directions must be set after Init.
	b.sm.SetPindirsConsecutive(b.basePin, 3, true)
	b.sm.SetPinsConsecutive(b.basePin, 3, false)

	b.sm.SetEnabled(true)
	return nil
}

// ApplyGates queues the gate mask. The FIFO is four entries deep and a
// command completes in under 2us, so the busy wait is bounded and in
// practice never taken at commutation rates.
func (b *GatePIO) ApplyGates(mask uint8) error {
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(uint32(mask & 0x7))
	return nil
}

// Stop drops every gate and restarts the state machine with empty FIFOs.
func (b *GatePIO) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
	b.ApplyGates(0)
}
