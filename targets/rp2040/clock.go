//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"brushless/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // Raw timer high word
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock registers the clock identity constants. The RP2040 hardware
// timer ticks at 1MHz; the commutation core counts in core.TimerFreq
// ticks, so hardware reads are scaled up on every update.
func InitClock() {
	core.RegisterConstant("MCU", "rp2040")
	core.RegisterConstant("CLOCK_FREQ", uint32(core.TimerFreq))
}

// GetHardwareTime reads the low 32 bits of the microsecond counter.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// GetHardwareUptime reads the full 64-bit microsecond counter. High word
// is read twice to detect a rollover mid-read.
func GetHardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// UpdateSystemTime pushes the hardware time into the scheduler clock,
// scaled from microseconds to timer ticks. Called from the main loop.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime() * (core.TimerFreq / 1000000))
}
