package core

// DRV8323 Register Definitions
// Based on DRV832x datasheet SLVSDJ3B (Texas Instruments)
// Three-phase smart gate driver with current shunt amplifiers

// DRV8323 Register Addresses
const (
	DRV8323_FAULT_STATUS_1 = 0x00 // Fault status (VDS overcurrent, UVLO, OTSD)
	DRV8323_FAULT_STATUS_2 = 0x01 // Fault status (VGS faults, sense overcurrent)
	DRV8323_DRIVER_CONTROL = 0x02 // PWM mode, coast/brake, fault clear
	DRV8323_GATE_DRIVE_HS  = 0x03 // High-side gate drive strength, register lock
	DRV8323_GATE_DRIVE_LS  = 0x04 // Low-side gate drive strength, TDRIVE
	DRV8323_OCP_CONTROL    = 0x05 // Dead time, overcurrent protection settings
	DRV8323_CSA_CONTROL    = 0x06 // Current sense amplifier configuration
)

// DRV8323 SPI frame format: 16-bit transfer
// Bit 15 = R/W (1 = read), bits 14-11 = register address, bits 10-0 = data
const (
	DRV8323_READ_BIT   = 0x8000 // Read access (bit 15 set)
	DRV8323_WRITE_BIT  = 0x0000 // Write access (bit 15 clear)
	DRV8323_ADDR_SHIFT = 11     // Register address position in frame
	DRV8323_DATA_MASK  = 0x07FF // 11-bit data field
)

// DRV8323 FAULT_STATUS_1 Register Bit Definitions
const (
	DRV8323_FAULT1_VDS_LC  = 1 << 0  // VDS overcurrent, phase C low-side
	DRV8323_FAULT1_VDS_HC  = 1 << 1  // VDS overcurrent, phase C high-side
	DRV8323_FAULT1_VDS_LB  = 1 << 2  // VDS overcurrent, phase B low-side
	DRV8323_FAULT1_VDS_HB  = 1 << 3  // VDS overcurrent, phase B high-side
	DRV8323_FAULT1_VDS_LA  = 1 << 4  // VDS overcurrent, phase A low-side
	DRV8323_FAULT1_VDS_HA  = 1 << 5  // VDS overcurrent, phase A high-side
	DRV8323_FAULT1_OTSD    = 1 << 6  // Overtemperature shutdown
	DRV8323_FAULT1_UVLO    = 1 << 7  // Supply undervoltage lockout
	DRV8323_FAULT1_GDF     = 1 << 8  // Gate drive fault
	DRV8323_FAULT1_VDS_OCP = 1 << 9  // VDS monitor overcurrent
	DRV8323_FAULT1_FAULT   = 1 << 10 // Logic OR of all fault bits
)

// DRV8323 FAULT_STATUS_2 Register Bit Definitions
const (
	DRV8323_FAULT2_SC_OC  = 1 << 0  // Sense amplifier C overcurrent
	DRV8323_FAULT2_SB_OC  = 1 << 1  // Sense amplifier B overcurrent
	DRV8323_FAULT2_VGS_LC = 1 << 2  // Gate drive fault, phase C low-side
	DRV8323_FAULT2_VGS_HC = 1 << 3  // Gate drive fault, phase C high-side
	DRV8323_FAULT2_VGS_LB = 1 << 4  // Gate drive fault, phase B low-side
	DRV8323_FAULT2_VGS_HB = 1 << 5  // Gate drive fault, phase B high-side
	DRV8323_FAULT2_VGS_LA = 1 << 6  // Gate drive fault, phase A low-side
	DRV8323_FAULT2_VGS_HA = 1 << 7  // Gate drive fault, phase A high-side
	DRV8323_FAULT2_CPUV   = 1 << 8  // Charge pump undervoltage
	DRV8323_FAULT2_OTW    = 1 << 9  // Overtemperature warning
	DRV8323_FAULT2_SA_OC  = 1 << 10 // Sense amplifier A overcurrent
)

// DRV8323 DRIVER_CONTROL Register Bit Definitions
const (
	DRV8323_CTRL_CLR_FLT  = 1 << 0 // Clear latched fault bits (self-resetting)
	DRV8323_CTRL_BRAKE    = 1 << 1 // Turn on all low-side MOSFETs (1x PWM mode)
	DRV8323_CTRL_COAST    = 1 << 2 // Put all MOSFETs in Hi-Z
	DRV8323_CTRL_1PWM_DIR = 1 << 3 // Direction input mirror (1x PWM mode)
	DRV8323_CTRL_1PWM_COM = 1 << 4 // Asynchronous rectification (1x PWM mode)
	DRV8323_CTRL_OTW_REP  = 1 << 7 // Report overtemperature warning on nFAULT
	DRV8323_CTRL_DIS_GDF  = 1 << 8 // Disable gate drive fault handling
	DRV8323_CTRL_DIS_CPUV = 1 << 9 // Disable charge pump UVLO fault
)

// DRV8323 PWM input modes (DRIVER_CONTROL bits 6:5)
const (
	DRV8323_PWM_MODE_6X    = 0 << 5 // 6x PWM: independent high/low inputs per phase
	DRV8323_PWM_MODE_3X    = 1 << 5 // 3x PWM: one input per phase, INLx as enable
	DRV8323_PWM_MODE_1X    = 2 << 5 // 1x PWM: internal six-step commutation
	DRV8323_PWM_MODE_INDEP = 3 << 5 // Independent: no complementary enforcement
)

// DRV8323 GATE_DRIVE_HS Register Bit Definitions
const (
	DRV8323_HS_IDRIVEN_MASK = 0x00F     // Peak sink current, high-side (bits 3-0)
	DRV8323_HS_IDRIVEP_MASK = 0x0F0     // Peak source current, high-side (bits 7-4)
	DRV8323_HS_LOCK         = 0x6 << 8  // Lock register writes
	DRV8323_HS_UNLOCK       = 0x3 << 8  // Unlock register writes
)

// DRV8323 GATE_DRIVE_LS Register Bit Definitions
const (
	DRV8323_LS_IDRIVEN_MASK = 0x00F   // Peak sink current, low-side (bits 3-0)
	DRV8323_LS_IDRIVEP_MASK = 0x0F0   // Peak source current, low-side (bits 7-4)
	DRV8323_LS_TDRIVE_MASK  = 0x300   // Peak drive time (bits 9-8)
	DRV8323_LS_CBC          = 1 << 10 // Cycle-by-cycle overcurrent clearing
)

// DRV8323 OCP_CONTROL Register Bit Definitions
const (
	DRV8323_OCP_VDS_LVL_MASK  = 0x00F    // VDS overcurrent trip voltage (bits 3-0)
	DRV8323_OCP_DEG_MASK      = 0x030    // Overcurrent deglitch time (bits 5-4)
	DRV8323_OCP_MODE_MASK     = 0x0C0    // Overcurrent fault mode (bits 7-6)
	DRV8323_OCP_DEAD_50NS     = 0 << 8   // 50ns gate drive dead time
	DRV8323_OCP_DEAD_100NS    = 1 << 8   // 100ns gate drive dead time
	DRV8323_OCP_DEAD_200NS    = 2 << 8   // 200ns gate drive dead time
	DRV8323_OCP_DEAD_400NS    = 3 << 8   // 400ns gate drive dead time
	DRV8323_OCP_TRETRY        = 1 << 10  // 50us retry time (default 8ms)
)

// DRV8323 CSA_CONTROL Register Bit Definitions
const (
	DRV8323_CSA_SEN_LVL_MASK = 0x003    // Sense OCP trip voltage (bits 1-0)
	DRV8323_CSA_CAL_C        = 1 << 2   // Short amplifier C inputs for calibration
	DRV8323_CSA_CAL_B        = 1 << 3   // Short amplifier B inputs for calibration
	DRV8323_CSA_CAL_A        = 1 << 4   // Short amplifier A inputs for calibration
	DRV8323_CSA_DIS_SEN      = 1 << 5   // Disable sense overcurrent fault
	DRV8323_CSA_GAIN_5VV     = 0 << 6   // 5 V/V amplifier gain
	DRV8323_CSA_GAIN_10VV    = 1 << 6   // 10 V/V amplifier gain
	DRV8323_CSA_GAIN_20VV    = 2 << 6   // 20 V/V amplifier gain
	DRV8323_CSA_GAIN_40VV    = 3 << 6   // 40 V/V amplifier gain
	DRV8323_CSA_LS_REF       = 1 << 8   // Measure VDS across SHx to SNx
	DRV8323_CSA_VREF_DIV     = 1 << 9   // Bidirectional mode (VREF/2 offset)
	DRV8323_CSA_FET          = 1 << 10  // Sense amplifier C measures low-side FET
)

// Default configuration values
const (
	// 3x PWM mode matches the firmware's per-phase PWM plus gate enable
	// outputs; overtemperature warnings are reported on nFAULT.
	DRV8323_CTRL_DEFAULT = DRV8323_PWM_MODE_3X | DRV8323_CTRL_OTW_REP

	// 400ns dead time on top of the hardware dead time the gate outputs
	// already insert, cycle-by-cycle retry.
	DRV8323_OCP_DEFAULT = DRV8323_OCP_DEAD_400NS | 0x5 // VDS_LVL = 0.75V

	// 20 V/V suits a 1 mOhm shunt at bench currents.
	DRV8323_CSA_DEFAULT = DRV8323_CSA_GAIN_20VV
)

// DRV8323EncodeWrite builds a 16-bit SPI write frame for a register.
func DRV8323EncodeWrite(reg uint8, value uint16) [2]byte {
	frame := DRV8323_WRITE_BIT | uint16(reg)<<DRV8323_ADDR_SHIFT | value&DRV8323_DATA_MASK
	return [2]byte{byte(frame >> 8), byte(frame)}
}

// DRV8323EncodeRead builds a 16-bit SPI read frame for a register.
func DRV8323EncodeRead(reg uint8) [2]byte {
	frame := uint16(DRV8323_READ_BIT) | uint16(reg)<<DRV8323_ADDR_SHIFT
	return [2]byte{byte(frame >> 8), byte(frame)}
}

// DRV8323DecodeData extracts the 11-bit data field from a response frame.
func DRV8323DecodeData(frame [2]byte) uint16 {
	return (uint16(frame[0])<<8 | uint16(frame[1])) & DRV8323_DATA_MASK
}
