// Package protocol implements the Klipper-style message block framing used
// between the brushless firmware and its host: length/sequence header, VLQ
// encoded arguments, CRC16 trailer and a sync byte.
package protocol

// Version is the firmware version advertised in the identify dictionary.
const Version = "brushless-0.1.0"

// Framing constants
const (
	MessageMax     = 512 // Output scratch size; large enough for several queued frames
	MessageMin     = 5   // Smallest valid frame (header + CRC + sync)
	MessageHeader  = 2   // Length byte + sequence byte
	MessageTrailer = 3   // CRC16 + sync byte

	MessageSeqMask  = 0x0F
	MessageSeqShift = 4
)

// MessageBlock is one framed message on the wire.
type MessageBlock struct {
	Length   uint8
	Sequence uint8
	Data     []byte
	CRC      uint16
}
