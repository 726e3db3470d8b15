package protocol

import "sync/atomic"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
)

// CommandHandler is invoked for each command decoded out of a valid frame.
// The handler decodes its own arguments from *data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the MCU-side framing state machine: it validates incoming
// frames, dispatches their commands, and encodes ACKs and response frames.
type Transport struct {
	isSynchronized uint32 // atomic bool
	nextSequence   uint32 // atomic; expected host sequence (0x10..0x1F)

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func() // invoked when a host reset is detected
	flushCallback func() // invoked to push an ACK out immediately
}

// NewTransport creates a transport writing frames to output and dispatching
// commands to handler.
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		isSynchronized: 1,
		nextSequence:   MessageDest,
		output:         output,
		handler:        handler,
	}
}

// Receive consumes whatever complete frames are available in input. Partial
// frames are left buffered; framing errors drop to resync-on-sync-byte mode.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			// Scan for a sync byte; everything before it is garbage.
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				data = data[syncPos+1:]
				t.setSynchronized(true)
				t.encodeAckNak()
			} else {
				data = nil
			}
			continue
		}

		// Skip leading sync bytes between frames.
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			t.setSynchronized(false)
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			t.setSynchronized(false)
			continue
		}

		if len(data) < msgLen {
			break // wait for the rest of the frame
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			t.setSynchronized(false)
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			t.setSynchronized(false)
			continue
		}

		frame := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]

		// Sequence falling back to MessageDest means the host restarted.
		expectedSeq := uint8(atomic.LoadUint32(&t.nextSequence))
		if seq == MessageDest && expectedSeq != MessageDest {
			atomic.StoreUint32(&t.nextSequence, MessageDest)
			expectedSeq = MessageDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}

		if seq == expectedSeq {
			nextSeq := ((seq + 1) & MessageSeqMask) | MessageDest
			atomic.StoreUint32(&t.nextSequence, uint32(nextSeq))
			_ = t.parseFrame(frame)
		}
		// ACK goes out whether or not the sequence matched; a mismatch makes
		// this a NAK carrying the sequence we expected.
		t.encodeAckNak()
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame dispatches every command packed into one frame.
func (t *Transport) parseFrame(frame []byte) (err error) {
	// A panicking handler must not take the firmware down; force a resync
	// instead and let the host retry.
	defer func() {
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.setSynchronized(false)
			return err
		}

		if t.handler != nil {
			if err := t.handler(uint16(cmdID), &frame); err != nil {
				// Handler errors abort the frame but keep sync.
				return err
			}
		}
	}
	return nil
}

// encodeAckNak emits a bare ACK frame. The host's serial queue blocks on
// the ACK before it accepts responses, so it is flushed immediately rather
// than batched with response frames.
func (t *Transport) encodeAckNak() {
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	crc := CRC16([]byte{5, ns})

	t.output.Output([]byte{
		5,
		ns,
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame frames and writes one outgoing message. Responses reuse the
// current sequence number; several responses may share it.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	frameData(t.output)

	// Patch the length byte now that the payload size is known.
	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}

// SendCommand frames a command/response by ID with VLQ-encoded arguments.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset restores initial transport state after a USB disconnect/reconnect.
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.nextSequence, MessageDest)

	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback registers a callback fired when a host reset is seen.
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback registers the immediate-flush hook used for ACKs.
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

func (t *Transport) getSynchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&t.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&t.isSynchronized, 0)
	}
}
