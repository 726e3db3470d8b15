package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// EncodeVLQInt writes a signed integer in Klipper's variable length
// encoding: 7 bits per byte, most significant group first, high bit set on
// continuation bytes.
func EncodeVLQInt(output OutputBuffer, v int32) {
	if !(-(1<<26) <= v && v < (3<<26)) {
		output.Output([]byte{byte((v>>28)&0x7F) | 0x80})
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		output.Output([]byte{byte((v>>21)&0x7F) | 0x80})
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		output.Output([]byte{byte((v>>14)&0x7F) | 0x80})
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		output.Output([]byte{byte((v>>7)&0x7F) | 0x80})
	}
	output.Output([]byte{byte(v & 0x7F)})
}

// EncodeVLQUint writes an unsigned integer; the wire format is shared with
// the signed encoder.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt reads a signed VLQ value and advances *data past the
// consumed bytes.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if (c & 0x60) == 0x60 {
		// First byte carries the sign; extend it
		v |= ^uint32(0x1F)
	}

	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeVLQUint reads an unsigned VLQ value and advances *data.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	val, err := DecodeVLQInt(data)
	return uint32(val), err
}

// EncodeVLQBytes writes a length-prefixed byte array.
func EncodeVLQBytes(output OutputBuffer, data []byte) {
	EncodeVLQUint(output, uint32(len(data)))
	output.Output(data)
}

// DecodeVLQBytes reads a length-prefixed byte array and advances *data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	length, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if len(*data) < int(length) {
		return nil, ErrBufferTooSmall
	}
	result := (*data)[:length]
	*data = (*data)[length:]
	return result, nil
}

// EncodeVLQString writes a length-prefixed string.
func EncodeVLQString(output OutputBuffer, s string) {
	b := []byte(s)
	EncodeVLQUint(output, uint32(len(b)))
	output.Output(b)
}

// DecodeVLQString reads a length-prefixed string and advances *data.
func DecodeVLQString(data *[]byte) (string, error) {
	b, err := DecodeVLQBytes(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
