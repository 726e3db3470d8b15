package protocol

// InputBuffer is the reader side of the framing layer. Implementations are
// expected to return raw serial bytes in arrival order.
type InputBuffer interface {
	// Data returns the currently buffered bytes without consuming them.
	Data() []byte

	// Available returns the number of buffered bytes.
	Available() int

	// Pop discards n bytes from the front of the buffer.
	Pop(n int)
}

// OutputBuffer is the writer side of the framing layer. The frame encoder
// needs to patch the length byte after the payload is written, hence the
// position-based access.
type OutputBuffer interface {
	// Output appends data to the buffer.
	Output(data []byte)

	// CurPosition returns the current write position.
	CurPosition() int

	// Update overwrites the byte at pos.
	Update(pos int, val byte)

	// DataSince returns everything written since pos.
	DataSince(pos int) []byte
}

// SliceInputBuffer adapts a byte slice to InputBuffer. Used in tests and by
// the host transport.
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte {
	return s.data
}

func (s *SliceInputBuffer) Available() int {
	return len(s.data)
}

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput is a fixed-size OutputBuffer. No allocation after creation,
// which keeps the MCU-side response path heap-free.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < len(s.buf) {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written so far.
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset discards all written data.
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a ring buffer sitting between the serial ISR and the frame
// parser. One slot is kept free to distinguish full from empty.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends as much of data as fits and returns the count written.
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			break // full
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Read copies up to len(data) bytes out and returns the count read.
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break // empty
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of readable bytes.
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of writable bytes.
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Data returns the readable bytes as a contiguous slice. The wrapped case
// copies; the frame parser needs contiguous data to scan a whole message.
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}

	avail := f.Available()
	result := make([]byte, avail)
	firstLen := f.size - f.read
	copy(result, f.buf[f.read:])
	copy(result[firstLen:], f.buf[:f.write])
	return result
}

// Pop discards n bytes from the front.
func (f *FifoBuffer) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset empties the buffer.
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
