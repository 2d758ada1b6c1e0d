package bitpack

import "encoding/binary"

// MaxBits is the widest value a single read or write may carry.
const MaxBits = 32

// Reader performs random-access reads over a packed bit stream.
//
// The zero value reads from an empty stream. Reader is a value type: it holds
// only the byte slice view and is safe for concurrent use.
type Reader struct {
	data []byte
}

// NewReader creates a Reader over data. The slice is borrowed, not copied.
func NewReader(data []byte) Reader {
	return Reader{data: data}
}

// BitLen returns the number of addressable bits.
func (r Reader) BitLen() uint64 {
	return uint64(len(r.data)) * 8
}

// Bits reads numBits bits starting at absolute bit offset off.
//
// Parameters:
//   - off: Absolute bit offset of the first bit to read
//   - numBits: Number of bits to read (0-32)
//
// Returns:
//   - uint32: The bits, right-aligned
//   - bool: False if numBits is out of range or the read crosses the end of the stream
func (r Reader) Bits(off uint64, numBits int) (uint32, bool) {
	if numBits == 0 {
		return 0, true
	}

	if numBits < 0 || numBits > MaxBits {
		return 0, false
	}

	if off+uint64(numBits) > r.BitLen() || off+uint64(numBits) < off {
		return 0, false
	}

	bytePos := int(off >> 3) //nolint:gosec // bounded by len(data) above
	shift := off & 7

	var window uint64
	if bytePos+8 <= len(r.data) {
		window = binary.BigEndian.Uint64(r.data[bytePos : bytePos+8])
	} else {
		n := len(r.data) - bytePos
		for i := range n {
			window = (window << 8) | uint64(r.data[bytePos+i])
		}
		// Left-align partial reads so extraction is identical to the fast path
		window <<= uint(8-n) * 8
	}

	return uint32((window << shift) >> (64 - uint(numBits))), true //nolint:gosec // at most 32 significant bits
}

// Cursor reads a packed bit stream sequentially from a starting offset.
type Cursor struct {
	r   Reader
	pos uint64
}

// NewCursor creates a Cursor over data positioned at bit offset pos.
func NewCursor(data []byte, pos uint64) Cursor {
	return Cursor{r: NewReader(data), pos: pos}
}

// Pos returns the absolute bit offset of the next read.
func (c *Cursor) Pos() uint64 {
	return c.pos
}

// Read reads numBits bits and advances the cursor.
// The cursor does not move when the read fails.
func (c *Cursor) Read(numBits int) (uint32, bool) {
	v, ok := c.r.Bits(c.pos, numBits)
	if !ok {
		return 0, false
	}
	c.pos += uint64(numBits) //nolint:gosec // numBits validated by Bits

	return v, true
}

// Skip advances the cursor by numBits without reading.
func (c *Cursor) Skip(numBits uint64) {
	c.pos += numBits
}
