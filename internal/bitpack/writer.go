package bitpack

import (
	"encoding/binary"

	"github.com/arloliu/keyframe/internal/pool"
)

// Writer appends values to a packed MSB-first bit stream.
//
// Bits are accumulated in a 64-bit buffer and flushed to a pooled byte buffer
// whenever it fills. Call Bytes to obtain the stream (padded with zero bits to a
// whole byte) and Finish to return the buffer to the pool.
type Writer struct {
	bitBuf   uint64
	bitCount int
	total    uint64
	buf      *pool.ByteBuffer
}

// NewWriter creates a Writer backed by a pooled buffer.
func NewWriter() *Writer {
	return &Writer{buf: pool.GetBuffer()}
}

// BitLen returns the total number of bits written.
func (w *Writer) BitLen() uint64 {
	return w.total
}

// WriteBits writes the low numBits bits of value (numBits 0-32).
func (w *Writer) WriteBits(value uint32, numBits int) {
	if w.buf == nil {
		panic("bitpack: writer already finished")
	}

	if numBits <= 0 {
		return
	}

	if numBits > MaxBits {
		panic("bitpack: write wider than 32 bits")
	}

	v := uint64(value) & ((1 << uint(numBits)) - 1)
	w.total += uint64(numBits)

	available := 64 - w.bitCount
	if numBits <= available {
		w.bitBuf = (w.bitBuf << uint(numBits)) | v
		w.bitCount += numBits
		if w.bitCount == 64 {
			w.flush()
		}

		return
	}

	// Split across buffer boundary
	highBits := numBits - available
	w.bitBuf = (w.bitBuf << uint(available)) | (v >> uint(highBits))
	w.bitCount = 64
	w.flush()

	w.bitBuf = v & ((1 << uint(highBits)) - 1)
	w.bitCount = highBits
}

// PadToByte writes zero bits up to the next byte boundary.
func (w *Writer) PadToByte() {
	if rem := w.total % 8; rem != 0 {
		w.WriteBits(0, int(8-rem))
	}
}

// Bytes flushes pending bits and returns the stream.
// The slice is valid until the next write or Finish.
func (w *Writer) Bytes() []byte {
	if w.buf == nil {
		panic("bitpack: writer already finished")
	}

	if w.bitCount > 0 {
		// Keep pending bits readable without disturbing later writes
		pending, count := w.bitBuf, w.bitCount
		out := w.buf.Bytes()
		aligned := pending << uint(64-count)
		for i := 0; i < (count+7)/8; i++ {
			out = append(out, byte(aligned>>uint(56-i*8)))
		}

		return out[:len(out):len(out)]
	}

	return w.buf.Bytes()
}

// Finish returns the buffer to the pool. The writer is unusable afterwards.
func (w *Writer) Finish() {
	if w.buf == nil {
		return
	}

	pool.PutBuffer(w.buf)
	w.buf = nil
}

func (w *Writer) flush() {
	if w.bitCount == 0 {
		return
	}

	start := w.buf.Len()
	w.buf.ExtendOrGrow(8)
	binary.BigEndian.PutUint64(w.buf.Slice(start, start+8), w.bitBuf)

	w.bitBuf = 0
	w.bitCount = 0
}
