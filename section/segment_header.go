package section

import (
	"github.com/arloliu/keyframe/endian"
	"github.com/arloliu/keyframe/errs"
)

// SegmentHeader describes where one segment's packed poses live.
type SegmentHeader struct {
	// AnimatedOffset is the byte offset of the segment's packed pose region.
	AnimatedOffset uint32 // byte offset 0-3
	// PoseBitSize is the size of one packed pose in bits.
	PoseBitSize uint32 // byte offset 4-7
	// Residency marks the samples stored clip-locally, bit i for segment-relative sample i.
	Residency uint32 // byte offset 8-11
}

// Parse parses the segment header from a byte slice of exactly SegmentHeaderSize bytes.
func (s *SegmentHeader) Parse(data []byte, engine endian.EndianEngine) error {
	if len(data) != SegmentHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	s.AnimatedOffset = engine.Uint32(data[0:4])
	s.PoseBitSize = engine.Uint32(data[4:8])
	s.Residency = engine.Uint32(data[8:12])

	return nil
}

// Append appends the serialized segment header to b.
func (s SegmentHeader) Append(b []byte, engine endian.EndianEngine) []byte {
	b = engine.AppendUint32(b, s.AnimatedOffset)
	b = engine.AppendUint32(b, s.PoseBitSize)

	return engine.AppendUint32(b, s.Residency)
}
