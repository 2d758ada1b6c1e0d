package stream

import "math/bits"

// Segment is a contiguous run of samples sharing one set of bit rates.
type Segment struct {
	// Index is the position of the segment in the segment table.
	Index uint32
	// Start is the clip-relative index of the segment's first sample.
	Start uint32
	// NumSamples is the number of samples covered by the segment.
	NumSamples uint32
	// AnimatedOffset is the byte offset of the segment's packed pose region.
	AnimatedOffset uint32
	// PoseBitSize is the size of one packed pose in bits.
	PoseBitSize uint32
	// Residency marks the clip-local samples of a stripped segment.
	// It covers every sample when the stream is not stripped and the segment fits in 32 samples.
	Residency uint32
	// Formats holds one bit-rate id per channel. It aliases the stream buffer.
	Formats []byte

	stripped bool
}

// StoredPoses returns the number of poses held in the segment's local region.
func (s *Segment) StoredPoses() uint32 {
	if s.stripped {
		return uint32(bits.OnesCount32(s.Residency)) //nolint:gosec // at most 32
	}

	return s.NumSamples
}

// IsStripped reports whether the segment's local storage omits some samples.
func (s *Segment) IsStripped() bool {
	return s.stripped
}

// Contains reports whether the clip-relative key falls in the segment.
func (s *Segment) Contains(key uint32) bool {
	return key >= s.Start && key-s.Start < s.NumSamples
}

// SampleMask returns a bitmap with one bit per segment sample, saturated at 32 samples.
func (s *Segment) SampleMask() uint32 {
	if s.NumSamples >= 32 {
		return ^uint32(0)
	}

	return (uint32(1) << s.NumSamples) - 1
}
