package section

import (
	"github.com/arloliu/keyframe/endian"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
)

// TracksFlag is the packed first word of a tracks stream header.
type TracksFlag struct {
	// Options is a packed field for various options.
	// Bit 0 is the stripped key frames flag: some samples live in database tiers.
	// Bit 1 is endianness flag, 0 means little-endian, 1 means big-endian.
	// Bit 2-3 are reserved for future use, must be set to 0.
	// Bit 4-15 are the magic number 0xAC1.
	Options uint16

	// Algorithm is the sampling algorithm tag.
	Algorithm uint8
	// TrackType is the element layout shared by every track of the stream.
	TrackType uint8
}

// NewTracksFlag creates a flag for a little-endian, uniformly sampled transform stream.
func NewTracksFlag() TracksFlag {
	return TracksFlag{
		Options:   MagicTracksV1Opt,
		Algorithm: uint8(format.AlgorithmUniformlySampled),
		TrackType: uint8(format.TrackQVV),
	}
}

// HasStrippedKeyFrames returns whether some samples were removed from clip-local storage.
func (f TracksFlag) HasStrippedKeyFrames() bool {
	return (f.Options & StrippedMask) != 0
}

// SetStrippedKeyFrames enables or disables the stripped key frames flag.
func (f *TracksFlag) SetStrippedKeyFrames(enabled bool) {
	if enabled {
		f.Options |= StrippedMask
	} else {
		f.Options &^= StrippedMask
	}
}

// IsBigEndian returns whether header fields are big-endian.
func (f TracksFlag) IsBigEndian() bool {
	return (f.Options & EndiannessMask) != 0
}

// WithBigEndian sets big-endian byte order.
func (f *TracksFlag) WithBigEndian() {
	f.Options |= EndiannessMask
}

// WithLittleEndian sets little-endian byte order.
func (f *TracksFlag) WithLittleEndian() {
	f.Options &^= EndiannessMask
}

// GetMagicNumber returns the magic number from the Options field.
func (f TracksFlag) GetMagicNumber() uint16 {
	return f.Options & MagicNumberMask
}

// AlgorithmType returns the algorithm tag.
func (f TracksFlag) AlgorithmType() format.AlgorithmType {
	return format.AlgorithmType(f.Algorithm)
}

// Type returns the track type.
func (f TracksFlag) Type() format.TrackType {
	return format.TrackType(f.TrackType)
}

// Validate checks the magic number, reserved bits, and track type.
func (f TracksFlag) Validate() error {
	if f.GetMagicNumber() != MagicTracksV1Opt {
		return errs.ErrInvalidHeaderFlags
	}

	if f.Options&ReservedBitsMask != 0 {
		return errs.ErrInvalidHeaderFlags
	}

	if !f.Type().IsValid() {
		return errs.ErrInvalidHeaderFlags
	}

	return nil
}

// GetEndianEngine returns the endian engine selected by the flag.
func (f TracksFlag) GetEndianEngine() endian.EndianEngine {
	return endian.Select(f.IsBigEndian())
}
