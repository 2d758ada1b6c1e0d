package section

import (
	"math"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
)

// TracksHeader is the fixed-size header at the start of a compressed tracks stream.
type TracksHeader struct {
	// Flag is the packed options, algorithm, and track type word.
	Flag TracksFlag // byte offset 0-3
	// Version selects the bit-rate table and database support.
	Version uint16 // byte offset 4-5
	// LoopingPolicy is the policy the stream was compressed with.
	LoopingPolicy uint8 // byte offset 6
	// Hash is the content hash of bytes [TracksHeaderSize, TotalSize).
	Hash uint32 // byte offset 8-11
	// NumTracks is the number of tracks.
	NumTracks uint32 // byte offset 12-15
	// NumSamples is the number of samples per track.
	NumSamples uint32 // byte offset 16-19
	// SampleRate is the number of samples per second.
	SampleRate float32 // byte offset 20-23
	// NumSegments is the number of entries in the segment table, excluding the sentinel.
	NumSegments uint32 // byte offset 24-27
	// SegmentTableOffset is the byte offset of the segment start table.
	SegmentTableOffset uint32 // byte offset 28-31
	// ConstantPoolOffset is the byte offset of the constant value pool.
	ConstantPoolOffset uint32 // byte offset 32-35
	// RangePoolOffset is the byte offset of the range value pool.
	RangePoolOffset uint32 // byte offset 36-39
	// FormatTableOffset is the byte offset of the per-segment bit-rate table.
	FormatTableOffset uint32 // byte offset 40-43
	// TotalSize is the size of the stream in bytes.
	TotalSize uint32 // byte offset 44-47
}

// NewTracksHeader creates a header for a latest-version transform stream.
// Counts and offsets are filled in by the stream writer.
func NewTracksHeader() *TracksHeader {
	return &TracksHeader{
		Flag:          NewTracksFlag(),
		Version:       uint16(format.VersionLatest),
		LoopingPolicy: uint8(format.LoopingClamp),
	}
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the header (must be exactly TracksHeaderSize bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize if data has the wrong size, or flag validation errors
func (h *TracksHeader) Parse(data []byte) error {
	if len(data) != TracksHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	// Options is always little-endian so the endianness bit can be read first
	h.Flag.Options = uint16(data[0]) | (uint16(data[1]) << 8)
	h.Flag.Algorithm = data[2]
	h.Flag.TrackType = data[3]

	engine := h.Flag.GetEndianEngine()

	h.Version = engine.Uint16(data[4:6])
	h.LoopingPolicy = data[6]
	h.Hash = engine.Uint32(data[8:12])
	h.NumTracks = engine.Uint32(data[12:16])
	h.NumSamples = engine.Uint32(data[16:20])
	h.SampleRate = math.Float32frombits(engine.Uint32(data[20:24]))
	h.NumSegments = engine.Uint32(data[24:28])
	h.SegmentTableOffset = engine.Uint32(data[28:32])
	h.ConstantPoolOffset = engine.Uint32(data[32:36])
	h.RangePoolOffset = engine.Uint32(data[36:40])
	h.FormatTableOffset = engine.Uint32(data[40:44])
	h.TotalSize = engine.Uint32(data[44:48])

	return h.Flag.Validate()
}

// Bytes serializes the header into a byte slice.
func (h *TracksHeader) Bytes() []byte {
	b := make([]byte, TracksHeaderSize)

	engine := h.Flag.GetEndianEngine()

	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = h.Flag.Algorithm
	b[3] = h.Flag.TrackType
	engine.PutUint16(b[4:6], h.Version)
	b[6] = h.LoopingPolicy
	engine.PutUint32(b[8:12], h.Hash)
	engine.PutUint32(b[12:16], h.NumTracks)
	engine.PutUint32(b[16:20], h.NumSamples)
	engine.PutUint32(b[20:24], math.Float32bits(h.SampleRate))
	engine.PutUint32(b[24:28], h.NumSegments)
	engine.PutUint32(b[28:32], h.SegmentTableOffset)
	engine.PutUint32(b[32:36], h.ConstantPoolOffset)
	engine.PutUint32(b[36:40], h.RangePoolOffset)
	engine.PutUint32(b[40:44], h.FormatTableOffset)
	engine.PutUint32(b[44:48], h.TotalSize)

	return b
}

// ParseTracksHeader parses a TracksHeader from the start of a byte slice.
//
// Parameters:
//   - data: Byte slice containing the stream (must be at least TracksHeaderSize bytes)
//
// Returns:
//   - TracksHeader: Parsed header struct
//   - error: ErrInvalidHeaderSize or flag validation errors
func ParseTracksHeader(data []byte) (TracksHeader, error) {
	if len(data) < TracksHeaderSize {
		return TracksHeader{}, errs.ErrInvalidHeaderSize
	}

	h := TracksHeader{}
	if err := h.Parse(data[:TracksHeaderSize]); err != nil {
		return TracksHeader{}, err
	}

	return h, nil
}
