package section

import "math"

const (
	// Bit masks of the packed Options field shared by stream and database headers
	StrippedMask     = 0x0001 // Mask for stripped key frames bit (bit 0), tracks header only
	EndiannessMask   = 0x0002 // Mask for endianness bit (bit 1)
	ReservedBitsMask = 0x000C // Mask for reserved bits (bits 2-3), must be zero
	MagicNumberMask  = 0xFFF0 // Mask for magic number (bits 4-15)

	// Magic numbers (bits 4-15)
	MagicTracksV1Opt   = 0xAC10 // MagicTracksV1Opt identifies a compressed tracks stream.
	MagicDatabaseV1Opt = 0xAD10 // MagicDatabaseV1Opt identifies a compiled tier database.
)

// offset and section sizes
const (
	TracksHeaderSize   = 48 // fixed tracks stream header size in bytes
	DatabaseHeaderSize = 40 // fixed compiled database header size in bytes
	SegmentHeaderSize  = 12 // fixed per-segment header size in bytes
	SegmentStartSize   = 4  // size of one segment start table entry
	TierEntrySize      = 8  // size of one compiled tier entry (bitmap + offset)
	PoolValueSize      = 4  // size of one float32 pool value

	// SegmentStartSentinel terminates the segment start table.
	SegmentStartSentinel = math.MaxUint32

	// MaxStrippedSegmentSamples is the widest residency bitmap.
	MaxStrippedSegmentSamples = 32
)
