package section

import (
	"github.com/arloliu/keyframe/endian"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
)

// DatabaseHeader is the fixed-size header at the start of a compiled tier database.
type DatabaseHeader struct {
	// Options is a packed field: bit 1 endianness, bits 2-3 reserved, bits 4-15 magic 0xAD1.
	Options uint16 // byte offset 0-1
	// Version is the tracks version the database was compiled for.
	Version uint16 // byte offset 2-3
	// Hash is the content hash of bytes [DatabaseHeaderSize, TotalSize).
	Hash uint32 // byte offset 4-7
	// TracksHash is the hash of the tracks stream whose samples were moved into this database.
	TracksHash uint32 // byte offset 8-11
	// NumSegments is the number of segments of the bound stream.
	NumSegments uint32 // byte offset 12-15
	// BulkSize holds the uncompressed bulk data size of the medium and lowest tiers.
	BulkSize [2]uint32 // byte offset 16-23
	// Compression holds the bulk data compression of the medium and lowest tiers.
	Compression [2]uint8 // byte offset 24-25
	// EntriesOffset is the byte offset of the tier entry table.
	EntriesOffset uint32 // byte offset 28-31
	// TotalSize is the size of the database in bytes.
	TotalSize uint32 // byte offset 32-35
}

// NewDatabaseHeader creates a little-endian header with uncompressed tiers.
func NewDatabaseHeader() *DatabaseHeader {
	return &DatabaseHeader{
		Options:     MagicDatabaseV1Opt,
		Version:     uint16(format.VersionTiered),
		Compression: [2]uint8{uint8(format.CompressionNone), uint8(format.CompressionNone)},
	}
}

// IsBigEndian returns whether header fields are big-endian.
func (h *DatabaseHeader) IsBigEndian() bool {
	return (h.Options & EndiannessMask) != 0
}

// GetEndianEngine returns the endian engine selected by the options.
func (h *DatabaseHeader) GetEndianEngine() endian.EndianEngine {
	return endian.Select(h.IsBigEndian())
}

// TierIndex maps a streamed quality tier to its slot in BulkSize, Compression, and the entry table.
// It returns false for the clip-local tier.
func TierIndex(tier format.QualityTier) (int, bool) {
	switch tier {
	case format.TierMedium:
		return 0, true
	case format.TierLowest:
		return 1, true
	default:
		return 0, false
	}
}

// Parse parses the header from a byte slice of exactly DatabaseHeaderSize bytes.
//
// Returns:
//   - error: ErrInvalidHeaderSize if data has the wrong size, ErrInvalidHeaderFlags for
//     a bad magic number, reserved bits, or compression type
func (h *DatabaseHeader) Parse(data []byte) error {
	if len(data) != DatabaseHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	h.Options = uint16(data[0]) | (uint16(data[1]) << 8)
	if h.Options&MagicNumberMask != MagicDatabaseV1Opt || h.Options&(ReservedBitsMask|StrippedMask) != 0 {
		return errs.ErrInvalidHeaderFlags
	}

	engine := h.GetEndianEngine()

	h.Version = engine.Uint16(data[2:4])
	h.Hash = engine.Uint32(data[4:8])
	h.TracksHash = engine.Uint32(data[8:12])
	h.NumSegments = engine.Uint32(data[12:16])
	h.BulkSize[0] = engine.Uint32(data[16:20])
	h.BulkSize[1] = engine.Uint32(data[20:24])
	h.Compression[0] = data[24]
	h.Compression[1] = data[25]
	h.EntriesOffset = engine.Uint32(data[28:32])
	h.TotalSize = engine.Uint32(data[32:36])

	for _, c := range h.Compression {
		if c < uint8(format.CompressionNone) || c > uint8(format.CompressionLZ4) {
			return errs.ErrInvalidHeaderFlags
		}
	}

	return nil
}

// Bytes serializes the header into a byte slice.
func (h *DatabaseHeader) Bytes() []byte {
	b := make([]byte, DatabaseHeaderSize)

	engine := h.GetEndianEngine()

	b[0] = byte(h.Options)
	b[1] = byte(h.Options >> 8)
	engine.PutUint16(b[2:4], h.Version)
	engine.PutUint32(b[4:8], h.Hash)
	engine.PutUint32(b[8:12], h.TracksHash)
	engine.PutUint32(b[12:16], h.NumSegments)
	engine.PutUint32(b[16:20], h.BulkSize[0])
	engine.PutUint32(b[20:24], h.BulkSize[1])
	b[24] = h.Compression[0]
	b[25] = h.Compression[1]
	engine.PutUint32(b[28:32], h.EntriesOffset)
	engine.PutUint32(b[32:36], h.TotalSize)

	return b
}

// ParseDatabaseHeader parses a DatabaseHeader from the start of a byte slice.
func ParseDatabaseHeader(data []byte) (DatabaseHeader, error) {
	if len(data) < DatabaseHeaderSize {
		return DatabaseHeader{}, errs.ErrInvalidHeaderSize
	}

	h := DatabaseHeader{}
	if err := h.Parse(data[:DatabaseHeaderSize]); err != nil {
		return DatabaseHeader{}, err
	}

	return h, nil
}
