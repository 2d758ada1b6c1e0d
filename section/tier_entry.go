package section

import (
	"github.com/arloliu/keyframe/endian"
	"github.com/arloliu/keyframe/errs"
)

// TierEntry is the residency a tier publishes for one segment once streamed in.
//
// At runtime the entry is held as a single 64-bit metadata word: the bitmap in
// the low 32 bits and the bulk data byte offset in the high 32 bits.
type TierEntry struct {
	// Bitmap marks the segment-relative samples held by the tier.
	Bitmap uint32
	// Offset is the byte offset of the segment's data in the tier's bulk buffer.
	Offset uint32
}

// Pack returns the 64-bit metadata word for the entry.
func (e TierEntry) Pack() uint64 {
	return uint64(e.Offset)<<32 | uint64(e.Bitmap)
}

// UnpackTierEntry splits a 64-bit metadata word into its bitmap and offset.
func UnpackTierEntry(word uint64) TierEntry {
	return TierEntry{
		Bitmap: uint32(word),       //nolint:gosec // low half by definition
		Offset: uint32(word >> 32), //nolint:gosec // high half by definition
	}
}

// Parse parses the entry from a byte slice of exactly TierEntrySize bytes.
func (e *TierEntry) Parse(data []byte, engine endian.EndianEngine) error {
	if len(data) != TierEntrySize {
		return errs.ErrInvalidHeaderSize
	}

	e.Bitmap = engine.Uint32(data[0:4])
	e.Offset = engine.Uint32(data[4:8])

	return nil
}

// Append appends the serialized entry to b.
func (e TierEntry) Append(b []byte, engine endian.EndianEngine) []byte {
	b = engine.AppendUint32(b, e.Bitmap)
	return engine.AppendUint32(b, e.Offset)
}
