package database

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/keyframe/endian"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/hash"
	"github.com/arloliu/keyframe/section"
	"github.com/arloliu/keyframe/stream"
)

// Database is a parsed, read-only view of a compiled tier database.
//
// It describes, for the medium and lowest tiers, which samples of each segment the
// tier provides and where they start in the tier's bulk data. The bulk data itself
// is supplied separately to a Context.
type Database struct {
	data    []byte
	header  section.DatabaseHeader
	engine  endian.EndianEngine
	entries [2][]section.TierEntry
}

// Parse parses and validates a compiled database.
//
// Parameters:
//   - data: The database bytes (at least TotalSize bytes)
//
// Returns:
//   - *Database: The parsed view
//   - error: ErrInvalidHeaderSize or ErrInvalidHeaderFlags for a bad header, ErrFormat for an
//     unsupported version, ErrHashMismatch for a corrupted payload, ErrCorruptStream for an
//     entry table that does not fit or points outside the bulk data
func Parse(data []byte) (*Database, error) {
	header, err := section.ParseDatabaseHeader(data)
	if err != nil {
		return nil, err
	}

	db := &Database{
		header: header,
		engine: header.GetEndianEngine(),
	}

	if format.Version(header.Version) != format.VersionTiered {
		return nil, fmt.Errorf("%w: database version %d", errs.ErrFormat, header.Version)
	}

	if header.TotalSize < section.DatabaseHeaderSize || int(header.TotalSize) > len(data) {
		return nil, fmt.Errorf("%w: database size %d, buffer %d", errs.ErrCorruptStream, header.TotalSize, len(data))
	}

	db.data = data[:header.TotalSize]
	if sum := hash.Content(db.data[section.DatabaseHeaderSize:]); sum != header.Hash {
		return nil, fmt.Errorf("%w: stored %#08x, computed %#08x", errs.ErrHashMismatch, header.Hash, sum)
	}

	if err := db.parseEntries(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *Database) parseEntries() error {
	h := &db.header

	tableSize := uint64(len(db.entries)) * uint64(h.NumSegments) * section.TierEntrySize
	if h.EntriesOffset < section.DatabaseHeaderSize || uint64(h.EntriesOffset)+tableSize > uint64(h.TotalSize) {
		return fmt.Errorf("%w: entry table exceeds database", errs.ErrCorruptStream)
	}

	off := int(h.EntriesOffset)
	for tier := range db.entries {
		db.entries[tier] = make([]section.TierEntry, h.NumSegments)
		for s := range db.entries[tier] {
			entry := &db.entries[tier][s]
			if err := entry.Parse(db.data[off:off+section.TierEntrySize], db.engine); err != nil {
				return err
			}
			off += section.TierEntrySize

			if entry.Bitmap != 0 && entry.Offset >= h.BulkSize[tier] {
				return fmt.Errorf("%w: %s segment %d offset %d beyond bulk size %d",
					errs.ErrCorruptStream, format.StreamedTiers[tier], s, entry.Offset, h.BulkSize[tier])
			}
		}
	}

	return nil
}

// Validate checks that the database was split from tracks and that every tier entry
// describes samples the stream stripped, with poses that fit in the tier's bulk data.
//
// Returns:
//   - error: ErrFormat when the database belongs to another stream or the stream does not
//     strip key frames, ErrCorruptStream for inconsistent residency or bulk layout
func (db *Database) Validate(tracks *stream.Tracks) error {
	if db.header.TracksHash != tracks.Hash() {
		return fmt.Errorf("%w: database built for stream %#08x, bound to %#08x",
			errs.ErrFormat, db.header.TracksHash, tracks.Hash())
	}

	if !tracks.HasStrippedKeyFrames() {
		return fmt.Errorf("%w: database bound to a stream without stripped key frames", errs.ErrFormat)
	}

	if tracks.Version() != format.Version(db.header.Version) {
		return fmt.Errorf("%w: database version %d, stream version %s", errs.ErrFormat, db.header.Version, tracks.Version())
	}

	if db.header.NumSegments != tracks.NumSegments() {
		return fmt.Errorf("%w: database has %d segments, stream has %d",
			errs.ErrCorruptStream, db.header.NumSegments, tracks.NumSegments())
	}

	for s := range tracks.Segments() {
		seg := &tracks.Segments()[s]
		claimed := seg.Residency

		for tier := range db.entries {
			entry := db.entries[tier][s]
			if entry.Bitmap&^seg.SampleMask() != 0 || entry.Bitmap&claimed != 0 {
				return fmt.Errorf("%w: %s segment %d bitmap %#x overlaps resident samples",
					errs.ErrCorruptStream, format.StreamedTiers[tier], s, entry.Bitmap)
			}
			claimed |= entry.Bitmap

			poses := uint64(bits.OnesCount32(entry.Bitmap))
			end := uint64(entry.Offset) + (poses*uint64(seg.PoseBitSize)+7)/8
			if poses > 0 && end > uint64(db.header.BulkSize[tier]) {
				return fmt.Errorf("%w: %s segment %d poses end at %d beyond bulk size %d",
					errs.ErrCorruptStream, format.StreamedTiers[tier], s, end, db.header.BulkSize[tier])
			}
		}
	}

	return nil
}

// Header returns a copy of the parsed header.
func (db *Database) Header() section.DatabaseHeader {
	return db.header
}

// Hash returns the content hash identifying the database.
func (db *Database) Hash() uint32 {
	return db.header.Hash
}

// TracksHash returns the hash of the stream the database was split from.
func (db *Database) TracksHash() uint32 {
	return db.header.TracksHash
}

// NumSegments returns the number of segments described by the database.
func (db *Database) NumSegments() uint32 {
	return db.header.NumSegments
}

// Data returns the database bytes, truncated to TotalSize.
func (db *Database) Data() []byte {
	return db.data
}

// BulkSize returns the uncompressed bulk data size of a streamed tier.
func (db *Database) BulkSize(tier format.QualityTier) (int, error) {
	idx, ok := section.TierIndex(tier)
	if !ok {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidTier, tier)
	}

	return int(db.header.BulkSize[idx]), nil
}

// Compression returns the bulk data compression of a streamed tier.
func (db *Database) Compression(tier format.QualityTier) (format.CompressionType, error) {
	idx, ok := section.TierIndex(tier)
	if !ok {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidTier, tier)
	}

	return format.CompressionType(db.header.Compression[idx]), nil
}

// Entry returns the compiled residency of a streamed tier for one segment.
func (db *Database) Entry(tier format.QualityTier, segment uint32) (section.TierEntry, error) {
	idx, ok := section.TierIndex(tier)
	if !ok {
		return section.TierEntry{}, fmt.Errorf("%w: %s", errs.ErrInvalidTier, tier)
	}

	if segment >= db.header.NumSegments {
		return section.TierEntry{}, fmt.Errorf("%w: segment %d of %d", errs.ErrCorruptStream, segment, db.header.NumSegments)
	}

	return db.entries[idx][segment], nil
}
