package database

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arloliu/keyframe/compress"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/options"
	"github.com/arloliu/keyframe/section"
)

const numStreamedTiers = len(format.StreamedTiers)

// Context holds the streaming state of a database: which tiers are resident, and
// for each segment the residency bitmap and bulk offset each tier currently publishes.
//
// One Context is shared by every decompression context bound to the database.
// Stream-in and stream-out calls are serialized internally and may run concurrently
// with any number of readers. Readers never block: they observe each segment's
// 64-bit metadata word atomically.
//
// Publication order: a tier's resident buffer is stored before any of its segment
// words become non-zero, and on stream-out every word is cleared before the buffer.
// A reader that loads the buffer first and the word second therefore never sees a
// set bit without a buffer holding the data.
type Context struct {
	db     *Database
	logger *slog.Logger

	// bulk holds the caller's (possibly compressed) bulk data per tier.
	bulk [numStreamedTiers][]byte

	mu       sync.Mutex
	resident [numStreamedTiers]atomic.Pointer[[]byte]
	words    [numStreamedTiers][]atomic.Uint64
	// generation advances after every stream-in or stream-out.
	generation atomic.Uint64
}

// Option configures a Context.
type Option = options.Option[*Context]

// WithBulkData supplies the bulk data of a streamed tier, exactly as stored next to
// the compiled database. The slice is borrowed and must not be modified while the
// context is alive.
func WithBulkData(tier format.QualityTier, data []byte) Option {
	return options.New(func(c *Context) error {
		idx, ok := section.TierIndex(tier)
		if !ok {
			return fmt.Errorf("%w: %s has no bulk data", errs.ErrInvalidTier, tier)
		}
		c.bulk[idx] = data

		return nil
	})
}

// WithLogger sets the logger used for stream-in and stream-out events.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// NewContext creates the streaming state for db. No tier is resident afterwards.
//
// Parameters:
//   - db: The parsed database
//   - opts: Bulk data and logger options
//
// Returns:
//   - *Context: The streaming state
//   - error: Option errors such as ErrInvalidTier
func NewContext(db *Database, opts ...Option) (*Context, error) {
	c := &Context{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
	}

	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	for i := range c.words {
		c.words[i] = make([]atomic.Uint64, db.NumSegments())
	}

	return c, nil
}

// Database returns the database the context streams.
func (c *Context) Database() *Database {
	return c.db
}

// Hash returns the hash of the bound database.
func (c *Context) Hash() uint32 {
	return c.db.Hash()
}

// HasBulkData reports whether bulk data was supplied for the tier.
func (c *Context) HasBulkData(tier format.QualityTier) bool {
	idx, ok := section.TierIndex(tier)
	return ok && c.bulk[idx] != nil
}

// StreamIn makes every segment of a tier resident.
//
// Returns:
//   - error: ErrInvalidTier for the clip-local tier, ErrBulkDataMissing when no bulk
//     data was supplied, or a decompression error
func (c *Context) StreamIn(tier format.QualityTier) error {
	return c.StreamInRange(tier, 0, c.db.NumSegments())
}

// StreamInRange makes count segments of a tier resident, starting at firstSegment.
// The range is clipped to the database's segments.
//
// The tier's bulk data is decompressed on the first call and kept until StreamOut.
func (c *Context) StreamInRange(tier format.QualityTier, firstSegment, count uint32) error {
	idx, ok := section.TierIndex(tier)
	if !ok {
		return fmt.Errorf("%w: %s cannot be streamed", errs.ErrInvalidTier, tier)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resident[idx].Load() == nil {
		if c.bulk[idx] == nil {
			return fmt.Errorf("%w: %s", errs.ErrBulkDataMissing, tier)
		}

		ct, _ := c.db.Compression(tier)
		size, _ := c.db.BulkSize(tier)
		buf, err := compress.DecompressSized(ct, c.bulk[idx], size)
		if err != nil {
			return fmt.Errorf("stream in %s: %w", tier, err)
		}

		c.resident[idx].Store(&buf)
		c.logger.Debug("tier bulk data resident",
			slog.String("tier", tier.String()),
			slog.String("compression", ct.String()),
			slog.Int("size", size))
	}

	numSegments := c.db.NumSegments()
	end := min(uint64(firstSegment)+uint64(count), uint64(numSegments))
	published := 0
	for s := uint64(firstSegment); s < end; s++ {
		entry := c.db.entries[idx][s]
		if entry.Bitmap == 0 {
			continue
		}
		c.words[idx][s].Store(entry.Pack())
		published++
	}
	c.generation.Add(1)

	c.logger.Info("tier streamed in",
		slog.String("tier", tier.String()),
		slog.Uint64("first_segment", uint64(firstSegment)),
		slog.Int("segments", published),
		slog.Uint64("database", uint64(c.db.Hash())))

	return nil
}

// StreamOut evicts every segment of a tier. Readers fall back to other tiers or to
// clip-local data.
func (c *Context) StreamOut(tier format.QualityTier) error {
	idx, ok := section.TierIndex(tier)
	if !ok {
		return fmt.Errorf("%w: %s cannot be streamed", errs.ErrInvalidTier, tier)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for s := range c.words[idx] {
		c.words[idx][s].Store(0)
	}
	c.resident[idx].Store(nil)
	c.generation.Add(1)

	c.logger.Info("tier streamed out",
		slog.String("tier", tier.String()),
		slog.Uint64("database", uint64(c.db.Hash())))

	return nil
}

// Generation returns a counter that advances after every stream-in and stream-out.
// Decompression contexts compare it to detect residency changes between seeks.
func (c *Context) Generation() uint64 {
	return c.generation.Load()
}

// IsResident reports whether the tier's bulk data is currently resident.
func (c *Context) IsResident(tier format.QualityTier) bool {
	idx, ok := section.TierIndex(tier)
	return ok && c.resident[idx].Load() != nil
}

// TierMetadata returns the residency a tier currently publishes for a segment.
// It is the zero entry for the clip-local tier and for segments out of range.
func (c *Context) TierMetadata(tier format.QualityTier, segment uint32) section.TierEntry {
	idx, ok := section.TierIndex(tier)
	if !ok || int(segment) >= len(c.words[idx]) {
		return section.TierEntry{}
	}

	return section.UnpackTierEntry(c.words[idx][segment].Load())
}

// Load returns a streamed tier's resident buffer and its metadata for one segment,
// indexed by position in format.StreamedTiers.
//
// The buffer is loaded before the metadata word; when no buffer is resident the
// zero entry is returned so the tier is ignored.
func (c *Context) Load(tierIndex int, segment uint32) ([]byte, section.TierEntry) {
	bufPtr := c.resident[tierIndex].Load()
	if bufPtr == nil {
		return nil, section.TierEntry{}
	}

	return *bufPtr, section.UnpackTierEntry(c.words[tierIndex][segment].Load())
}
