package decompress

import (
	"fmt"

	"github.com/arloliu/keyframe/database"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/stream"
)

// KeyLocation describes where one bracketing key frame was resolved.
type KeyLocation struct {
	// Segment is the index of the segment holding the key.
	Segment uint32
	// Key is the clip-relative sample index actually used.
	Key uint32
	// Tier is the storage the key is read from: format.TierHighest for clip-local data.
	Tier format.QualityTier
	// Position is the key's index among the poses stored in that storage for the segment.
	Position uint32
	// BitOffset is the absolute bit offset of the key's pose in its storage buffer.
	BitOffset uint64
}

// Context is the per-consumer decompression state bound to one tracks stream and,
// optionally, one database streaming state.
//
// A Context holds no allocations of its own beyond its settings and caches; the
// stream, database state, and bulk buffers it is bound to are borrowed and must
// outlive it. A Context must be used by one goroutine at a time.
type Context struct {
	settings Settings

	tracks     *stream.Tracks
	tracksHash uint32
	db         *database.Context
	dbHash     uint32
	// generation is the database generation the cached seek was resolved against.
	generation uint64

	duration float64
	looping  format.LoopingPolicy

	// sampleTime is -1 until a seek resolves successfully.
	sampleTime float64
	rounding   format.RoundingPolicy
	alpha      float32
	// alphas holds the alpha of every concrete rounding policy, indexed by policy.
	alphas            [format.RoundingPerTrack]float32
	keys              [2]KeyLocation
	data              [2][]byte
	segments          [2]*stream.Segment
	usesSingleSegment bool

	// resolveCount counts resolver runs.
	resolveCount int
}

// NewContext creates an unbound context with the given settings.
func NewContext(settings Settings) *Context {
	return &Context{
		settings:   settings,
		sampleTime: -1,
	}
}

// Settings returns the context's settings.
func (c *Context) Settings() Settings {
	return c.settings
}

// Initialize binds the context to a stream and an optional database state.
//
// Parameters:
//   - tracks: The parsed transform stream
//   - db: The database streaming state, or nil
//
// Returns:
//   - error: ErrNotImplemented for scalar streams, ErrFormat for an unsupported algorithm,
//     a version outside the settings range, or a database bound to another stream;
//     ErrCorruptStream when the database layout disagrees with the stream
func (c *Context) Initialize(tracks *stream.Tracks, db *database.Context) error {
	if tracks == nil {
		return fmt.Errorf("%w: nil tracks", errs.ErrFormat)
	}

	if tracks.IsScalar() {
		return fmt.Errorf("%w: %s tracks", errs.ErrNotImplemented, tracks.TrackType())
	}

	if tracks.Algorithm() != format.AlgorithmUniformlySampled {
		return fmt.Errorf("%w: algorithm %s", errs.ErrFormat, tracks.Algorithm())
	}

	if !c.settings.supportsVersion(tracks.Version()) {
		return fmt.Errorf("%w: version %s not enabled", errs.ErrFormat, tracks.Version())
	}

	if db != nil {
		if err := db.Database().Validate(tracks); err != nil {
			return err
		}
	}

	c.tracks = tracks
	c.tracksHash = tracks.Hash()
	c.db = db
	c.dbHash = 0
	if db != nil {
		c.dbHash = db.Hash()
	}

	c.looping = format.LoopingClamp
	if c.settings.SupportsWrapping {
		c.looping = tracks.LoopingPolicy()
	}
	c.duration = tracks.Duration(c.looping)
	c.invalidate()

	return nil
}

// TryRebind rebinds the context to a relocated copy of the same stream and database.
//
// Identity is confirmed by hash: both hashes must match the bound ones, and a
// database must be supplied exactly when one is bound. On success the cached
// sample time is invalidated. On failure the context is left untouched.
//
// Returns:
//   - error: ErrNotInitialized for an unbound context, ErrBindingMismatch otherwise
func (c *Context) TryRebind(tracks *stream.Tracks, db *database.Context) error {
	if c.tracks == nil {
		return errs.ErrNotInitialized
	}

	if tracks == nil || tracks.Hash() != c.tracksHash {
		return fmt.Errorf("%w: tracks", errs.ErrBindingMismatch)
	}

	if (db == nil) != (c.db == nil) || (db != nil && db.Hash() != c.dbHash) {
		return fmt.Errorf("%w: database", errs.ErrBindingMismatch)
	}

	c.tracks = tracks
	c.db = db
	c.invalidate()

	return nil
}

// IsBoundTo reports whether the context is bound to exactly this stream.
func (c *Context) IsBoundTo(tracks *stream.Tracks) bool {
	return tracks != nil && c.tracks == tracks && tracks.Hash() == c.tracksHash
}

// IsBoundToDatabase reports whether the context is bound to exactly this database state.
func (c *Context) IsBoundToDatabase(db *database.Context) bool {
	return db != nil && c.db == db && db.Hash() == c.dbHash
}

// IsInitialized reports whether the context is bound to a stream.
func (c *Context) IsInitialized() bool {
	return c.tracks != nil
}

// Reset unbinds the context. Settings are kept.
func (c *Context) Reset() {
	*c = Context{settings: c.settings, sampleTime: -1}
}

// SetLoopingPolicy overrides the looping policy. format.LoopingAsCompressed restores
// the stream's own policy. The call has no effect unless wrapping is supported.
func (c *Context) SetLoopingPolicy(policy format.LoopingPolicy) error {
	if c.tracks == nil {
		return errs.ErrNotInitialized
	}

	switch policy {
	case format.LoopingAsCompressed:
		policy = c.tracks.LoopingPolicy()
	case format.LoopingClamp, format.LoopingWrap:
	default:
		return fmt.Errorf("%w: %d", errs.ErrInvalidLoopingPolicy, uint8(policy))
	}

	if !c.settings.SupportsWrapping || policy == c.looping {
		return nil
	}

	c.looping = policy
	c.duration = c.tracks.Duration(policy)
	c.invalidate()

	return nil
}

// LoopingPolicy returns the active looping policy.
func (c *Context) LoopingPolicy() format.LoopingPolicy {
	return c.looping
}

// Duration returns the clip duration in seconds under the active looping policy.
func (c *Context) Duration() float64 {
	return c.duration
}

// SampleTime returns the last resolved sample time, or -1 when none is valid.
func (c *Context) SampleTime() float64 {
	return c.sampleTime
}

// InterpolationAlpha returns the alpha of the last seek.
func (c *Context) InterpolationAlpha() float32 {
	return c.alpha
}

// Keys returns where the two bracketing key frames of the last seek were resolved.
func (c *Context) Keys() (KeyLocation, KeyLocation) {
	return c.keys[0], c.keys[1]
}

// UsesSingleSegment reports whether both key frames of the last seek share a segment.
func (c *Context) UsesSingleSegment() bool {
	return c.usesSingleSegment
}

func (c *Context) invalidate() {
	c.sampleTime = -1
}
