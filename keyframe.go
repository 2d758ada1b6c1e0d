// Package keyframe decodes compressed animation tracks into per-frame values.
//
// A transform clip is stored as one compressed tracks stream: segments of samples
// packed at per-channel bit rates, with constant channels and quantization ranges
// in shared pools. A stream may be stripped, keeping only some samples locally and
// moving the rest into a compiled database whose medium and lowest tiers are
// streamed in and out at runtime.
//
// # Core Features
//
//   - Random-access sampling at any time with clamp or wrap looping
//   - Floor, ceil, nearest and per-track rounding policies
//   - Stripped key frames backed by streamable quality tiers
//   - Lock-free readers while tiers stream in and out concurrently
//   - Tier bulk data compressed with Zstd, S2 or LZ4
//   - 32-bit content hashes identifying streams and databases
//
// # Basic Usage
//
// Decoding a whole clip:
//
//	clip, err := keyframe.DecompressTracks(data, nil)
//	if err != nil {
//	    return err
//	}
//	defer clip.Dispose()
//
//	for i := range clip.NumFrames() {
//	    frame, _ := clip.Frame(i)
//	    rotation := frame[0:4] // first track
//	}
//
// Decoding a stripped clip with its database:
//
//	clip, err := keyframe.DecompressTracks(data, nil,
//	    keyframe.WithDatabase(db),
//	    keyframe.WithBulkData(format.TierMedium, medium),
//	)
//
// # Package Structure
//
// This package provides a clip-level wrapper around the stream, database and
// decompress packages. For sampling at arbitrary times, streaming tiers while
// decoding, or sharing one database state between many consumers, use those
// packages directly.
package keyframe

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/keyframe/database"
	"github.com/arloliu/keyframe/decompress"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/options"
	"github.com/arloliu/keyframe/section"
	"github.com/arloliu/keyframe/stream"
)

// Per-frame layout of one transform track.
const (
	RotationOffset    = 0  // RotationOffset is the offset of the (x, y, z, w) rotation.
	TranslationOffset = 4  // TranslationOffset is the offset of the translation.
	ScaleOffset       = 7  // ScaleOffset is the offset of the scale.
	TransformStride   = 10 // TransformStride is the number of floats per transform track.
)

// DecompressTracks decodes every sample of a transform clip.
//
// Frame i is sampled at time i / sampleRate. Each frame holds TransformStride
// floats per transform track followed by one slot per scalar track. When bulk
// data is supplied for a tier, the tier is streamed in before decoding.
//
// Parameters:
//   - transform: The compressed transform tracks stream
//   - scalar: The compressed scalar tracks stream; must be nil
//   - opts: Database, bulk data, settings, allocator and logger options
//
// Returns:
//   - *DecompressedClip: The decoded frames; call Dispose when done
//   - error: ErrNotImplemented for a scalar stream, plus any parse, binding or decode error
//
// Example:
//
//	clip, err := keyframe.DecompressTracks(data, nil,
//	    keyframe.WithSettings(settings),
//	    keyframe.WithRounding(format.RoundingNearest),
//	)
func DecompressTracks(transform, scalar []byte, opts ...Option) (*DecompressedClip, error) {
	cfg := newConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if scalar != nil {
		return nil, fmt.Errorf("%w: scalar stream of %d bytes", errs.ErrNotImplemented, len(scalar))
	}

	tracks, err := stream.Parse(transform)
	if err != nil {
		return nil, err
	}

	state, err := cfg.streamDatabase()
	if err != nil {
		return nil, err
	}

	ctx := decompress.NewContext(cfg.settings)
	if err := ctx.Initialize(tracks, state); err != nil {
		return nil, err
	}

	cfg.logger.Debug("decoding clip",
		slog.Uint64("tracks", uint64(tracks.NumTracks())),
		slog.Uint64("samples", uint64(tracks.NumSamples())),
		slog.Bool("stripped", tracks.HasStrippedKeyFrames()),
		slog.Bool("database", state != nil))

	clip := newDecompressedClip(tracks, cfg.allocator)
	if err := clip.decode(ctx, cfg.rounding); err != nil {
		clip.Dispose()
		return nil, err
	}

	cfg.logger.Debug("clip decoded",
		slog.Uint64("hash", uint64(tracks.Hash())),
		slog.Int("frames", clip.NumFrames()))

	return clip, nil
}

// streamDatabase parses the configured database and streams in every tier with bulk data.
func (c *config) streamDatabase() (*database.Context, error) {
	if c.database == nil {
		if c.bulk[0] != nil || c.bulk[1] != nil {
			c.logger.Warn("bulk data ignored without a database")
		}

		return nil, nil
	}

	db, err := database.Parse(c.database)
	if err != nil {
		return nil, err
	}

	dbOpts := []database.Option{database.WithLogger(c.logger)}
	for i, tier := range format.StreamedTiers {
		if c.bulk[i] != nil {
			dbOpts = append(dbOpts, database.WithBulkData(tier, c.bulk[i]))
		}
	}

	state, err := database.NewContext(db, dbOpts...)
	if err != nil {
		return nil, err
	}

	for _, tier := range format.StreamedTiers {
		if !state.HasBulkData(tier) {
			continue
		}

		if err := state.StreamIn(tier); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// frameWriter writes decoded tracks into one frame of a clip.
type frameWriter struct {
	frame []float32
}

func (w *frameWriter) WriteRotation(track uint32, q decompress.Quat) {
	copy(w.frame[int(track)*TransformStride+RotationOffset:], q[:])
}

func (w *frameWriter) WriteTranslation(track uint32, v decompress.Vec3) {
	copy(w.frame[int(track)*TransformStride+TranslationOffset:], v[:])
}

func (w *frameWriter) WriteScale(track uint32, v decompress.Vec3) {
	copy(w.frame[int(track)*TransformStride+ScaleOffset:], v[:])
}

// Kind identifies the binary kind of a keyframe buffer.
type Kind uint8

const (
	KindUnknown  Kind = iota // KindUnknown is not a keyframe binary.
	KindTracks               // KindTracks is a compressed tracks stream.
	KindDatabase             // KindDatabase is a compiled tier database.
)

func (k Kind) String() string {
	switch k {
	case KindTracks:
		return "tracks"
	case KindDatabase:
		return "database"
	default:
		return "unknown"
	}
}

// Identify reports the kind and stored content hash of a tracks stream or database.
// The hash is read from the header and not verified.
//
// Returns:
//   - Kind: KindTracks, KindDatabase, or KindUnknown on error
//   - uint32: The stored content hash
//   - error: ErrInvalidHeaderSize or ErrInvalidHeaderFlags for unrecognized data
func Identify(data []byte) (Kind, uint32, error) {
	if len(data) < 2 {
		return KindUnknown, 0, fmt.Errorf("%w: %d bytes", errs.ErrInvalidHeaderSize, len(data))
	}

	// Options is little-endian in both headers so the magic is readable before the byte order is known
	opts := uint16(data[0]) | uint16(data[1])<<8
	switch opts & section.MagicNumberMask {
	case section.MagicTracksV1Opt:
		h, err := section.ParseTracksHeader(data)
		if err != nil {
			return KindUnknown, 0, err
		}

		return KindTracks, h.Hash, nil
	case section.MagicDatabaseV1Opt:
		h, err := section.ParseDatabaseHeader(data)
		if err != nil {
			return KindUnknown, 0, err
		}

		return KindDatabase, h.Hash, nil
	default:
		return KindUnknown, 0, fmt.Errorf("%w: magic %#04x", errs.ErrInvalidHeaderFlags, opts&section.MagicNumberMask)
	}
}
