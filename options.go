package keyframe

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/keyframe/decompress"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/options"
	"github.com/arloliu/keyframe/section"
)

type config struct {
	database  []byte
	bulk      [len(format.StreamedTiers)][]byte
	settings  decompress.Settings
	rounding  format.RoundingPolicy
	allocator Allocator
	logger    *slog.Logger
}

func newConfig() *config {
	return &config{
		settings:  decompress.DefaultSettings(),
		rounding:  format.RoundingNone,
		allocator: DefaultAllocator(),
		logger:    slog.New(slog.DiscardHandler),
	}
}

// Option configures DecompressTracks.
type Option = options.Option[*config]

// WithDatabase supplies the compiled database of a stripped stream.
func WithDatabase(data []byte) Option {
	return options.NoError(func(c *config) {
		c.database = data
	})
}

// WithBulkData supplies the bulk data of a streamed tier. The tier is streamed in
// before decoding.
func WithBulkData(tier format.QualityTier, data []byte) Option {
	return options.New(func(c *config) error {
		idx, ok := section.TierIndex(tier)
		if !ok {
			return fmt.Errorf("%w: %s has no bulk data", errs.ErrInvalidTier, tier)
		}
		c.bulk[idx] = data

		return nil
	})
}

// WithSettings sets the decompression settings.
func WithSettings(settings decompress.Settings) Option {
	return options.NoError(func(c *config) {
		c.settings = settings
	})
}

// WithRounding sets the rounding policy every frame is sampled with.
// format.RoundingPerTrack is rejected since frames are written without a selector.
func WithRounding(rounding format.RoundingPolicy) Option {
	return options.New(func(c *config) error {
		if rounding >= format.RoundingPerTrack {
			return fmt.Errorf("%w: %s", errs.ErrInvalidRoundingPolicy, rounding)
		}
		c.rounding = rounding

		return nil
	})
}

// WithAllocator sets the allocator of the clip's value and time buffers.
func WithAllocator(allocator Allocator) Option {
	return options.NoError(func(c *config) {
		if allocator != nil {
			c.allocator = allocator
		}
	})
}

// WithLogger sets the logger used while decoding and streaming tiers.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}
