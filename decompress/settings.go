package decompress

import (
	"fmt"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/options"
)

// Settings enumerates the capabilities a decompression context is built with.
// It is passed by value; a context keeps its own copy.
type Settings struct {
	// SupportsWrapping honors the stream's wrap looping policy. When false every
	// stream is decoded as clamped.
	SupportsWrapping bool
	// SupportsPerTrackRounding enables format.RoundingPerTrack.
	SupportsPerTrackRounding bool
	// ClampSampleTime clamps seek times into [0, duration]. When false a negative
	// time is rejected and a time past the end saturates at the last sample.
	ClampSampleTime bool
	// DisableFPExceptions is accepted for compatibility and has no effect: Go
	// floating point operations never trap.
	DisableFPExceptions bool
	// Elements holds the element types that are decoded. Channels of other types are
	// skipped without output.
	Elements format.ElementSet
	// MinVersion and MaxVersion bound the accepted stream format versions.
	MinVersion format.Version
	MaxVersion format.Version
}

// Option configures Settings.
type Option = options.Option[*Settings]

// DefaultSettings returns settings that support every capability and version.
func DefaultSettings() Settings {
	return Settings{
		SupportsWrapping:         true,
		SupportsPerTrackRounding: true,
		ClampSampleTime:          true,
		Elements:                 format.AllElements,
		MinVersion:               format.VersionFirst,
		MaxVersion:               format.VersionLatest,
	}
}

// NewSettings returns DefaultSettings modified by opts.
func NewSettings(opts ...Option) (Settings, error) {
	s := DefaultSettings()
	if err := options.Apply(&s, opts...); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// WithWrapping enables or disables wrap looping support.
func WithWrapping(enabled bool) Option {
	return options.NoError(func(s *Settings) {
		s.SupportsWrapping = enabled
	})
}

// WithPerTrackRounding enables or disables per-track rounding support.
func WithPerTrackRounding(enabled bool) Option {
	return options.NoError(func(s *Settings) {
		s.SupportsPerTrackRounding = enabled
	})
}

// WithClampSampleTime enables or disables clamping of seek times.
func WithClampSampleTime(enabled bool) Option {
	return options.NoError(func(s *Settings) {
		s.ClampSampleTime = enabled
	})
}

// WithDisableFPExceptions records the floating point exception setting.
func WithDisableFPExceptions(enabled bool) Option {
	return options.NoError(func(s *Settings) {
		s.DisableFPExceptions = enabled
	})
}

// WithElements restricts decoding to the given element types.
func WithElements(elems ...format.ElementType) Option {
	return options.NoError(func(s *Settings) {
		s.Elements = format.NewElementSet(elems...)
	})
}

// WithVersionRange restricts the accepted stream versions to [minVersion, maxVersion].
func WithVersionRange(minVersion, maxVersion format.Version) Option {
	return options.New(func(s *Settings) error {
		if minVersion > maxVersion || minVersion < format.VersionFirst || maxVersion > format.VersionLatest {
			return fmt.Errorf("%w: version range [%s, %s]", errs.ErrFormat, minVersion, maxVersion)
		}
		s.MinVersion = minVersion
		s.MaxVersion = maxVersion

		return nil
	})
}

// supportsVersion reports whether v lies in the accepted range.
func (s Settings) supportsVersion(v format.Version) bool {
	return v >= s.MinVersion && v <= s.MaxVersion
}
