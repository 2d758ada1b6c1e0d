package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type decodeConfig struct {
	sampleRate float64
	wrap       bool
	calls      []string
}

func withSampleRate(rate float64) Option[*decodeConfig] {
	return New(func(c *decodeConfig) error {
		if rate <= 0 {
			return errors.New("sample rate must be positive")
		}
		c.sampleRate = rate
		c.calls = append(c.calls, "rate")

		return nil
	})
}

func withWrap() Option[*decodeConfig] {
	return NoError(func(c *decodeConfig) {
		c.wrap = true
		c.calls = append(c.calls, "wrap")
	})
}

func TestApply(t *testing.T) {
	t.Run("applies options in order", func(t *testing.T) {
		cfg := &decodeConfig{}
		err := Apply(cfg, withWrap(), withSampleRate(30))

		require.NoError(t, err)
		require.True(t, cfg.wrap)
		require.InDelta(t, 30.0, cfg.sampleRate, 0)
		require.Equal(t, []string{"wrap", "rate"}, cfg.calls)
	})

	t.Run("stops at first error", func(t *testing.T) {
		cfg := &decodeConfig{}
		err := Apply(cfg, withSampleRate(-1), withWrap())

		require.EqualError(t, err, "sample rate must be positive")
		require.False(t, cfg.wrap)
		require.Empty(t, cfg.calls)
	})

	t.Run("no options", func(t *testing.T) {
		cfg := &decodeConfig{}
		require.NoError(t, Apply(cfg))
		require.Empty(t, cfg.calls)
	})

	t.Run("nil option is skipped", func(t *testing.T) {
		cfg := &decodeConfig{}
		require.NoError(t, Apply(cfg, nil, withWrap()))
		require.True(t, cfg.wrap)
	})
}

func TestOptionsWithValueTarget(t *testing.T) {
	count := 0
	opt := NoError(func(n *int) { *n += 2 })

	require.NoError(t, Apply(&count, opt, opt))
	require.Equal(t, 4, count)
}
