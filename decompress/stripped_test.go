package decompress

import (
	"math"
	"math/rand"
	"testing"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/fixture"
	"github.com/arloliu/keyframe/stream"
	"github.com/stretchr/testify/require"
)

// strippedClip keeps samples 0 and 5 locally; the medium tier holds 2 and 4, the
// lowest tier 1 and 3.
func strippedClip() fixture.Clip {
	return fixture.Clip{
		SampleRate: 1,
		Samples:    linearSamples(1, 6),
		Residency:  []uint32{0b10_0001},
		Tiers:      [2][]uint32{{0b01_0100}, {0b00_1010}},
	}
}

func TestSeek_StrippedKeyFrames(t *testing.T) {
	built := fixture.MustBuild(strippedClip())
	tracks := mustParse(t, built.Tracks)
	state := bindDatabase(t, built, tracks)

	ctx := NewContext(DefaultSettings())
	require.NoError(t, ctx.Initialize(tracks, state))

	seg := tracks.Segment(0)
	local := uint64(seg.AnimatedOffset) * 8
	pose := uint64(seg.PoseBitSize)

	// only clip-local samples
	rec := sampleAt(t, ctx, 3, format.RoundingNone)
	key0, key1 := ctx.Keys()
	require.Equal(t, KeyLocation{Key: 0, Tier: format.TierHighest, Position: 0, BitOffset: local}, key0)
	require.Equal(t, KeyLocation{Key: 5, Tier: format.TierHighest, Position: 1, BitOffset: local + pose}, key1)
	require.InDelta(t, 0.6, ctx.InterpolationAlpha(), 1e-6)
	require.InDelta(t, 3, rec.translations[0][0], 1e-5)

	rec = sampleAt(t, ctx, 3, format.RoundingNearest)
	require.Equal(t, float32(5), rec.translations[0][0])

	// the medium tier provides samples 2 and 4
	require.NoError(t, state.StreamIn(format.TierMedium))
	medium := uint64(state.TierMetadata(format.TierMedium, 0).Offset) * 8

	rec = sampleAt(t, ctx, 3, format.RoundingNone)
	key0, key1 = ctx.Keys()
	require.Equal(t, KeyLocation{Key: 2, Tier: format.TierMedium, Position: 0, BitOffset: medium}, key0)
	require.Equal(t, KeyLocation{Key: 4, Tier: format.TierMedium, Position: 1, BitOffset: medium + pose}, key1)
	require.Equal(t, float32(0.5), ctx.InterpolationAlpha())
	require.Equal(t, float32(3), rec.translations[0][0])

	// every sample is available
	require.NoError(t, state.StreamIn(format.TierLowest))
	lowest := uint64(state.TierMetadata(format.TierLowest, 0).Offset) * 8

	rec = sampleAt(t, ctx, 3, format.RoundingNone)
	key0, key1 = ctx.Keys()
	require.Equal(t, KeyLocation{Key: 3, Tier: format.TierLowest, Position: 1, BitOffset: lowest + pose}, key0)
	require.Equal(t, KeyLocation{Key: 4, Tier: format.TierMedium, Position: 1, BitOffset: medium + pose}, key1)
	require.Zero(t, ctx.InterpolationAlpha())
	require.Equal(t, float32(3), rec.translations[0][0])

	rec = sampleAt(t, ctx, 2.5, format.RoundingNone)
	require.Equal(t, float32(2.5), rec.translations[0][0])

	// evicting the medium tier leaves samples 0, 1, 3 and 5
	require.NoError(t, state.StreamOut(format.TierMedium))
	rec = sampleAt(t, ctx, 2.5, format.RoundingNone)
	key0, key1 = ctx.Keys()
	require.Equal(t, uint32(1), key0.Key)
	require.Equal(t, uint32(3), key1.Key)
	require.Equal(t, format.TierLowest, key1.Tier)
	require.Equal(t, float32(0.75), ctx.InterpolationAlpha())
	require.Equal(t, float32(2.5), rec.translations[0][0])
}

func TestSeek_StrippedWithoutDatabase(t *testing.T) {
	ctx, _ := bind(t, strippedClip())

	rec := sampleAt(t, ctx, 1, format.RoundingNone)
	key0, key1 := ctx.Keys()
	require.Equal(t, uint32(0), key0.Key)
	require.Equal(t, uint32(5), key1.Key)
	require.InDelta(t, 0.2, ctx.InterpolationAlpha(), 1e-6)
	require.InDelta(t, 1, rec.translations[0][0], 1e-5)

	rec = sampleAt(t, ctx, 5, format.RoundingNone)
	require.Equal(t, float32(5), rec.translations[0][0])
}

func wavySamples(numTracks, numSamples int) [][]fixture.Transform {
	out := make([][]fixture.Transform, numTracks)
	for track := range out {
		out[track] = make([]fixture.Transform, numSamples)
		for i := range out[track] {
			angle := float64(i)*0.15 + float64(track)
			out[track][i] = fixture.Transform{
				Rotation:    [4]float32{0, 0, float32(math.Sin(angle / 2)), float32(math.Cos(angle / 2))},
				Translation: [3]float32{float32(math.Sin(angle)), float32(math.Cos(angle)), float32(i)},
				Scale:       [3]float32{1, float32(1 + 0.1*math.Sin(angle)), 1},
			}
		}
	}

	return out
}

func equivalenceClips() (fixture.Clip, fixture.Clip) {
	full := fixture.Clip{
		SampleRate:    10,
		SegmentStarts: []uint32{0, 10},
		Samples:       wavySamples(2, 20),
		BitRates: [][]uint8{
			{12, 12, 12, 12, 12, 12},
			{10, 14, 8, 10, 14, 8},
		},
	}

	stripped := full
	local := []uint32{fixture.Stripped(10, 4), fixture.Stripped(10, 5)}
	medium := []uint32{0b00_0100_0100, 0b00_0100_0100}
	stripped.Residency = local
	stripped.Tiers = [2][]uint32{
		medium,
		{fixture.Complement(10, local[0]|medium[0]), fixture.Complement(10, local[1]|medium[1])},
	}

	return full, stripped
}

func TestStripped_EquivalentWhenFullyResident(t *testing.T) {
	fullClip, strippedClip := equivalenceClips()
	full, _ := bind(t, fullClip)

	built := fixture.MustBuild(strippedClip)
	tracks := mustParse(t, built.Tracks)
	require.True(t, tracks.HasStrippedKeyFrames())
	state := bindDatabase(t, built, tracks)
	require.NoError(t, state.StreamIn(format.TierMedium))
	require.NoError(t, state.StreamIn(format.TierLowest))

	stripped := NewContext(DefaultSettings())
	require.NoError(t, stripped.Initialize(tracks, state))

	for i := range 30 {
		sampleTime := float64(i) * 0.07
		want := sampleAt(t, full, sampleTime, format.RoundingNone)
		got := sampleAt(t, stripped, sampleTime, format.RoundingNone)
		require.Equal(t, want, got, "time %v", sampleTime)
		require.Equal(t, full.InterpolationAlpha(), stripped.InterpolationAlpha())
	}
}

func TestStripped_EquivalentWithoutResidentTiers(t *testing.T) {
	_, strippedClip := equivalenceClips()
	built := fixture.MustBuild(strippedClip)
	tracks := mustParse(t, built.Tracks)

	plain := NewContext(DefaultSettings())
	require.NoError(t, plain.Initialize(tracks, nil))

	withDatabase := NewContext(DefaultSettings())
	require.NoError(t, withDatabase.Initialize(tracks, bindDatabase(t, built, tracks)))

	for i := range 30 {
		sampleTime := float64(i) * 0.07
		want := sampleAt(t, plain, sampleTime, format.RoundingNone)
		got := sampleAt(t, withDatabase, sampleTime, format.RoundingNone)
		require.Equal(t, want, got, "time %v", sampleTime)
	}
}

func TestSeek_KeyOrdering(t *testing.T) {
	_, strippedClip := equivalenceClips()
	built := fixture.MustBuild(strippedClip)
	tracks := mustParse(t, built.Tracks)
	state := bindDatabase(t, built, tracks)
	require.NoError(t, state.StreamIn(format.TierMedium))

	ctx := NewContext(DefaultSettings())
	require.NoError(t, ctx.Initialize(tracks, state))

	rng := rand.New(rand.NewSource(11))
	for range 500 {
		sampleTime := rng.Float64() * ctx.Duration()
		rounding := format.RoundingPolicy(rng.Intn(int(format.RoundingPerTrack)))
		require.NoError(t, ctx.Seek(sampleTime, rounding))

		key0, key1 := ctx.Keys()
		require.LessOrEqual(t, key0.Key, key1.Key)
		require.LessOrEqual(t, float64(key0.Key)/10, sampleTime+1e-7)
		require.GreaterOrEqual(t, float64(key1.Key)/10, sampleTime-1e-7)
		require.NotEqual(t, format.TierLowest, key0.Tier)
		require.NotEqual(t, format.TierLowest, key1.Tier)

		alpha := ctx.InterpolationAlpha()
		require.GreaterOrEqual(t, alpha, float32(0))
		require.LessOrEqual(t, alpha, float32(1))
	}
}

func TestFindSegment(t *testing.T) {
	layouts := [][]uint32{
		{0},
		{0, 16, 32, 48},
		{0, 3, 4, 20, 21, 40},
		{0, 1, 2, 3, 60},
		{0, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63},
	}

	for _, starts := range layouts {
		tracks := mustParse(t, fixture.MustBuild(fixture.Clip{
			SampleRate:    30,
			SegmentStarts: starts,
			Samples:       linearSamples(1, 64),
		}).Tracks)

		for key := range uint32(64) {
			var want uint32
			for i, start := range starts {
				if start <= key {
					want = uint32(i) //nolint:gosec // test sizes
				}
			}

			got, err := findSegment(tracks, key)
			require.NoError(t, err)
			require.Equal(t, want, got, "starts %v key %d", starts, key)
		}

		_, err := findSegment(tracks, 64)
		require.ErrorIs(t, err, errs.ErrCorruptStream)
	}
}

func TestSampleKeys(t *testing.T) {
	tests := []struct {
		name    string
		pos     float64
		looping format.LoopingPolicy
		key0    uint32
		key1    uint32
		alpha   float64
	}{
		{"start", 0, format.LoopingClamp, 0, 1, 0},
		{"between", 2.25, format.LoopingClamp, 2, 3, 0.25},
		{"last sample", 4, format.LoopingClamp, 4, 4, 0},
		{"past the end", 9, format.LoopingClamp, 4, 4, 0},
		{"wrap last interval", 4.5, format.LoopingWrap, 4, 0, 0.5},
		{"wrap end", 5, format.LoopingWrap, 0, 1, 0},
		{"just below a key", 2.9999999999, format.LoopingClamp, 3, 4, 0},
		{"just above a key", 3.0000000001, format.LoopingClamp, 3, 4, 0},
		{"just below the wrap end", 4.9999999999, format.LoopingWrap, 0, 1, 0},
		{"near but off a key", 2.999, format.LoopingClamp, 2, 3, 0.999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key0, key1, alpha := sampleKeys(tt.pos, 5, tt.looping)
			require.Equal(t, tt.key0, key0)
			require.Equal(t, tt.key1, key1)
			require.InDelta(t, tt.alpha, alpha, 1e-12)
		})
	}
}

func BenchmarkSeekDecompress(b *testing.B) {
	full, _ := equivalenceClips()
	tracks, err := stream.Parse(fixture.MustBuild(full).Tracks)
	require.NoError(b, err)

	ctx := NewContext(DefaultSettings())
	require.NoError(b, ctx.Initialize(tracks, nil))
	rec := newRecorder()

	var i int
	for b.Loop() {
		i++
		_ = ctx.Seek(float64(i%190)/100, format.RoundingNone)
		_ = ctx.Decompress(rec)
	}
}
