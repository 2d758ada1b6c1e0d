package keyframe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/keyframe/decompress"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/fixture"
)

func linearClip(numTracks, numSamples int) fixture.Clip {
	samples := make([][]fixture.Transform, numTracks)
	for track := range samples {
		samples[track] = make([]fixture.Transform, numSamples)
		for i := range samples[track] {
			s := fixture.Identity()
			s.Translation = [3]float32{float32(i + 100*track), 0, float32(track)}
			samples[track][i] = s
		}
	}

	return fixture.Clip{SampleRate: 30, SegmentStarts: []uint32{0, 6}, Samples: samples}
}

// strippedPair returns a clip and its stripped variant whose tiers together hold
// every missing sample.
func strippedPair() (fixture.Clip, fixture.Clip) {
	full := linearClip(2, 12)
	full.BitRates = [][]uint8{{12, 14, 0, 12, 14, 0}, {9, 16, 0, 9, 16, 0}}

	stripped := full
	local := fixture.Stripped(6, 3)
	medium := uint32(0b00_0100)
	stripped.Residency = []uint32{local, local}
	stripped.Tiers = [2][]uint32{
		{medium, medium},
		{fixture.Complement(6, local|medium), fixture.Complement(6, local|medium)},
	}
	stripped.Compression = [2]format.CompressionType{format.CompressionZstd, format.CompressionLZ4}

	return full, stripped
}

type countingAllocator struct {
	allocated int
	released  int
}

func (a *countingAllocator) Float32s(n int) []float32 {
	a.allocated++
	return make([]float32, n)
}

func (a *countingAllocator) Release([]float32) {
	a.released++
}

func TestDecompressTracks(t *testing.T) {
	built := fixture.MustBuild(linearClip(2, 12))

	clip, err := DecompressTracks(built.Tracks, nil, WithRounding(format.RoundingNearest))
	require.NoError(t, err)
	defer clip.Dispose()

	require.Equal(t, 12, clip.NumFrames())
	require.Equal(t, 2*TransformStride, clip.FrameSize())
	require.Equal(t, uint32(2), clip.NumTransformTracks())
	require.Zero(t, clip.NumScalarTracks())
	require.Equal(t, float32(30), clip.SampleRate())
	require.Len(t, clip.Values, 12*clip.FrameSize())

	for i := range clip.NumFrames() {
		require.InDelta(t, float64(i)/30, clip.Times[i], 1e-6)

		frame, err := clip.Frame(i)
		require.NoError(t, err)
		require.Equal(t, []float32{0, 0, 0, 1}, frame[RotationOffset:RotationOffset+4])
		require.Equal(t, float32(i), frame[TranslationOffset])
		require.Equal(t, float32(i+100), frame[TransformStride+TranslationOffset])
		require.Equal(t, float32(1), frame[TransformStride+TranslationOffset+2])
		require.Equal(t, []float32{1, 1, 1}, frame[ScaleOffset:ScaleOffset+3])
		require.Zero(t, frame[3])
	}

	q, tr, s, err := clip.Transform(7, 1)
	require.NoError(t, err)
	require.Equal(t, decompress.Quat{0, 0, 0, 1}, q)
	require.Equal(t, decompress.Vec3{107, 0, 1}, tr)
	require.Equal(t, decompress.Vec3{1, 1, 1}, s)

	_, _, _, err = clip.Transform(7, 2)
	require.ErrorIs(t, err, errs.ErrInvalidTrackIndex)

	_, err = clip.Frame(12)
	require.Error(t, err)
}

func TestDecompressTracks_Interpolated(t *testing.T) {
	built := fixture.MustBuild(linearClip(1, 12))

	clip, err := DecompressTracks(built.Tracks, nil)
	require.NoError(t, err)
	defer clip.Dispose()

	for i := range clip.NumFrames() {
		frame, err := clip.Frame(i)
		require.NoError(t, err)
		require.InDelta(t, float64(i), frame[TranslationOffset], 1e-4)
	}
}

func TestDecompressTracks_FrameOnItsSample(t *testing.T) {
	for _, rate := range []float32{24, 30, 29.97, 60} {
		for _, rounding := range []format.RoundingPolicy{format.RoundingFloor, format.RoundingCeil, format.RoundingNone} {
			t.Run(fmt.Sprintf("%gHz/%s", rate, rounding), func(t *testing.T) {
				c := linearClip(2, 48)
				c.SampleRate = rate

				clip, err := DecompressTracks(fixture.MustBuild(c).Tracks, nil, WithRounding(rounding))
				require.NoError(t, err)
				defer clip.Dispose()

				for i := range clip.NumFrames() {
					_, pos, _, err := clip.Transform(i, 1)
					require.NoError(t, err)
					require.Equal(t, float32(i+100), pos[0], "frame %d", i)
				}
			})
		}
	}
}

func TestDefaultAllocator(t *testing.T) {
	alloc := newPoolAllocator()

	values := alloc.Float32s(64)
	require.Len(t, values, 64)
	require.Len(t, alloc.cleanups, 1)
	values[0] = 3

	alloc.Release(values)
	require.Empty(t, alloc.cleanups)

	// foreign and repeated releases are ignored
	alloc.Release(values)
	alloc.Release(make([]float32, 4))
	alloc.Release(nil)
	require.Empty(t, alloc.cleanups)

	again := alloc.Float32s(64)
	require.Len(t, again, 64)
	for _, v := range again {
		require.Zero(t, v)
	}
	alloc.Release(again)

	require.Nil(t, alloc.Float32s(0))
	require.Same(t, DefaultAllocator(), DefaultAllocator())
}

func TestDecompressTracks_StrippedWithDatabase(t *testing.T) {
	fullClip, strippedClip := strippedPair()

	full, err := DecompressTracks(fixture.MustBuild(fullClip).Tracks, nil)
	require.NoError(t, err)
	defer full.Dispose()

	built := fixture.MustBuild(strippedClip)
	stripped, err := DecompressTracks(built.Tracks, nil,
		WithDatabase(built.Database),
		WithBulkData(format.TierMedium, built.Bulk[0]),
		WithBulkData(format.TierLowest, built.Bulk[1]),
	)
	require.NoError(t, err)
	defer stripped.Dispose()

	require.Equal(t, full.Values, stripped.Values)
	require.Equal(t, full.Times, stripped.Times)

	// without the lowest tier, missing samples are interpolated from their neighbours
	partial, err := DecompressTracks(built.Tracks, nil,
		WithDatabase(built.Database),
		WithBulkData(format.TierMedium, built.Bulk[0]),
	)
	require.NoError(t, err)
	defer partial.Dispose()

	for i := range partial.NumFrames() {
		frame, err := partial.Frame(i)
		require.NoError(t, err)
		require.InDelta(t, float64(i), frame[TranslationOffset], 1e-2)
	}
}

func TestDecompressTracks_Errors(t *testing.T) {
	built := fixture.MustBuild(linearClip(1, 12))

	_, err := DecompressTracks(built.Tracks, []byte{1})
	require.ErrorIs(t, err, errs.ErrNotImplemented)

	_, err = DecompressTracks(built.Tracks[:20], nil)
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)

	_, err = DecompressTracks(built.Tracks, nil, WithBulkData(format.TierHighest, []byte{1}))
	require.ErrorIs(t, err, errs.ErrInvalidTier)

	_, err = DecompressTracks(built.Tracks, nil, WithRounding(format.RoundingPerTrack))
	require.ErrorIs(t, err, errs.ErrInvalidRoundingPolicy)

	settings, err := decompress.NewSettings(decompress.WithVersionRange(format.VersionLegacy, format.VersionLegacy))
	require.NoError(t, err)
	_, err = DecompressTracks(built.Tracks, nil, WithSettings(settings))
	require.ErrorIs(t, err, errs.ErrFormat)

	// a database belongs to a stripped stream only
	_, strippedClip := strippedPair()
	stripped := fixture.MustBuild(strippedClip)
	_, err = DecompressTracks(built.Tracks, nil, WithDatabase(stripped.Database))
	require.ErrorIs(t, err, errs.ErrFormat)

	_, err = DecompressTracks(stripped.Tracks, nil,
		WithDatabase(stripped.Database),
		WithBulkData(format.TierMedium, stripped.Bulk[0][:4]),
	)
	require.Error(t, err)
}

func TestDecompressedClip_Dispose(t *testing.T) {
	built := fixture.MustBuild(linearClip(1, 4))
	alloc := &countingAllocator{}

	clip, err := DecompressTracks(built.Tracks, nil, WithAllocator(alloc), WithLogger(nil))
	require.NoError(t, err)
	require.Equal(t, 2, alloc.allocated)

	clip.Dispose()
	require.Equal(t, 2, alloc.released)
	require.Nil(t, clip.Values)
	require.Nil(t, clip.Times)
	require.Zero(t, clip.NumFrames())

	_, err = clip.Frame(0)
	require.ErrorIs(t, err, errs.ErrDisposed)

	clip.Dispose()
	require.Equal(t, 2, alloc.released)
}

func TestIdentify(t *testing.T) {
	_, strippedClip := strippedPair()
	built := fixture.MustBuild(strippedClip)

	kind, hash, err := Identify(built.Tracks)
	require.NoError(t, err)
	require.Equal(t, KindTracks, kind)
	require.NotZero(t, hash)

	kind, dbHash, err := Identify(built.Database)
	require.NoError(t, err)
	require.Equal(t, KindDatabase, kind)
	require.NotEqual(t, hash, dbHash)
	require.Equal(t, "database", kind.String())

	_, _, err = Identify([]byte{0x10})
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)

	kind, _, err = Identify([]byte{0x00, 0x12, 0, 0})
	require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)
	require.Equal(t, KindUnknown, kind)
}

func BenchmarkDecompressTracks(b *testing.B) {
	built := fixture.MustBuild(linearClip(8, 64))

	for b.Loop() {
		clip, err := DecompressTracks(built.Tracks, nil)
		if err != nil {
			b.Fatal(err)
		}
		clip.Dispose()
	}
}
