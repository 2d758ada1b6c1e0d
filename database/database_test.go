package database

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/fixture"
	"github.com/arloliu/keyframe/section"
	"github.com/arloliu/keyframe/stream"
	"github.com/stretchr/testify/require"
)

func samples(n int) []fixture.Transform {
	out := make([]fixture.Transform, n)
	for i := range out {
		out[i] = fixture.Identity()
		out[i].Translation = [3]float32{float32(i), 0, 0}
	}

	return out
}

// tieredClip has two 8-sample segments; each keeps its boundary samples locally and
// splits the others between the medium and lowest tiers.
func tieredClip(compression format.CompressionType) fixture.Clip {
	local := fixture.Stripped(8)
	medium := uint32(0b0101_0100)
	lowest := fixture.Complement(8, local|medium)

	return fixture.Clip{
		SampleRate:    30,
		SegmentStarts: []uint32{0, 8},
		Samples:       [][]fixture.Transform{samples(16)},
		BitRates:      [][]uint8{{10, 16, 0}, {10, 16, 0}},
		Residency:     []uint32{local, local},
		Tiers:         [2][]uint32{{medium, medium}, {lowest, lowest}},
		Compression:   [2]format.CompressionType{compression, format.CompressionNone},
	}
}

func parseBuilt(t *testing.T, built *fixture.Built) (*stream.Tracks, *Database) {
	t.Helper()

	tracks, err := stream.Parse(built.Tracks)
	require.NoError(t, err)

	db, err := Parse(built.Database)
	require.NoError(t, err)

	return tracks, db
}

func TestParse(t *testing.T) {
	built := fixture.MustBuild(tieredClip(format.CompressionZstd))
	tracks, db := parseBuilt(t, built)

	require.Equal(t, tracks.Hash(), db.TracksHash())
	require.Equal(t, uint32(2), db.NumSegments())
	require.NotZero(t, db.Hash())
	require.Len(t, db.Data(), len(built.Database))
	require.NoError(t, db.Validate(tracks))

	ct, err := db.Compression(format.TierMedium)
	require.NoError(t, err)
	require.Equal(t, format.CompressionZstd, ct)

	size, err := db.BulkSize(format.TierMedium)
	require.NoError(t, err)
	require.Equal(t, len(built.RawBulk[0]), size)

	entry, err := db.Entry(format.TierMedium, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(0b0101_0100), entry.Bitmap)
	require.NotZero(t, entry.Offset)

	_, err = db.Entry(format.TierHighest, 0)
	require.ErrorIs(t, err, errs.ErrInvalidTier)

	_, err = db.Entry(format.TierLowest, 2)
	require.ErrorIs(t, err, errs.ErrCorruptStream)
}

func TestParse_Errors(t *testing.T) {
	built := fixture.MustBuild(tieredClip(format.CompressionNone))

	_, err := Parse(built.Database[:10])
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)

	_, err = Parse(built.Database[:len(built.Database)-1])
	require.ErrorIs(t, err, errs.ErrCorruptStream)

	corrupted := append([]byte(nil), built.Database...)
	corrupted[len(corrupted)-1] ^= 0x01
	_, err = Parse(corrupted)
	require.ErrorIs(t, err, errs.ErrHashMismatch)

	_, err = Parse(built.Tracks)
	require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)

	// medium entry of segment 0 pointing past the bulk data
	outside := append([]byte(nil), built.Database...)
	section.NewDatabaseHeader().GetEndianEngine().PutUint32(outside[section.DatabaseHeaderSize+4:], 1<<20)
	fixture.RehashDatabase(outside)
	_, err = Parse(outside)
	require.ErrorIs(t, err, errs.ErrCorruptStream)
}

func TestValidate_Binding(t *testing.T) {
	built := fixture.MustBuild(tieredClip(format.CompressionNone))
	_, db := parseBuilt(t, built)

	other := tieredClip(format.CompressionNone)
	other.Samples = [][]fixture.Transform{samples(16)}
	other.Samples[0][3].Translation[1] = 5
	otherTracks, err := stream.Parse(fixture.MustBuild(other).Tracks)
	require.NoError(t, err)
	require.ErrorIs(t, db.Validate(otherTracks), errs.ErrFormat)
}

func TestValidate_Overlap(t *testing.T) {
	clip := tieredClip(format.CompressionNone)
	clip.Tiers[1] = []uint32{0b0101_0100, 0}

	tracks, db := parseBuilt(t, fixture.MustBuild(clip))
	require.ErrorIs(t, db.Validate(tracks), errs.ErrCorruptStream)
}

func TestContext_StreamInOut(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			built := fixture.MustBuild(tieredClip(ct))
			_, db := parseBuilt(t, built)

			state, err := NewContext(db,
				WithBulkData(format.TierMedium, built.Bulk[0]),
				WithBulkData(format.TierLowest, built.Bulk[1]),
			)
			require.NoError(t, err)
			require.Same(t, db, state.Database())
			require.Equal(t, db.Hash(), state.Hash())
			require.False(t, state.IsResident(format.TierMedium))
			require.Equal(t, section.TierEntry{}, state.TierMetadata(format.TierMedium, 0))

			require.NoError(t, state.StreamIn(format.TierMedium))
			require.True(t, state.IsResident(format.TierMedium))
			require.False(t, state.IsResident(format.TierLowest))

			want, _ := db.Entry(format.TierMedium, 1)
			require.Equal(t, want, state.TierMetadata(format.TierMedium, 1))

			buf, entry := state.Load(0, 1)
			require.Equal(t, built.RawBulk[0], buf)
			require.Equal(t, want, entry)

			buf, entry = state.Load(1, 1)
			require.Nil(t, buf)
			require.Equal(t, section.TierEntry{}, entry)

			require.NoError(t, state.StreamOut(format.TierMedium))
			require.False(t, state.IsResident(format.TierMedium))
			require.Equal(t, section.TierEntry{}, state.TierMetadata(format.TierMedium, 1))
		})
	}
}

func TestContext_StreamInRange(t *testing.T) {
	built := fixture.MustBuild(tieredClip(format.CompressionNone))
	_, db := parseBuilt(t, built)

	state, err := NewContext(db, WithBulkData(format.TierLowest, built.Bulk[1]))
	require.NoError(t, err)

	require.NoError(t, state.StreamInRange(format.TierLowest, 1, 10))
	require.Equal(t, section.TierEntry{}, state.TierMetadata(format.TierLowest, 0))
	require.NotZero(t, state.TierMetadata(format.TierLowest, 1).Bitmap)

	require.NoError(t, state.StreamInRange(format.TierLowest, 0, 1))
	require.NotZero(t, state.TierMetadata(format.TierLowest, 0).Bitmap)
	require.Equal(t, section.TierEntry{}, state.TierMetadata(format.TierLowest, 7))
}

func TestContext_Errors(t *testing.T) {
	built := fixture.MustBuild(tieredClip(format.CompressionNone))
	_, db := parseBuilt(t, built)

	_, err := NewContext(db, WithBulkData(format.TierHighest, built.Bulk[0]))
	require.ErrorIs(t, err, errs.ErrInvalidTier)

	state, err := NewContext(db, WithLogger(nil))
	require.NoError(t, err)
	require.False(t, state.HasBulkData(format.TierMedium))

	require.ErrorIs(t, state.StreamIn(format.TierMedium), errs.ErrBulkDataMissing)
	require.ErrorIs(t, state.StreamIn(format.TierHighest), errs.ErrInvalidTier)
	require.ErrorIs(t, state.StreamOut(format.TierHighest), errs.ErrInvalidTier)

	truncated, err := NewContext(db, WithBulkData(format.TierMedium, built.Bulk[0][:1]))
	require.NoError(t, err)
	require.Error(t, truncated.StreamIn(format.TierMedium))
	require.False(t, truncated.IsResident(format.TierMedium))
}

// Readers racing a streamer must only ever observe the compiled entry or nothing,
// and never a set bit without a resident buffer.
func TestContext_ConcurrentStreaming(t *testing.T) {
	built := fixture.MustBuild(tieredClip(format.CompressionS2))
	_, db := parseBuilt(t, built)

	state, err := NewContext(db, WithBulkData(format.TierMedium, built.Bulk[0]))
	require.NoError(t, err)

	want, _ := db.Entry(format.TierMedium, 1)

	var stop atomic.Bool
	var violations atomic.Int64
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				buf, entry := state.Load(0, 1)
				if entry.Bitmap == 0 {
					continue
				}
				if buf == nil || entry != want {
					violations.Add(1)
				}
			}
		}()
	}

	for range 200 {
		require.NoError(t, state.StreamIn(format.TierMedium))
		require.NoError(t, state.StreamOut(format.TierMedium))
	}
	stop.Store(true)
	wg.Wait()

	require.Zero(t, violations.Load())
}
