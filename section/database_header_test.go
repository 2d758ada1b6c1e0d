package section

import (
	"testing"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/stretchr/testify/require"
)

func TestDatabaseHeader_BytesParse(t *testing.T) {
	h := NewDatabaseHeader()
	h.Options |= EndiannessMask
	h.Hash = 0x01020304
	h.TracksHash = 0xCAFEBABE
	h.NumSegments = 4
	h.BulkSize = [2]uint32{1024, 256}
	h.Compression = [2]uint8{uint8(format.CompressionZstd), uint8(format.CompressionLZ4)}
	h.EntriesOffset = DatabaseHeaderSize
	h.TotalSize = DatabaseHeaderSize + 2*4*TierEntrySize

	data := h.Bytes()
	require.Len(t, data, DatabaseHeaderSize)

	parsed, err := ParseDatabaseHeader(data)
	require.NoError(t, err)
	require.Equal(t, *h, parsed)
	require.True(t, parsed.IsBigEndian())
}

func TestDatabaseHeader_ParseErrors(t *testing.T) {
	_, err := ParseDatabaseHeader(make([]byte, 10))
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)

	tracks := NewTracksHeader().Bytes()
	_, err = ParseDatabaseHeader(tracks[:DatabaseHeaderSize])
	require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)

	h := NewDatabaseHeader()
	h.Compression[1] = 9
	_, err = ParseDatabaseHeader(h.Bytes())
	require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)

	h = NewDatabaseHeader()
	h.Options |= StrippedMask
	_, err = ParseDatabaseHeader(h.Bytes())
	require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)
}

func TestTierIndex(t *testing.T) {
	idx, ok := TierIndex(format.TierMedium)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	idx, ok = TierIndex(format.TierLowest)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = TierIndex(format.TierHighest)
	require.False(t, ok)
}

func TestTierEntry_PackUnpack(t *testing.T) {
	entry := TierEntry{Bitmap: 0x8000_0001, Offset: 0xFFFF_0010}

	word := entry.Pack()
	require.Equal(t, uint64(0xFFFF_0010_8000_0001), word)
	require.Equal(t, entry, UnpackTierEntry(word))
	require.Equal(t, TierEntry{}, UnpackTierEntry(0))
}

func TestTierEntry_AppendParse(t *testing.T) {
	engine := NewDatabaseHeader().GetEndianEngine()
	entry := TierEntry{Bitmap: 0b1010, Offset: 64}

	data := entry.Append(nil, engine)
	require.Len(t, data, TierEntrySize)

	var parsed TierEntry
	require.NoError(t, parsed.Parse(data, engine))
	require.Equal(t, entry, parsed)
	require.ErrorIs(t, parsed.Parse(data[:4], engine), errs.ErrInvalidHeaderSize)
}
