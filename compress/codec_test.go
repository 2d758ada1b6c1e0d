package compress

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/arloliu/keyframe/format"
	"github.com/stretchr/testify/require"
)

func getAllCodecs() map[format.CompressionType]Codec {
	return map[format.CompressionType]Codec{
		format.CompressionNone: NewNoOpCompressor(),
		format.CompressionZstd: NewZstdCompressor(),
		format.CompressionS2:   NewS2Compressor(),
		format.CompressionLZ4:  NewLZ4Compressor(),
	}
}

// bulkPayload mimics packed pose data: repeated poses with small variations.
func bulkPayload(size int) []byte {
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic test data
	pose := make([]byte, 22)
	rng.Read(pose)

	data := make([]byte, size)
	for i := range data {
		data[i] = pose[i%len(pose)]
		if i%97 == 0 {
			data[i] ^= byte(rng.Intn(256))
		}
	}

	return data
}

func TestCreateCodec(t *testing.T) {
	for ct := range getAllCodecs() {
		codec, err := CreateCodec(ct, "bulk")
		require.NoError(t, err)
		require.NotNil(t, codec)
	}

	_, err := CreateCodec(format.CompressionType(0), "bulk")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid bulk compression")

	_, err = GetCodec(format.CompressionType(9))
	require.Error(t, err)
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	sizes := []int{1, 22, 1024, 64 * 1024}

	for ct, codec := range getAllCodecs() {
		for _, size := range sizes {
			t.Run(fmt.Sprintf("%s/%d", ct, size), func(t *testing.T) {
				data := bulkPayload(size)

				compressed, err := codec.Compress(data)
				require.NoError(t, err)

				restored, err := codec.Decompress(compressed)
				require.NoError(t, err)
				require.Equal(t, data, restored)

				sized, err := DecompressSized(ct, compressed, size)
				require.NoError(t, err)
				require.Equal(t, data, sized)
			})
		}
	}
}

func TestAllCodecs_EmptyData(t *testing.T) {
	for ct, codec := range getAllCodecs() {
		t.Run(ct.String(), func(t *testing.T) {
			compressed, err := codec.Compress(nil)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, restored)
		})
	}
}

func TestDecompressSized_SizeMismatch(t *testing.T) {
	data := bulkPayload(512)

	for ct, codec := range getAllCodecs() {
		t.Run(ct.String(), func(t *testing.T) {
			compressed, err := codec.Compress(data)
			require.NoError(t, err)

			_, err = DecompressSized(ct, compressed, 511)
			require.Error(t, err)
		})
	}
}

func TestAllCodecs_InvalidData(t *testing.T) {
	garbage := []byte{0xFF, 0x00, 0x13, 0x37, 0xFF, 0xFF, 0xFF, 0xFF}

	for _, ct := range []format.CompressionType{format.CompressionZstd, format.CompressionS2} {
		t.Run(ct.String(), func(t *testing.T) {
			_, err := DecompressSized(ct, garbage, 64)
			require.Error(t, err)
		})
	}
}

func TestNoOpCompressor_Aliases(t *testing.T) {
	data := []byte("resident")
	out, err := DecompressSized(format.CompressionNone, data, len(data))
	require.NoError(t, err)
	require.True(t, &out[0] == &data[0])
}

func TestAllCodecs_ConcurrentUsage(t *testing.T) {
	data := bulkPayload(8 * 1024)

	for ct, codec := range getAllCodecs() {
		compressed, err := codec.Compress(data)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errCh := make(chan error, 16)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := DecompressSized(ct, compressed, len(data))
				if err == nil && !bytes.Equal(out, data) {
					err = fmt.Errorf("%s: round trip mismatch", ct)
				}
				errCh <- err
			}()
		}
		wg.Wait()
		close(errCh)

		for err := range errCh {
			require.NoError(t, err)
		}
	}
}

func TestCompressionStats(t *testing.T) {
	stats := CompressionStats{Algorithm: format.CompressionS2, OriginalSize: 1000, CompressedSize: 250}
	require.InDelta(t, 0.25, stats.CompressionRatio(), 1e-9)
	require.InDelta(t, 75.0, stats.SpaceSavings(), 1e-9)

	require.Zero(t, CompressionStats{}.CompressionRatio())
}

func BenchmarkDecompressSized(b *testing.B) {
	data := bulkPayload(64 * 1024)

	for ct, codec := range getAllCodecs() {
		compressed, err := codec.Compress(data)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(ct.String(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for b.Loop() {
				if _, err := DecompressSized(ct, compressed, len(data)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
