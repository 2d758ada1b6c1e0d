package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetFloat32Slice(t *testing.T) {
	t.Run("returns slice with correct size", func(t *testing.T) {
		slice, cleanup := GetFloat32Slice(100)
		defer cleanup()

		require.Len(t, slice, 100)
		require.GreaterOrEqual(t, cap(slice), 100)
	})

	t.Run("returned slice is zeroed", func(t *testing.T) {
		slice, cleanup := GetFloat32Slice(16)
		for i := range slice {
			slice[i] = float32(i) + 1
		}
		cleanup()

		again, cleanup2 := GetFloat32Slice(16)
		defer cleanup2()
		for _, v := range again {
			require.Zero(t, v)
		}
	})

	t.Run("allocates new slice when capacity insufficient", func(t *testing.T) {
		_, cleanup1 := GetFloat32Slice(10)
		cleanup1()

		slice, cleanup2 := GetFloat32Slice(1000)
		defer cleanup2()

		require.Len(t, slice, 1000)
	})

	t.Run("zero size", func(t *testing.T) {
		slice, cleanup := GetFloat32Slice(0)
		defer cleanup()

		require.Empty(t, slice)
	})
}

func BenchmarkGetFloat32Slice(b *testing.B) {
	for b.Loop() {
		slice, cleanup := GetFloat32Slice(1024)
		slice[0] = 1
		cleanup()
	}
}
