package endian

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	require.Equal(t, binary.LittleEndian, Select(false))
	require.Equal(t, binary.BigEndian, Select(true))
	require.Equal(t, GetLittleEndianEngine(), Select(false))
	require.Equal(t, GetBigEndianEngine(), Select(true))
}

func TestFloat32(t *testing.T) {
	tests := []struct {
		name   string
		engine EndianEngine
		want   []byte
	}{
		{"little endian", GetLittleEndianEngine(), []byte{0x00, 0x00, 0xc0, 0x3f}},
		{"big endian", GetBigEndianEngine(), []byte{0x3f, 0xc0, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := make([]byte, 4)
			PutFloat32(tt.engine, b, 1.5)
			require.Equal(t, tt.want, b)
			require.InDelta(t, 1.5, Float32(tt.engine, b), 0)

			appended := AppendFloat32(tt.engine, []byte{0xff}, 1.5)
			require.Equal(t, append([]byte{0xff}, tt.want...), appended)
		})
	}
}

func TestFloat32_SpecialValues(t *testing.T) {
	engine := GetLittleEndianEngine()
	b := make([]byte, 4)

	for _, v := range []float32{0, float32(math.Copysign(0, -1)), float32(math.Inf(1)), float32(math.Inf(-1)), math.MaxFloat32, math.SmallestNonzeroFloat32} {
		PutFloat32(engine, b, v)
		require.Equal(t, math.Float32bits(v), math.Float32bits(Float32(engine, b)))
	}

	PutFloat32(engine, b, float32(math.NaN()))
	require.True(t, math.IsNaN(float64(Float32(engine, b))))
}

func BenchmarkFloat32(b *testing.B) {
	engine := GetLittleEndianEngine()
	buf := make([]byte, 4)
	PutFloat32(engine, buf, 3.25)

	for b.Loop() {
		_ = Float32(engine, buf)
	}
}
