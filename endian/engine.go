// Package endian selects the byte order used by keyframe stream and database headers.
//
// Headers and value pools are written in the byte order recorded in the header's
// endianness flag; little-endian is the default. Packed sample bits are not
// affected: they always form an MSB-first bit stream.
//
//	engine := endian.Select(flag.IsBigEndian())
//	numTracks := engine.Uint32(data[12:16])
//
// All functions are safe for concurrent use. The returned engines are stateless.
package endian

import (
	"encoding/binary"
	"math"
)

// EndianEngine combines binary.ByteOrder and binary.AppendByteOrder so the same
// value can read headers and append them when building streams.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// Select returns the big-endian engine when bigEndian is set, little-endian otherwise.
func Select(bigEndian bool) EndianEngine {
	if bigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// Float32 reads an IEEE-754 float32 from the first four bytes of b.
func Float32(engine EndianEngine, b []byte) float32 {
	return math.Float32frombits(engine.Uint32(b))
}

// PutFloat32 writes v as an IEEE-754 float32 into the first four bytes of b.
func PutFloat32(engine EndianEngine, b []byte, v float32) {
	engine.PutUint32(b, math.Float32bits(v))
}

// AppendFloat32 appends v as an IEEE-754 float32 to b.
func AppendFloat32(engine EndianEngine, b []byte, v float32) []byte {
	return engine.AppendUint32(b, math.Float32bits(v))
}
