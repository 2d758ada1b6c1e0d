package stream

import (
	"fmt"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
)

// Bit-rate ids shared by both tables.
const (
	// BitRateConstant marks a channel whose value lives in the constant pool.
	BitRateConstant uint8 = 0
	// RawBitWidth is the width of a raw channel component: a float32 bit pattern.
	RawBitWidth = 32
)

// legacyBitWidths maps legacy bit-rate ids to component widths.
var legacyBitWidths = [...]uint8{
	0, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 32,
}

// tieredBitWidths maps tiered bit-rate ids to component widths.
var tieredBitWidths = [...]uint8{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 32,
}

// BitWidth returns the component width in bits for a bit-rate id under the given version.
//
// Returns:
//   - int: 0 for constant, RawBitWidth for raw, otherwise the fixed-point width
//   - error: ErrCorruptStream for an id outside the version's table, ErrFormat for an unknown version
func BitWidth(version format.Version, id uint8) (int, error) {
	var table []uint8
	switch version {
	case format.VersionLegacy:
		table = legacyBitWidths[:]
	case format.VersionTiered:
		table = tieredBitWidths[:]
	default:
		return 0, fmt.Errorf("%w: version %s", errs.ErrFormat, version)
	}

	if int(id) >= len(table) {
		return 0, fmt.Errorf("%w: bit rate %d out of range for %s table", errs.ErrCorruptStream, id, version)
	}

	return int(table[id]), nil
}

// RawBitRate returns the raw bit-rate id of the version's table.
func RawBitRate(version format.Version) uint8 {
	if version == format.VersionLegacy {
		return uint8(len(legacyBitWidths) - 1)
	}

	return uint8(len(tieredBitWidths) - 1)
}
