package format

import "fmt"

type (
	AlgorithmType   uint8
	Version         uint16
	TrackType       uint8
	ElementType     uint8
	LoopingPolicy   uint8
	RoundingPolicy  uint8
	CompressionType uint8
	QualityTier     uint8
)

const (
	AlgorithmUniformlySampled AlgorithmType = 0x1 // AlgorithmUniformlySampled is the only supported algorithm.
)

const (
	VersionLegacy Version = 0x1 // VersionLegacy selects the legacy bit-rate table.
	VersionTiered Version = 0x2 // VersionTiered selects the tiered bit-rate table and enables databases.

	VersionFirst  = VersionLegacy
	VersionLatest = VersionTiered
)

const (
	TrackFloat1 TrackType = 0x1 // TrackFloat1 is a scalar track with one component.
	TrackFloat2 TrackType = 0x2 // TrackFloat2 is a scalar track with two components.
	TrackFloat3 TrackType = 0x3 // TrackFloat3 is a scalar track with three components.
	TrackFloat4 TrackType = 0x4 // TrackFloat4 is a scalar track with four components.
	TrackVector TrackType = 0x5 // TrackVector is a scalar 4-vector track.
	TrackQVV    TrackType = 0x6 // TrackQVV is a transform track: rotation, translation, scale.
)

const (
	ElementFloat1   ElementType = 0x1
	ElementFloat2   ElementType = 0x2
	ElementFloat3   ElementType = 0x3
	ElementFloat4   ElementType = 0x4
	ElementVector3  ElementType = 0x5
	ElementRotation ElementType = 0x6
)

const (
	LoopingClamp        LoopingPolicy = 0x0 // LoopingClamp saturates at the first and last sample.
	LoopingWrap         LoopingPolicy = 0x1 // LoopingWrap treats the clip as cyclic.
	LoopingAsCompressed LoopingPolicy = 0xF // LoopingAsCompressed restores the stream's own policy.
)

const (
	RoundingNone     RoundingPolicy = 0x0 // RoundingNone interpolates between the two bracketing samples.
	RoundingFloor    RoundingPolicy = 0x1 // RoundingFloor snaps to the earlier sample.
	RoundingCeil     RoundingPolicy = 0x2 // RoundingCeil snaps to the later sample.
	RoundingNearest  RoundingPolicy = 0x3 // RoundingNearest snaps to the closest sample.
	RoundingPerTrack RoundingPolicy = 0x4 // RoundingPerTrack asks the writer for a policy per track.
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

const (
	TierHighest QualityTier = 0x0 // TierHighest is the clip-local data, always resident.
	TierMedium  QualityTier = 0x1 // TierMedium is the preferred streamed tier.
	TierLowest  QualityTier = 0x2 // TierLowest is the fallback streamed tier.
)

// StreamedTiers lists the tiers backed by database bulk data, in lookup preference order.
var StreamedTiers = [2]QualityTier{TierMedium, TierLowest}

func (a AlgorithmType) String() string {
	if a == AlgorithmUniformlySampled {
		return "UniformlySampled"
	}

	return fmt.Sprintf("Unknown(%d)", uint8(a))
}

func (v Version) String() string {
	switch v {
	case VersionLegacy:
		return "Legacy"
	case VersionTiered:
		return "Tiered"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(v))
	}
}

func (t TrackType) String() string {
	switch t {
	case TrackFloat1:
		return "float1f"
	case TrackFloat2:
		return "float2f"
	case TrackFloat3:
		return "float3f"
	case TrackFloat4:
		return "float4f"
	case TrackVector:
		return "vector4f"
	case TrackQVV:
		return "qvvf"
	default:
		return "Unknown"
	}
}

// IsValid reports whether t is a known track type.
func (t TrackType) IsValid() bool {
	return t >= TrackFloat1 && t <= TrackQVV
}

// IsScalar reports whether t is one of the scalar track types.
func (t TrackType) IsScalar() bool {
	return t >= TrackFloat1 && t <= TrackVector
}

func (e ElementType) String() string {
	switch e {
	case ElementFloat1:
		return "float1"
	case ElementFloat2:
		return "float2"
	case ElementFloat3:
		return "float3"
	case ElementFloat4:
		return "float4"
	case ElementVector3:
		return "vector3"
	case ElementRotation:
		return "rotation"
	default:
		return "Unknown"
	}
}

// Components returns the number of float components of the element type.
func (e ElementType) Components() int {
	switch e {
	case ElementFloat1:
		return 1
	case ElementFloat2:
		return 2
	case ElementFloat3, ElementVector3:
		return 3
	case ElementFloat4, ElementRotation:
		return 4
	default:
		return 0
	}
}

func (p LoopingPolicy) String() string {
	switch p {
	case LoopingClamp:
		return "Clamp"
	case LoopingWrap:
		return "Wrap"
	case LoopingAsCompressed:
		return "AsCompressed"
	default:
		return "Unknown"
	}
}

func (p RoundingPolicy) String() string {
	switch p {
	case RoundingNone:
		return "None"
	case RoundingFloor:
		return "Floor"
	case RoundingCeil:
		return "Ceil"
	case RoundingNearest:
		return "Nearest"
	case RoundingPerTrack:
		return "PerTrack"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

func (q QualityTier) String() string {
	switch q {
	case TierHighest:
		return "Highest"
	case TierMedium:
		return "Medium"
	case TierLowest:
		return "Lowest"
	default:
		return "Unknown"
	}
}
