package decompress

import (
	"math"

	"github.com/arloliu/keyframe/format"
)

// Quat is a rotation quaternion stored as (x, y, z, w).
type Quat [4]float32

// Vec3 is a 3-component vector.
type Vec3 [3]float32

// Writer receives decoded track values. Track indices follow stream order.
type Writer interface {
	WriteRotation(track uint32, q Quat)
	WriteTranslation(track uint32, v Vec3)
	WriteScale(track uint32, v Vec3)
}

// RoundingSelector is implemented by writers that choose a rounding policy per
// track. It is consulted when a seek used format.RoundingPerTrack; returning
// format.RoundingPerTrack is an error.
type RoundingSelector interface {
	RoundingPolicy(track uint32) format.RoundingPolicy
}

func lerp(a, b, alpha float32) float32 {
	return a + (b-a)*alpha
}

func lerpVec3(a, b Vec3, alpha float32) Vec3 {
	return Vec3{lerp(a[0], b[0], alpha), lerp(a[1], b[1], alpha), lerp(a[2], b[2], alpha)}
}

// lerpQuat interpolates along the shortest path and normalizes the result.
func lerpQuat(a, b Quat, alpha float32) Quat {
	dot := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	if dot < 0 {
		b = Quat{-b[0], -b[1], -b[2], -b[3]}
	}

	q := Quat{lerp(a[0], b[0], alpha), lerp(a[1], b[1], alpha), lerp(a[2], b[2], alpha), lerp(a[3], b[3], alpha)}

	return normalizeQuat(q)
}

func normalizeQuat(q Quat) Quat {
	lenSq := float64(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if lenSq == 0 {
		return q
	}

	inv := float32(1 / math.Sqrt(lenSq))

	return Quat{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}
