package stream

import "github.com/arloliu/keyframe/format"

// ChannelKind identifies the transform component a channel carries.
type ChannelKind uint8

const (
	ChannelRotation    ChannelKind = iota // ChannelRotation is a quaternion (x, y, z, w).
	ChannelTranslation                    // ChannelTranslation is a 3-vector.
	ChannelScale                          // ChannelScale is a 3-vector.
)

// ChannelsPerTransform is the number of channels of one qvvf track.
const ChannelsPerTransform = 3

func (k ChannelKind) String() string {
	switch k {
	case ChannelRotation:
		return "rotation"
	case ChannelTranslation:
		return "translation"
	case ChannelScale:
		return "scale"
	default:
		return "unknown"
	}
}

// Element returns the element type stored by channels of this kind.
func (k ChannelKind) Element() format.ElementType {
	if k == ChannelRotation {
		return format.ElementRotation
	}

	return format.ElementVector3
}

// Channel is the static description of one channel of a transform track.
type Channel struct {
	// Track is the index of the owning track.
	Track uint32
	// Kind is the transform component.
	Kind ChannelKind
	// Components is the number of float components.
	Components int
	// Constant reports whether every segment stores the channel in the constant pool.
	Constant bool
	// PoolIndex is the index of the channel's first float in the constant pool when
	// Constant is set, otherwise the index of its first minimum in the range pool.
	// Range extents follow the minimums.
	PoolIndex int
}
