package decompress

import (
	"fmt"
	"math"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/bitpack"
	"github.com/arloliu/keyframe/stream"
)

// keyReader reads the poses of the two bracketing keys channel by channel.
type keyReader struct {
	tracks  *stream.Tracks
	version format.Version
	ranges  []float32
	formats [2][]byte
	cursors [2]bitpack.Cursor
}

func (c *Context) newKeyReader() keyReader {
	r := keyReader{
		tracks:  c.tracks,
		version: c.tracks.Version(),
		ranges:  c.tracks.Ranges(),
	}
	for k := range r.cursors {
		r.formats[k] = c.segments[k].Formats
		r.cursors[k] = bitpack.NewCursor(c.data[k], c.keys[k].BitOffset)
	}

	return r
}

// width returns the bit width of a channel in the segment of key k.
func (r *keyReader) width(k, channel int) (int, error) {
	return stream.BitWidth(r.version, r.formats[k][channel])
}

// skip advances both cursors past a channel.
func (r *keyReader) skip(channel int, ch *stream.Channel) error {
	for k := range r.cursors {
		width, err := r.width(k, channel)
		if err != nil {
			return err
		}
		r.cursors[k].Skip(uint64(width) * uint64(ch.Components)) //nolint:gosec // small positive values
	}

	return nil
}

// read decodes a channel at both keys.
func (r *keyReader) read(channel int, ch *stream.Channel) ([2][4]float32, error) {
	var out [2][4]float32

	if ch.Constant {
		constants := r.tracks.Constants()
		for k := range out {
			copy(out[k][:ch.Components], constants[ch.PoolIndex:ch.PoolIndex+ch.Components])
		}

		return out, nil
	}

	for k := range out {
		width, err := r.width(k, channel)
		if err != nil {
			return out, err
		}

		for i := range ch.Components {
			v, ok := r.cursors[k].Read(width)
			if !ok {
				return out, fmt.Errorf("%w: track %d %s pose read past its storage",
					errs.ErrCorruptStream, ch.Track, ch.Kind)
			}

			if width == stream.RawBitWidth {
				out[k][i] = math.Float32frombits(v)
				continue
			}

			lo := r.ranges[ch.PoolIndex+i]
			extent := r.ranges[ch.PoolIndex+ch.Components+i]
			out[k][i] = dequantize(v, width, lo, extent)
		}
	}

	return out, nil
}

// dequantize maps a width-bit value back onto [lo, lo+extent].
func dequantize(v uint32, width int, lo, extent float32) float32 {
	maxValue := float64(uint64(1)<<uint(width) - 1)

	return float32(float64(v)/maxValue*float64(extent) + float64(lo))
}

// Decompress decodes every track at the current sample time into w.
//
// Channels whose element type is not enabled in the settings are skipped. When
// the last seek used format.RoundingPerTrack and w implements RoundingSelector,
// the writer chooses each track's policy; otherwise tracks interpolate.
//
// Returns:
//   - error: ErrNotInitialized for an unbound context, ErrInvalidSampleTime before a
//     valid seek, ErrInvalidRoundingPolicy for a bad per-track choice,
//     ErrCorruptStream for unreadable pose data
func (c *Context) Decompress(w Writer) error {
	if c.tracks == nil {
		return errs.ErrNotInitialized
	}

	if c.tracks.NumTracks() == 0 {
		return nil
	}

	if c.sampleTime < 0 {
		return fmt.Errorf("%w: no valid seek", errs.ErrInvalidSampleTime)
	}

	r := c.newKeyReader()
	channels := c.tracks.Channels()
	for i := 0; i < len(channels); i += stream.ChannelsPerTransform {
		track := channels[i].Track
		alpha, err := c.trackAlpha(track, w)
		if err != nil {
			return err
		}

		for j := i; j < i+stream.ChannelsPerTransform; j++ {
			if err := c.decodeChannel(&r, j, &channels[j], alpha, w); err != nil {
				return err
			}
		}
	}

	return nil
}

// DecompressTrack decodes a single track at the current sample time into w.
//
// Parameters:
//   - track: Index of the track in stream order
//   - w: Receives the track's enabled channels
//
// Returns:
//   - error: ErrInvalidTrackIndex for a track outside the stream, ErrUnsupportedTrackType
//     when none of the track's element types is enabled, plus the errors of Decompress
func (c *Context) DecompressTrack(track uint32, w Writer) error {
	if c.tracks == nil {
		return errs.ErrNotInitialized
	}

	if track >= c.tracks.NumTracks() {
		return fmt.Errorf("%w: %d of %d", errs.ErrInvalidTrackIndex, track, c.tracks.NumTracks())
	}

	if c.sampleTime < 0 {
		return fmt.Errorf("%w: no valid seek", errs.ErrInvalidSampleTime)
	}

	channels := c.tracks.Channels()
	first := int(track) * stream.ChannelsPerTransform
	last := first + stream.ChannelsPerTransform

	supported := false
	for j := first; j < last; j++ {
		if c.settings.Elements.Has(channels[j].Kind.Element()) {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: track %d", errs.ErrUnsupportedTrackType, track)
	}

	r := c.newKeyReader()
	for j := range first {
		if err := r.skip(j, &channels[j]); err != nil {
			return err
		}
	}

	alpha, err := c.trackAlpha(track, w)
	if err != nil {
		return err
	}

	for j := first; j < last; j++ {
		if err := c.decodeChannel(&r, j, &channels[j], alpha, w); err != nil {
			return err
		}
	}

	return nil
}

// trackAlpha returns the alpha a track is interpolated with.
func (c *Context) trackAlpha(track uint32, w Writer) (float32, error) {
	if c.rounding != format.RoundingPerTrack {
		return c.alpha, nil
	}

	selector, ok := w.(RoundingSelector)
	if !ok {
		return c.alphas[format.RoundingNone], nil
	}

	policy := selector.RoundingPolicy(track)
	if policy >= format.RoundingPerTrack {
		return 0, fmt.Errorf("%w: track %d selected %s", errs.ErrInvalidRoundingPolicy, track, policy)
	}

	return c.alphas[policy], nil
}

func (c *Context) decodeChannel(r *keyReader, index int, ch *stream.Channel, alpha float32, w Writer) error {
	if !c.settings.Elements.Has(ch.Kind.Element()) {
		return r.skip(index, ch)
	}

	values, err := r.read(index, ch)
	if err != nil {
		return err
	}

	switch ch.Kind {
	case stream.ChannelRotation:
		a, b := Quat(values[0]), Quat(values[1])
		switch alpha {
		case 0:
			w.WriteRotation(ch.Track, a)
		case 1:
			w.WriteRotation(ch.Track, b)
		default:
			w.WriteRotation(ch.Track, lerpQuat(a, b, alpha))
		}
	case stream.ChannelTranslation:
		w.WriteTranslation(ch.Track, interpolateVec3(values, alpha))
	case stream.ChannelScale:
		w.WriteScale(ch.Track, interpolateVec3(values, alpha))
	}

	return nil
}

func interpolateVec3(values [2][4]float32, alpha float32) Vec3 {
	a := Vec3{values[0][0], values[0][1], values[0][2]}
	b := Vec3{values[1][0], values[1][1], values[1][2]}

	switch alpha {
	case 0:
		return a
	case 1:
		return b
	default:
		return lerpVec3(a, b, alpha)
	}
}
