package decompress

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/section"
	"github.com/arloliu/keyframe/stream"
)

// tierSnapshot is one streamed tier's buffer and segment entry as observed by a seek.
type tierSnapshot struct {
	data  []byte
	entry section.TierEntry
}

// segmentView is the storage of one segment as observed by a seek. The tier words
// are loaded once per segment so that both keys of a segment see the same state.
type segmentView struct {
	seg      *stream.Segment
	tiers    [len(format.StreamedTiers)]tierSnapshot
	combined uint32
}

// resolve computes the key frames, their storage locations and the interpolation
// alphas for a validated sample time.
func (c *Context) resolve(sampleTime float64, rounding format.RoundingPolicy) error {
	c.resolveCount++

	numSamples := c.tracks.NumSamples()
	samplePos := sampleTime * float64(c.tracks.SampleRate())
	if c.looping == format.LoopingClamp && sampleTime >= c.duration {
		samplePos = float64(numSamples - 1)
	}
	key0, key1, alpha := sampleKeys(samplePos, numSamples, c.looping)

	segIndex, err := findSegment(c.tracks, key0)
	if err != nil {
		return err
	}
	seg0 := c.tracks.Segment(segIndex)

	var seg1 *stream.Segment
	switch {
	case seg0.Contains(key1):
		seg1 = seg0
	case key1 == 0:
		seg1 = c.tracks.Segment(0)
	case segIndex+1 < c.tracks.NumSegments():
		seg1 = c.tracks.Segment(segIndex + 1)
	default:
		return fmt.Errorf("%w: key %d follows the last segment", errs.ErrCorruptStream, key1)
	}

	view0 := c.observe(seg0)
	view1 := view0
	if seg1 != seg0 {
		view1 = c.observe(seg1)
	}

	resolved0, err := view0.roundDown(key0)
	if err != nil {
		return err
	}

	resolved1, err := view1.roundUp(key1)
	if err != nil {
		return err
	}

	if resolved0 != key0 || resolved1 != key1 {
		alpha = rescaleAlpha(float64(key0)+alpha, resolved0, resolved1, key1 < key0, numSamples)
	}

	c.keys[0], c.data[0] = c.locate(view0, resolved0)
	c.keys[1], c.data[1] = c.locate(view1, resolved1)
	c.segments[0] = seg0
	c.segments[1] = seg1
	c.usesSingleSegment = seg0 == seg1

	for policy := format.RoundingNone; policy < format.RoundingPerTrack; policy++ {
		c.alphas[policy] = roundAlpha(float32(alpha), policy)
	}

	c.alpha = c.alphas[format.RoundingNone]
	if rounding != format.RoundingPerTrack {
		c.alpha = c.alphas[rounding]
	}

	return nil
}

// observe snapshots the storage of a segment. Non-stripped segments, and stripped
// segments without a bound database, hold every usable sample locally.
func (c *Context) observe(seg *stream.Segment) segmentView {
	view := segmentView{seg: seg, combined: seg.Residency}
	if !seg.IsStripped() || c.db == nil {
		return view
	}

	for i := range view.tiers {
		data, entry := c.db.Load(i, seg.Index)
		view.tiers[i] = tierSnapshot{data: data, entry: entry}
		view.combined |= entry.Bitmap
	}

	return view
}

// roundDown returns the closest available key at or before key.
func (v *segmentView) roundDown(key uint32) (uint32, error) {
	if !v.seg.IsStripped() {
		return key, nil
	}

	rel := key - v.seg.Start
	mask := v.combined & lowBits(rel+1)
	if mask == 0 {
		return 0, fmt.Errorf("%w: segment %d holds no sample at or before %d", errs.ErrCorruptStream, v.seg.Index, rel)
	}

	return v.seg.Start + uint32(bits.Len32(mask)) - 1, nil //nolint:gosec // at most 32
}

// roundUp returns the closest available key at or after key.
func (v *segmentView) roundUp(key uint32) (uint32, error) {
	if !v.seg.IsStripped() {
		return key, nil
	}

	rel := key - v.seg.Start
	mask := v.combined &^ lowBits(rel)
	if mask == 0 {
		return 0, fmt.Errorf("%w: segment %d holds no sample at or after %d", errs.ErrCorruptStream, v.seg.Index, rel)
	}

	return v.seg.Start + uint32(bits.TrailingZeros32(mask)), nil //nolint:gosec // at most 32
}

// locate returns where the pose of an available key is stored and the buffer holding it.
// Streamed tiers take precedence over the clip-local region, medium first.
func (c *Context) locate(v segmentView, key uint32) (KeyLocation, []byte) {
	seg := v.seg
	rel := key - seg.Start
	loc := KeyLocation{Segment: seg.Index, Key: key, Tier: format.TierHighest}

	if !seg.IsStripped() {
		loc.Position = rel
		loc.BitOffset = uint64(seg.AnimatedOffset)*8 + uint64(rel)*uint64(seg.PoseBitSize)

		return loc, c.tracks.Data()
	}

	bit := uint32(1) << rel
	for i, tier := range format.StreamedTiers {
		snap := v.tiers[i]
		if snap.entry.Bitmap&bit == 0 {
			continue
		}

		loc.Tier = tier
		loc.Position = uint32(bits.OnesCount32(snap.entry.Bitmap & (bit - 1))) //nolint:gosec // at most 32
		loc.BitOffset = uint64(snap.entry.Offset)*8 + uint64(loc.Position)*uint64(seg.PoseBitSize)

		return loc, snap.data
	}

	loc.Position = uint32(bits.OnesCount32(seg.Residency & (bit - 1))) //nolint:gosec // at most 32
	loc.BitOffset = uint64(seg.AnimatedOffset)*8 + uint64(loc.Position)*uint64(seg.PoseBitSize)

	return loc, c.tracks.Data()
}

// rescaleAlpha recomputes the alpha of samplePos between two resolved keys.
// A wrapped second key lies numSamples past its index.
func rescaleAlpha(samplePos float64, key0, key1 uint32, wrapped bool, numSamples uint32) float64 {
	end := float64(key1)
	if wrapped {
		end += float64(numSamples)
	}

	span := end - float64(key0)
	if span <= 0 {
		return 0
	}

	return min(max((samplePos-float64(key0))/span, 0), 1)
}

func lowBits(n uint32) uint32 {
	if n >= 32 {
		return ^uint32(0)
	}

	return uint32(1)<<n - 1
}
