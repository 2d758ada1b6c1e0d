package decompress

import (
	"fmt"
	"math"
	"sort"

	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/stream"
)

// segmentScanWindow is the number of start table entries probed around the
// approximate segment before falling back to a binary search.
const segmentScanWindow = 4

// keySnapTolerance is the distance in samples below which a sample position is
// treated as lying exactly on a key. It absorbs the rounding of time * rate.
const keySnapTolerance = 1e-6

// Seek positions the context at sampleTime seconds.
//
// Seeking twice with the same time and rounding policy is a no-op: the resolved
// key frames and alpha are kept, unless a database tier was streamed in or out
// in between.
//
// Parameters:
//   - sampleTime: Time in seconds
//   - rounding: How the time snaps to key frames
//
// Returns:
//   - error: ErrNotInitialized for an unbound context, ErrInvalidRoundingPolicy for
//     per-track rounding without support, ErrInvalidSampleTime for NaN, or for a negative
//     or infinite time without clamping, ErrCorruptStream when segment lookup fails
func (c *Context) Seek(sampleTime float64, rounding format.RoundingPolicy) error {
	if c.tracks == nil {
		return errs.ErrNotInitialized
	}

	if rounding > format.RoundingPerTrack ||
		(rounding == format.RoundingPerTrack && !c.settings.SupportsPerTrackRounding) {
		return fmt.Errorf("%w: %s", errs.ErrInvalidRoundingPolicy, rounding)
	}

	if c.tracks.NumTracks() == 0 {
		return nil
	}

	if math.IsNaN(sampleTime) {
		c.invalidate()
		return fmt.Errorf("%w: NaN", errs.ErrInvalidSampleTime)
	}

	if c.settings.ClampSampleTime {
		sampleTime = min(max(sampleTime, 0), c.duration)
	} else if sampleTime < 0 || math.IsInf(sampleTime, 1) {
		c.invalidate()
		return fmt.Errorf("%w: %v", errs.ErrInvalidSampleTime, sampleTime)
	}

	if c.looping == format.LoopingWrap && sampleTime > c.duration && c.duration > 0 {
		sampleTime = math.Mod(sampleTime, c.duration)
	}

	var generation uint64
	if c.db != nil {
		generation = c.db.Generation()
	}

	if sampleTime == c.sampleTime && rounding == c.rounding && generation == c.generation {
		return nil
	}

	if err := c.resolve(sampleTime, rounding); err != nil {
		c.invalidate()
		return err
	}

	c.sampleTime = sampleTime
	c.rounding = rounding
	c.generation = generation

	return nil
}

// sampleKeys returns the bracketing clip-relative keys of samplePos and the
// unrounded alpha between them. A position within keySnapTolerance of a key is
// taken to be on that key.
//
// Wrapping clips interpolate the last sample back to the first; clamped clips
// saturate both keys at the last sample.
func sampleKeys(samplePos float64, numSamples uint32, looping format.LoopingPolicy) (uint32, uint32, float64) {
	last := float64(numSamples - 1)

	if nearest := math.Round(samplePos); math.Abs(samplePos-nearest) < keySnapTolerance {
		samplePos = nearest
	}

	if looping == format.LoopingWrap {
		samplePos = min(max(samplePos, 0), float64(numSamples))
		floor := math.Floor(samplePos)
		alpha := samplePos - floor

		key0 := uint32(floor) % numSamples //nolint:gosec // bounded by numSamples
		key1 := key0 + 1
		if key1 == numSamples {
			key1 = 0
		}

		return key0, key1, alpha
	}

	samplePos = min(max(samplePos, 0), last)
	floor := math.Floor(samplePos)
	key0 := uint32(floor) //nolint:gosec // bounded by numSamples
	key1 := min(key0+1, numSamples-1)
	if key0 == key1 {
		return key0, key1, 0
	}

	return key0, key1, samplePos - floor
}

// roundAlpha applies a concrete rounding policy to an unrounded alpha.
func roundAlpha(alpha float32, rounding format.RoundingPolicy) float32 {
	switch rounding {
	case format.RoundingFloor:
		return 0
	case format.RoundingCeil:
		if alpha == 0 {
			return 0
		}

		return 1
	case format.RoundingNearest:
		if alpha >= 0.5 {
			return 1
		}

		return 0
	default:
		return alpha
	}
}

// findSegment returns the index of the segment holding key.
//
// It probes a small window of the start table around key / (samples per segment),
// which finds the segment directly when segments are close to uniform, and falls
// back to a binary search otherwise.
func findSegment(tracks *stream.Tracks, key uint32) (uint32, error) {
	numSegments := tracks.NumSegments()
	if numSegments == 0 || key >= tracks.NumSamples() {
		return 0, fmt.Errorf("%w: key %d outside %d samples", errs.ErrCorruptStream, key, tracks.NumSamples())
	}

	if numSegments == 1 {
		return 0, nil
	}

	starts := tracks.SegmentStarts()
	approx := key / (tracks.NumSamples() / numSegments)
	first := min(approx, numSegments-1)
	if first > 0 {
		first--
	}

	// starts[first] must not exceed key, otherwise the segment lies before the window
	if starts[first] <= key {
		end := min(first+segmentScanWindow, numSegments)
		for i := first + 1; i <= end; i++ {
			if starts[i] > key {
				return i - 1, nil
			}
		}
	}

	idx := sort.Search(len(starts), func(i int) bool { return starts[i] > key })
	if idx == 0 {
		return 0, fmt.Errorf("%w: no segment starts at or before key %d", errs.ErrCorruptStream, key)
	}

	return uint32(idx - 1), nil //nolint:gosec // bounded by NumSegments
}
