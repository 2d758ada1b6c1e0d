package keyframe

import (
	"fmt"
	"sync"

	"github.com/arloliu/keyframe/decompress"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/pool"
	"github.com/arloliu/keyframe/stream"
)

// Allocator provides the float buffers of a decompressed clip.
type Allocator interface {
	// Float32s returns a zeroed slice of length n.
	Float32s(n int) []float32
	// Release takes back a slice returned by Float32s.
	Release(values []float32)
}

// poolAllocator hands out pooled slices and keeps each slice's cleanup until it
// is released.
type poolAllocator struct {
	mu       sync.Mutex
	cleanups map[*float32]func()
}

func newPoolAllocator() *poolAllocator {
	return &poolAllocator{cleanups: make(map[*float32]func())}
}

func (a *poolAllocator) Float32s(n int) []float32 {
	if n == 0 {
		return nil
	}

	values, cleanup := pool.GetFloat32Slice(n)

	a.mu.Lock()
	a.cleanups[&values[0]] = cleanup
	a.mu.Unlock()

	return values
}

// Release ignores slices it did not hand out, including ones already released.
func (a *poolAllocator) Release(values []float32) {
	if cap(values) == 0 {
		return
	}

	key := &values[:1][0]

	a.mu.Lock()
	cleanup, ok := a.cleanups[key]
	delete(a.cleanups, key)
	a.mu.Unlock()

	if ok {
		cleanup()
	}
}

var defaultAllocator = newPoolAllocator()

// DefaultAllocator returns the allocator used when none is configured. It recycles
// buffers through a shared pool.
func DefaultAllocator() Allocator {
	return defaultAllocator
}

// DecompressedClip holds every frame of a decoded clip.
//
// Values holds NumFrames frames of FrameSize floats each. Times holds the sample
// time of each frame in seconds. Both become nil after Dispose.
type DecompressedClip struct {
	Values []float32
	Times  []float32

	numTransformTracks uint32
	numScalarTracks    uint32
	sampleRate         float32
	frameSize          int
	allocator          Allocator
}

func newDecompressedClip(tracks *stream.Tracks, allocator Allocator) *DecompressedClip {
	numFrames := int(tracks.NumSamples())
	frameSize := int(tracks.NumTracks()) * TransformStride

	return &DecompressedClip{
		Values:             allocator.Float32s(numFrames * frameSize),
		Times:              allocator.Float32s(numFrames),
		numTransformTracks: tracks.NumTracks(),
		sampleRate:         tracks.SampleRate(),
		frameSize:          frameSize,
		allocator:          allocator,
	}
}

func (c *DecompressedClip) decode(ctx *decompress.Context, rounding format.RoundingPolicy) error {
	rate := float64(c.sampleRate)
	w := &frameWriter{}
	for i := range c.Times {
		sampleTime := float64(i) / rate
		c.Times[i] = float32(sampleTime)

		if err := ctx.Seek(sampleTime, rounding); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		w.frame = c.Values[i*c.frameSize : (i+1)*c.frameSize]
		if err := ctx.Decompress(w); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}

	return nil
}

// NumFrames returns the number of decoded frames.
func (c *DecompressedClip) NumFrames() int {
	return len(c.Times)
}

// NumTransformTracks returns the number of transform tracks per frame.
func (c *DecompressedClip) NumTransformTracks() uint32 {
	return c.numTransformTracks
}

// NumScalarTracks returns the number of scalar slots per frame.
func (c *DecompressedClip) NumScalarTracks() uint32 {
	return c.numScalarTracks
}

// SampleRate returns the clip's sample rate.
func (c *DecompressedClip) SampleRate() float32 {
	return c.sampleRate
}

// FrameSize returns the number of floats per frame.
func (c *DecompressedClip) FrameSize() int {
	return c.frameSize
}

// Frame returns the values of frame i.
//
// Returns:
//   - []float32: The frame, aliasing Values
//   - error: ErrDisposed after Dispose, or an error for i out of range
func (c *DecompressedClip) Frame(i int) ([]float32, error) {
	if c.allocator == nil {
		return nil, errs.ErrDisposed
	}

	if i < 0 || i >= len(c.Times) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(c.Times))
	}

	return c.Values[i*c.frameSize : (i+1)*c.frameSize], nil
}

// Transform returns the rotation, translation and scale of a transform track in frame i.
func (c *DecompressedClip) Transform(i int, track uint32) (decompress.Quat, decompress.Vec3, decompress.Vec3, error) {
	var q decompress.Quat
	var t, s decompress.Vec3

	frame, err := c.Frame(i)
	if err != nil {
		return q, t, s, err
	}

	if track >= c.numTransformTracks {
		return q, t, s, fmt.Errorf("%w: %d of %d", errs.ErrInvalidTrackIndex, track, c.numTransformTracks)
	}

	block := frame[int(track)*TransformStride:]
	copy(q[:], block[RotationOffset:])
	copy(t[:], block[TranslationOffset:])
	copy(s[:], block[ScaleOffset:])

	return q, t, s, nil
}

// Dispose returns the clip's buffers to its allocator. Values and Times become nil.
// Calling Dispose more than once is a no-op.
func (c *DecompressedClip) Dispose() {
	if c.allocator == nil {
		return
	}

	c.allocator.Release(c.Values)
	c.allocator.Release(c.Times)
	c.Values = nil
	c.Times = nil
	c.allocator = nil
}
