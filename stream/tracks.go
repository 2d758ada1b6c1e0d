package stream

import (
	"fmt"
	"math"

	"github.com/arloliu/keyframe/endian"
	"github.com/arloliu/keyframe/errs"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/hash"
	"github.com/arloliu/keyframe/section"
)

// Tracks is a parsed, read-only view of a compressed tracks stream.
//
// The view borrows the stream buffer: segment formats and packed pose bits alias
// it, so the buffer must outlive the Tracks and must not be modified.
// Tracks is safe for concurrent use.
type Tracks struct {
	data      []byte
	header    section.TracksHeader
	engine    endian.EndianEngine
	starts    []uint32
	segments  []Segment
	channels  []Channel
	constants []float32
	ranges    []float32
}

// Parse parses and validates a compressed tracks stream.
//
// Transform (qvvf) streams are fully validated: region bounds, the segment start
// table, bit rates, pool sizes, and pose sizes. Scalar streams are validated at
// header level only since their payload layout is not decoded.
//
// Parameters:
//   - data: The stream bytes (at least TotalSize bytes)
//
// Returns:
//   - *Tracks: The parsed view
//   - error: ErrInvalidHeaderSize or ErrInvalidHeaderFlags for a bad header, ErrFormat for an
//     unsupported algorithm or version, ErrHashMismatch for a corrupted payload,
//     ErrCorruptStream for inconsistent tables
func Parse(data []byte) (*Tracks, error) {
	header, err := section.ParseTracksHeader(data)
	if err != nil {
		return nil, err
	}

	t := &Tracks{
		header: header,
		engine: header.Flag.GetEndianEngine(),
	}

	if err := t.validateHeader(len(data)); err != nil {
		return nil, err
	}

	t.data = data[:header.TotalSize]
	if sum := hash.Content(t.data[section.TracksHeaderSize:]); sum != header.Hash {
		return nil, fmt.Errorf("%w: stored %#08x, computed %#08x", errs.ErrHashMismatch, header.Hash, sum)
	}

	if t.IsScalar() || header.NumTracks == 0 {
		return t, nil
	}

	if err := t.parseSegments(); err != nil {
		return nil, err
	}

	if err := t.parseChannels(); err != nil {
		return nil, err
	}

	if err := t.validatePoses(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Tracks) validateHeader(size int) error {
	h := &t.header

	if h.Flag.AlgorithmType() != format.AlgorithmUniformlySampled {
		return fmt.Errorf("%w: algorithm %s", errs.ErrFormat, h.Flag.AlgorithmType())
	}

	version := format.Version(h.Version)
	if version < format.VersionFirst || version > format.VersionLatest {
		return fmt.Errorf("%w: version %s", errs.ErrFormat, version)
	}

	policy := format.LoopingPolicy(h.LoopingPolicy)
	if policy != format.LoopingClamp && policy != format.LoopingWrap {
		return fmt.Errorf("%w: looping policy %d", errs.ErrCorruptStream, h.LoopingPolicy)
	}

	if h.TotalSize < section.TracksHeaderSize || int(h.TotalSize) > size {
		return fmt.Errorf("%w: total size %d, buffer %d", errs.ErrCorruptStream, h.TotalSize, size)
	}

	rate := float64(h.SampleRate)
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return fmt.Errorf("%w: sample rate %v", errs.ErrCorruptStream, h.SampleRate)
	}

	if h.NumTracks > 0 && h.NumSamples == 0 {
		return fmt.Errorf("%w: %d tracks without samples", errs.ErrCorruptStream, h.NumTracks)
	}

	return nil
}

func (t *Tracks) parseSegments() error {
	h := &t.header
	numSegments := h.NumSegments

	if numSegments == 0 || numSegments > h.NumSamples {
		return fmt.Errorf("%w: %d segments for %d samples", errs.ErrCorruptStream, numSegments, h.NumSamples)
	}

	startsEnd := uint64(h.SegmentTableOffset) + (uint64(numSegments)+1)*section.SegmentStartSize
	headersEnd := startsEnd + uint64(numSegments)*section.SegmentHeaderSize
	if h.SegmentTableOffset < section.TracksHeaderSize || headersEnd > uint64(h.ConstantPoolOffset) ||
		h.ConstantPoolOffset > h.TotalSize {
		return fmt.Errorf("%w: segment table overlaps pools", errs.ErrCorruptStream)
	}

	t.starts = make([]uint32, numSegments+1)
	off := int(h.SegmentTableOffset)
	for i := range t.starts {
		t.starts[i] = t.engine.Uint32(t.data[off : off+section.SegmentStartSize])
		off += section.SegmentStartSize
	}

	if t.starts[0] != 0 || t.starts[numSegments] != section.SegmentStartSentinel {
		return fmt.Errorf("%w: segment start table must begin at 0 and end with the sentinel", errs.ErrCorruptStream)
	}

	for i := uint32(1); i < numSegments; i++ {
		if t.starts[i] <= t.starts[i-1] || t.starts[i] >= h.NumSamples {
			return fmt.Errorf("%w: segment %d start %d out of order", errs.ErrCorruptStream, i, t.starts[i])
		}
	}

	t.segments = make([]Segment, numSegments)
	stripped := h.Flag.HasStrippedKeyFrames()
	for i := range t.segments {
		seg := &t.segments[i]
		if err := t.parseSegmentHeader(seg, off); err != nil {
			return err
		}
		off += section.SegmentHeaderSize

		seg.Index = uint32(i) //nolint:gosec // bounded by NumSegments
		seg.Start = t.starts[i]
		if i+1 < len(t.segments) {
			seg.NumSamples = t.starts[i+1] - seg.Start
		} else {
			seg.NumSamples = h.NumSamples - seg.Start
		}
		seg.stripped = stripped

		if !stripped {
			seg.Residency = seg.SampleMask()
			continue
		}

		if seg.NumSamples > section.MaxStrippedSegmentSamples {
			return fmt.Errorf("%w: stripped segment %d has %d samples", errs.ErrCorruptStream, i, seg.NumSamples)
		}

		first, last := uint32(1), uint32(1)<<(seg.NumSamples-1)
		if seg.Residency&^seg.SampleMask() != 0 || seg.Residency&first == 0 || seg.Residency&last == 0 {
			return fmt.Errorf("%w: segment %d residency %#x must hold its first and last sample",
				errs.ErrCorruptStream, i, seg.Residency)
		}
	}

	return nil
}

func (t *Tracks) parseSegmentHeader(seg *Segment, off int) error {
	var sh section.SegmentHeader
	if err := sh.Parse(t.data[off:off+section.SegmentHeaderSize], t.engine); err != nil {
		return err
	}

	seg.AnimatedOffset = sh.AnimatedOffset
	seg.PoseBitSize = sh.PoseBitSize
	seg.Residency = sh.Residency

	return nil
}

func (t *Tracks) parseChannels() error {
	h := &t.header
	numChannels := uint64(h.NumTracks) * ChannelsPerTransform

	if h.RangePoolOffset < h.ConstantPoolOffset || h.FormatTableOffset < h.RangePoolOffset {
		return fmt.Errorf("%w: pool offsets out of order", errs.ErrCorruptStream)
	}

	formatEnd := uint64(h.FormatTableOffset) + uint64(h.NumSegments)*numChannels
	if formatEnd > uint64(h.TotalSize) {
		return fmt.Errorf("%w: format table exceeds stream", errs.ErrCorruptStream)
	}

	formats := t.data[h.FormatTableOffset:formatEnd]
	for i := range t.segments {
		start := uint64(i) * numChannels
		t.segments[i].Formats = formats[start : start+numChannels]
	}

	t.channels = make([]Channel, numChannels)
	var constFloats, rangeFloats int
	for i := range t.channels {
		ch := &t.channels[i]
		ch.Track = uint32(i / ChannelsPerTransform) //nolint:gosec // bounded by NumTracks
		ch.Kind = ChannelKind(i % ChannelsPerTransform)
		ch.Components = ch.Kind.Element().Components()
		ch.Constant = t.segments[0].Formats[i] == BitRateConstant

		for s := 1; s < len(t.segments); s++ {
			if (t.segments[s].Formats[i] == BitRateConstant) != ch.Constant {
				return fmt.Errorf("%w: channel %d constancy differs in segment %d", errs.ErrCorruptStream, i, s)
			}
		}

		if ch.Constant {
			ch.PoolIndex = constFloats
			constFloats += ch.Components
		} else {
			ch.PoolIndex = rangeFloats
			rangeFloats += 2 * ch.Components
		}
	}

	constSize := int(h.RangePoolOffset - h.ConstantPoolOffset)
	rangeSize := int(h.FormatTableOffset - h.RangePoolOffset)
	if constSize != constFloats*section.PoolValueSize || rangeSize != rangeFloats*section.PoolValueSize {
		return fmt.Errorf("%w: pools hold %d/%d bytes, channels need %d/%d", errs.ErrCorruptStream,
			constSize, rangeSize, constFloats*section.PoolValueSize, rangeFloats*section.PoolValueSize)
	}

	t.constants = t.readPool(h.ConstantPoolOffset, constFloats)
	t.ranges = t.readPool(h.RangePoolOffset, rangeFloats)

	return nil
}

func (t *Tracks) readPool(offset uint32, count int) []float32 {
	values := make([]float32, count)
	off := int(offset)
	for i := range values {
		values[i] = endian.Float32(t.engine, t.data[off:off+section.PoolValueSize])
		off += section.PoolValueSize
	}

	return values
}

func (t *Tracks) validatePoses() error {
	version := t.Version()
	animatedStart := uint64(t.header.FormatTableOffset) + uint64(len(t.segments))*uint64(len(t.channels))

	for i := range t.segments {
		seg := &t.segments[i]

		poseBits, err := t.PoseBitSize(seg.Formats, version)
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}

		if poseBits != uint64(seg.PoseBitSize) {
			return fmt.Errorf("%w: segment %d pose size %d, formats need %d",
				errs.ErrCorruptStream, i, seg.PoseBitSize, poseBits)
		}

		end := uint64(seg.AnimatedOffset) + (uint64(seg.StoredPoses())*poseBits+7)/8
		if uint64(seg.AnimatedOffset) < animatedStart || end > uint64(t.header.TotalSize) {
			return fmt.Errorf("%w: segment %d animated region [%d, %d) outside stream",
				errs.ErrCorruptStream, i, seg.AnimatedOffset, end)
		}
	}

	return nil
}

// PoseBitSize returns the number of bits of one pose packed with the given per-channel bit rates.
func (t *Tracks) PoseBitSize(formats []byte, version format.Version) (uint64, error) {
	if len(formats) != len(t.channels) {
		return 0, fmt.Errorf("%w: %d formats for %d channels", errs.ErrCorruptStream, len(formats), len(t.channels))
	}

	var total uint64
	for c, id := range formats {
		width, err := BitWidth(version, id)
		if err != nil {
			return 0, err
		}
		total += uint64(width) * uint64(t.channels[c].Components) //nolint:gosec // small positive values
	}

	return total, nil
}

// Data returns the stream bytes, truncated to TotalSize.
func (t *Tracks) Data() []byte {
	return t.data
}

// Header returns a copy of the parsed header.
func (t *Tracks) Header() section.TracksHeader {
	return t.header
}

// Hash returns the content hash identifying the stream.
func (t *Tracks) Hash() uint32 {
	return t.header.Hash
}

// NumTracks returns the number of tracks.
func (t *Tracks) NumTracks() uint32 {
	return t.header.NumTracks
}

// NumSamples returns the number of samples per track.
func (t *Tracks) NumSamples() uint32 {
	return t.header.NumSamples
}

// SampleRate returns the number of samples per second.
func (t *Tracks) SampleRate() float32 {
	return t.header.SampleRate
}

// TrackType returns the element layout of the stream's tracks.
func (t *Tracks) TrackType() format.TrackType {
	return t.header.Flag.Type()
}

// IsScalar reports whether the stream holds scalar tracks.
func (t *Tracks) IsScalar() bool {
	return t.header.Flag.Type().IsScalar()
}

// Algorithm returns the algorithm tag.
func (t *Tracks) Algorithm() format.AlgorithmType {
	return t.header.Flag.AlgorithmType()
}

// Version returns the format version.
func (t *Tracks) Version() format.Version {
	return format.Version(t.header.Version)
}

// LoopingPolicy returns the policy the stream was compressed with.
func (t *Tracks) LoopingPolicy() format.LoopingPolicy {
	return format.LoopingPolicy(t.header.LoopingPolicy)
}

// HasStrippedKeyFrames reports whether some samples live outside the clip-local regions.
func (t *Tracks) HasStrippedKeyFrames() bool {
	return t.header.Flag.HasStrippedKeyFrames()
}

// Duration returns the clip duration in seconds under the looping policy.
//
// A clamped clip ends on its last sample; a wrapping clip lasts one extra sample
// interval so the last sample interpolates back to the first.
func (t *Tracks) Duration(policy format.LoopingPolicy) float64 {
	n := t.header.NumSamples
	if n == 0 {
		return 0
	}

	rate := float64(t.header.SampleRate)
	if policy == format.LoopingWrap {
		return float64(n) / rate
	}

	return float64(n-1) / rate
}

// NumSegments returns the number of segments.
func (t *Tracks) NumSegments() uint32 {
	return uint32(len(t.segments)) //nolint:gosec // bounded by NumSegments
}

// Segment returns the segment at index i.
func (t *Tracks) Segment(i uint32) *Segment {
	return &t.segments[i]
}

// Segments returns every segment in start order.
func (t *Tracks) Segments() []Segment {
	return t.segments
}

// SegmentStarts returns the segment start table, terminated by SegmentStartSentinel.
func (t *Tracks) SegmentStarts() []uint32 {
	return t.starts
}

// Channels returns the channel descriptions in track order.
func (t *Tracks) Channels() []Channel {
	return t.channels
}

// Constants returns the decoded constant pool.
func (t *Tracks) Constants() []float32 {
	return t.constants
}

// Ranges returns the decoded range pool.
func (t *Tracks) Ranges() []float32 {
	return t.ranges
}
