// Package fixture builds small tracks streams and tier databases for tests, examples,
// and tools.
//
// It is not a compressor: samples are supplied by the caller, bit rates are chosen
// by the caller, and quantization simply maps each channel onto its observed range.
package fixture

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/arloliu/keyframe/compress"
	"github.com/arloliu/keyframe/endian"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/internal/bitpack"
	"github.com/arloliu/keyframe/internal/hash"
	"github.com/arloliu/keyframe/section"
)

// Transform is one sample of a qvvf track.
type Transform struct {
	Rotation    [4]float32
	Translation [3]float32
	Scale       [3]float32
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}}
}

// Components returns the channel's components of the transform.
func (t Transform) Components(kind int) []float32 {
	switch kind {
	case 0:
		return t.Rotation[:]
	case 1:
		return t.Translation[:]
	default:
		return t.Scale[:]
	}
}

const channelsPerTrack = 3

// Clip describes a stream to build.
type Clip struct {
	// SampleRate in samples per second.
	SampleRate float32
	// Version selects the bit-rate table. Zero means format.VersionLatest.
	Version format.Version
	// Looping is the policy recorded in the stream.
	Looping format.LoopingPolicy
	// BigEndian writes headers and pools big-endian.
	BigEndian bool
	// SegmentStarts holds the first sample of each segment. Nil means a single segment.
	SegmentStarts []uint32
	// Samples holds Samples[track][sample]. Every track has the same sample count.
	Samples [][]Transform
	// BitRates holds BitRates[segment][channel]; channels are rotation, translation,
	// scale per track. Nil means raw for every channel.
	BitRates [][]uint8
	// Residency marks the locally stored samples of each segment. Nil means not stripped.
	Residency []uint32
	// Tiers holds, for the medium then lowest tier, the per-segment bitmaps of the
	// samples the tier provides. Ignored when Residency is nil.
	Tiers [2][]uint32
	// Compression holds the bulk compression of the medium then lowest tier.
	// Zero means format.CompressionNone.
	Compression [2]format.CompressionType
	// TrackType overrides the recorded track type. Scalar types produce a header-only stream.
	TrackType format.TrackType
}

// Built holds the encoded artifacts of a Clip.
type Built struct {
	Tracks   []byte
	Database []byte
	// Bulk holds the compressed bulk data of the medium then lowest tier.
	Bulk [2][]byte
	// RawBulk holds the uncompressed bulk data.
	RawBulk [2][]byte
}

type layout struct {
	clip        Clip
	version     format.Version
	engine      endian.EndianEngine
	numSamples  uint32
	numTracks   uint32
	numChannels int
	starts      []uint32
	bitRates    [][]uint8
	constants   []float32
	mins        [][]float32
	extents     [][]float32
	poseBits    []uint32
}

// Build encodes the clip and, when it is stripped and has tier bitmaps, its database.
func Build(c Clip) (*Built, error) {
	l, err := newLayout(c)
	if err != nil {
		return nil, err
	}

	built := &Built{}
	built.Tracks, err = l.tracks()
	if err != nil {
		return nil, err
	}

	if c.Residency == nil || (c.Tiers[0] == nil && c.Tiers[1] == nil) {
		return built, nil
	}

	if err := l.database(built); err != nil {
		return nil, err
	}

	return built, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(c Clip) *Built {
	b, err := Build(c)
	if err != nil {
		panic(err)
	}

	return b
}

func newLayout(c Clip) (*layout, error) {
	l := &layout{clip: c, version: c.Version}
	if l.version == 0 {
		l.version = format.VersionLatest
	}
	l.engine = endian.Select(c.BigEndian)
	l.numTracks = uint32(len(c.Samples)) //nolint:gosec // test sizes

	if l.numTracks > 0 {
		l.numSamples = uint32(len(c.Samples[0])) //nolint:gosec // test sizes
		for _, track := range c.Samples {
			if len(track) != int(l.numSamples) {
				return nil, errors.New("fixture: tracks have different sample counts")
			}
		}
	}
	l.numChannels = int(l.numTracks) * channelsPerTrack

	if c.TrackType != 0 && c.TrackType != format.TrackQVV {
		return l, nil
	}

	l.starts = c.SegmentStarts
	if l.starts == nil && l.numSamples > 0 {
		l.starts = []uint32{0}
	}

	l.bitRates = c.BitRates
	if l.bitRates == nil {
		raw := rawBitRate(l.version)
		l.bitRates = make([][]uint8, len(l.starts))
		for s := range l.bitRates {
			l.bitRates[s] = make([]uint8, l.numChannels)
			for ch := range l.bitRates[s] {
				l.bitRates[s][ch] = raw
			}
		}
	}

	if len(l.bitRates) != len(l.starts) {
		return nil, fmt.Errorf("fixture: %d bit-rate rows for %d segments", len(l.bitRates), len(l.starts))
	}

	if c.Residency != nil && len(c.Residency) != len(l.starts) {
		return nil, fmt.Errorf("fixture: %d residency bitmaps for %d segments", len(c.Residency), len(l.starts))
	}

	l.computeRanges()

	l.poseBits = make([]uint32, len(l.starts))
	for s := range l.starts {
		for ch := range l.numChannels {
			width := bitWidth(l.version, l.bitRates[s][ch])
			l.poseBits[s] += uint32(width * componentsOf(ch)) //nolint:gosec // test sizes
		}
	}

	return l, nil
}

func componentsOf(ch int) int {
	if ch%channelsPerTrack == 0 {
		return 4
	}

	return 3
}

func (l *layout) computeRanges() {
	l.mins = make([][]float32, l.numChannels)
	l.extents = make([][]float32, l.numChannels)

	for ch := range l.numChannels {
		track, kind := ch/channelsPerTrack, ch%channelsPerTrack
		samples := l.clip.Samples[track]

		if l.bitRates[0][ch] == 0 {
			l.constants = append(l.constants, samples[0].Components(kind)...)
			continue
		}

		n := componentsOf(ch)
		lo := make([]float32, n)
		hi := make([]float32, n)
		for i := range n {
			lo[i] = float32(math.Inf(1))
			hi[i] = float32(math.Inf(-1))
		}
		for _, sample := range samples {
			for i, v := range sample.Components(kind) {
				lo[i] = min(lo[i], v)
				hi[i] = max(hi[i], v)
			}
		}

		ext := make([]float32, n)
		for i := range n {
			ext[i] = hi[i] - lo[i]
		}
		l.mins[ch] = lo
		l.extents[ch] = ext
	}
}

func (l *layout) segmentSamples(s int) uint32 {
	if s+1 < len(l.starts) {
		return l.starts[s+1] - l.starts[s]
	}

	return l.numSamples - l.starts[s]
}

// storedSamples returns the segment-relative samples held by a bitmap, or every sample when bitmap is nil.
func (l *layout) storedSamples(s int, bitmap *uint32) []uint32 {
	n := l.segmentSamples(s)
	out := make([]uint32, 0, n)
	for i := range n {
		if bitmap == nil || (*bitmap)&(1<<i) != 0 {
			out = append(out, i)
		}
	}

	return out
}

func (l *layout) writePose(w *bitpack.Writer, s int, sample uint32) {
	for ch := range l.numChannels {
		track, kind := ch/channelsPerTrack, ch%channelsPerTrack
		width := bitWidth(l.version, l.bitRates[s][ch])
		if width == 0 {
			continue
		}

		values := l.clip.Samples[track][sample].Components(kind)
		for i, v := range values {
			w.WriteBits(quantize(v, l.mins[ch][i], l.extents[ch][i], width), width)
		}
	}
}

// quantize maps v onto width bits; the raw width stores the float32 bit pattern.
func quantize(v, lo, extent float32, width int) uint32 {
	if width == 32 {
		return math.Float32bits(v)
	}

	if extent == 0 {
		return 0
	}

	maxValue := float64(uint32(1)<<uint(width) - 1)
	normalized := min(max(float64(v-lo)/float64(extent), 0), 1)

	return uint32(math.Round(normalized * maxValue))
}

func (l *layout) tracks() ([]byte, error) {
	h := section.NewTracksHeader()
	if l.clip.BigEndian {
		h.Flag.WithBigEndian()
	}
	if l.clip.TrackType != 0 {
		h.Flag.TrackType = uint8(l.clip.TrackType)
	}
	h.Flag.SetStrippedKeyFrames(l.clip.Residency != nil)
	h.Version = uint16(l.version)
	h.LoopingPolicy = uint8(l.clip.Looping)
	h.NumTracks = l.numTracks
	h.NumSamples = l.numSamples
	h.SampleRate = l.clip.SampleRate
	h.NumSegments = uint32(len(l.starts)) //nolint:gosec // test sizes

	body := make([]byte, section.TracksHeaderSize)

	h.SegmentTableOffset = uint32(len(body)) //nolint:gosec // test sizes
	for _, start := range l.starts {
		body = l.engine.AppendUint32(body, start)
	}
	if len(l.starts) > 0 {
		body = l.engine.AppendUint32(body, section.SegmentStartSentinel)
	}

	headersAt := len(body)
	body = append(body, make([]byte, len(l.starts)*section.SegmentHeaderSize)...)

	h.ConstantPoolOffset = uint32(len(body)) //nolint:gosec // test sizes
	for _, v := range l.constants {
		body = endian.AppendFloat32(l.engine, body, v)
	}

	h.RangePoolOffset = uint32(len(body)) //nolint:gosec // test sizes
	for ch := range l.mins {
		if l.mins[ch] == nil {
			continue
		}
		for _, v := range l.mins[ch] {
			body = endian.AppendFloat32(l.engine, body, v)
		}
		for _, v := range l.extents[ch] {
			body = endian.AppendFloat32(l.engine, body, v)
		}
	}

	h.FormatTableOffset = uint32(len(body)) //nolint:gosec // test sizes
	for _, row := range l.bitRates {
		if len(row) != l.numChannels {
			return nil, fmt.Errorf("fixture: %d bit rates for %d channels", len(row), l.numChannels)
		}
		body = append(body, row...)
	}

	segments := make([]byte, 0, len(l.starts)*section.SegmentHeaderSize)
	for s := range l.starts {
		var residency *uint32
		seg := section.SegmentHeader{
			AnimatedOffset: uint32(len(body)), //nolint:gosec // test sizes
			PoseBitSize:    l.poseBits[s],
		}
		if l.clip.Residency != nil {
			residency = &l.clip.Residency[s]
			seg.Residency = l.clip.Residency[s]
		} else if n := l.segmentSamples(s); n < 32 {
			seg.Residency = uint32(1)<<n - 1
		} else {
			seg.Residency = math.MaxUint32
		}

		w := bitpack.NewWriter()
		for _, i := range l.storedSamples(s, residency) {
			l.writePose(w, s, l.starts[s]+i)
		}
		body = append(body, w.Bytes()...)
		w.Finish()

		segments = seg.Append(segments, l.engine)
	}
	copy(body[headersAt:], segments)

	h.TotalSize = uint32(len(body)) //nolint:gosec // test sizes
	copy(body, h.Bytes())
	Rehash(body)

	return body, nil
}

func (l *layout) database(built *Built) error {
	h := section.NewDatabaseHeader()
	if l.clip.BigEndian {
		h.Options |= section.EndiannessMask
	}
	h.Version = uint16(l.version)
	h.NumSegments = uint32(len(l.starts)) //nolint:gosec // test sizes

	entries := make([]byte, 0, 2*len(l.starts)*section.TierEntrySize)
	for tier := range 2 {
		bitmaps := l.clip.Tiers[tier]
		if bitmaps != nil && len(bitmaps) != len(l.starts) {
			return fmt.Errorf("fixture: tier %d has %d bitmaps for %d segments", tier, len(bitmaps), len(l.starts))
		}

		w := bitpack.NewWriter()
		for s := range l.starts {
			var entry section.TierEntry
			if bitmaps != nil && bitmaps[s] != 0 {
				w.PadToByte()
				entry.Bitmap = bitmaps[s]
				entry.Offset = uint32(w.BitLen() / 8) //nolint:gosec // test sizes
				for _, i := range l.storedSamples(s, &bitmaps[s]) {
					l.writePose(w, s, l.starts[s]+i)
				}
			}
			entries = entry.Append(entries, l.engine)
		}

		raw := append([]byte(nil), w.Bytes()...)
		w.Finish()

		ct := l.clip.Compression[tier]
		if ct == 0 {
			ct = format.CompressionNone
		}
		codec, err := compress.CreateCodec(ct, "fixture bulk")
		if err != nil {
			return err
		}
		packed, err := codec.Compress(raw)
		if err != nil {
			return err
		}

		built.RawBulk[tier] = raw
		built.Bulk[tier] = packed
		h.BulkSize[tier] = uint32(len(raw)) //nolint:gosec // test sizes
		h.Compression[tier] = uint8(ct)
	}

	h.EntriesOffset = section.DatabaseHeaderSize
	h.TotalSize = uint32(section.DatabaseHeaderSize + len(entries)) //nolint:gosec // test sizes

	tracksHeader, err := section.ParseTracksHeader(built.Tracks)
	if err != nil {
		return err
	}
	h.TracksHash = tracksHeader.Hash

	db := append(h.Bytes(), entries...)
	RehashDatabase(db)
	built.Database = db

	return nil
}

// Rehash recomputes the content hash of a tracks stream in place, for tests that
// corrupt a stream on purpose and need it to pass hash verification.
func Rehash(tracks []byte) {
	h, err := section.ParseTracksHeader(tracks)
	if err != nil {
		panic(err)
	}

	engine := h.Flag.GetEndianEngine()
	engine.PutUint32(tracks[8:12], hash.Content(tracks[section.TracksHeaderSize:h.TotalSize]))
}

// RehashDatabase recomputes the content hash of a database in place.
func RehashDatabase(db []byte) {
	h, err := section.ParseDatabaseHeader(db)
	if err != nil {
		panic(err)
	}

	engine := h.GetEndianEngine()
	engine.PutUint32(db[4:8], hash.Content(db[section.DatabaseHeaderSize:h.TotalSize]))
}

// PutTracksField overwrites a 32-bit tracks header field at byte offset off and rehashes.
func PutTracksField(tracks []byte, off int, value uint32) {
	h, err := section.ParseTracksHeader(tracks)
	if err != nil {
		panic(err)
	}

	h.Flag.GetEndianEngine().PutUint32(tracks[off:off+4], value)
	Rehash(tracks)
}

func bitWidth(version format.Version, id uint8) int {
	if id == 0 {
		return 0
	}

	if version == format.VersionLegacy {
		if id >= 18 {
			return 32
		}

		return int(id) + 2
	}

	if id >= 24 {
		return 32
	}

	return int(id)
}

func rawBitRate(version format.Version) uint8 {
	if version == format.VersionLegacy {
		return 18
	}

	return 24
}

// LowBits returns a bitmap with the lowest n bits set.
func LowBits(n uint32) uint32 {
	if n >= 32 {
		return math.MaxUint32
	}

	return uint32(1)<<n - 1
}

// Stripped returns the residency bitmap of a segment of n samples keeping only its
// first and last sample, plus every sample in keep.
func Stripped(n uint32, keep ...uint32) uint32 {
	bitmap := uint32(1) | uint32(1)<<(n-1)
	for _, k := range keep {
		bitmap |= 1 << k
	}

	return bitmap
}

// Complement returns the samples of a segment of n samples missing from bitmap.
func Complement(n uint32, bitmap uint32) uint32 {
	return LowBits(n) &^ bitmap
}

// Count returns the number of set bits.
func Count(bitmap uint32) int {
	return bits.OnesCount32(bitmap)
}
