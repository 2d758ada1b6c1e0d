// Package section defines the low-level binary structures and constants for keyframe streams
// and tier databases.
//
// This package provides the fixed-size types that describe the physical layout of a
// compressed tracks stream and of a compiled database. It handles binary
// serialization/deserialization of headers, flags, segment headers, and tier entries.
//
// # Tracks Stream Structure
//
//	┌─────────────────────────────────────────────────────────┐
//	│ TracksHeader (48 bytes, fixed)                          │
//	├─────────────────────────────────────────────────────────┤
//	│ Segment start table ((N+1) × 4 bytes)                   │
//	│  - strictly increasing, last entry is 0xFFFFFFFF        │
//	├─────────────────────────────────────────────────────────┤
//	│ Segment headers (N × 12 bytes)                          │
//	├─────────────────────────────────────────────────────────┤
//	│ Constant pool (f32 values)                              │
//	├─────────────────────────────────────────────────────────┤
//	│ Range pool (f32 minimums then extents per channel)      │
//	├─────────────────────────────────────────────────────────┤
//	│ Format table (N × channels bit-rate ids)                │
//	├─────────────────────────────────────────────────────────┤
//	│ Animated regions (MSB-first packed poses per segment)   │
//	└─────────────────────────────────────────────────────────┘
//
// # Header Format
//
// TracksHeader (48 bytes):
//
//	Bytes  | Field              | Type    | Description
//	-------|--------------------|---------|----------------------------------
//	0-3    | Flag               | uint32  | Options, algorithm, track type
//	4-5    | Version            | uint16  | Bit-rate table selector
//	6      | LoopingPolicy      | uint8   | 0 clamp, 1 wrap
//	8-11   | Hash               | uint32  | xxhash64 (low half) of the payload
//	12-15  | NumTracks          | uint32  |
//	16-19  | NumSamples         | uint32  | Samples per track
//	20-23  | SampleRate         | float32 | Samples per second
//	24-27  | NumSegments        | uint32  |
//	28-43  | Region offsets     | uint32  | Segment table, pools, format table
//	44-47  | TotalSize          | uint32  | Stream size in bytes
//
// DatabaseHeader (40 bytes):
//
//	Bytes  | Field              | Type    | Description
//	-------|--------------------|---------|----------------------------------
//	0-1    | Options            | uint16  | Magic 0xAD1, endianness
//	2-3    | Version            | uint16  |
//	4-7    | Hash               | uint32  | xxhash64 (low half) of the payload
//	8-11   | TracksHash         | uint32  | Hash of the bound tracks stream
//	12-15  | NumSegments        | uint32  |
//	16-23  | BulkSize[2]        | uint32  | Uncompressed medium/lowest bulk size
//	24-25  | Compression[2]     | uint8   | Medium/lowest bulk compression
//	28-31  | EntriesOffset      | uint32  | Byte offset of the tier entry table
//	32-35  | TotalSize          | uint32  | Database size in bytes
//
// # Flag Format
//
//	Byte 0-1 (Options, 16 bits, always little-endian):
//	  Bit 0: Stripped key frames (tracks only)
//	  Bit 1: Endianness (0=little-endian, 1=big-endian)
//	  Bit 2-3: Reserved, must be 0
//	  Bit 4-15: Magic number
//	Byte 2: Algorithm (tracks only)
//	Byte 3: Track type (tracks only)
//
// The Options field is read before the byte order is known, so it is stored
// little-endian regardless of the endianness bit.
package section
