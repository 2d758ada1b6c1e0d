// Package errs defines the sentinel errors returned by keyframe packages.
//
// Callers should match errors with errors.Is, since most errors are wrapped
// with additional context before being returned.
package errs

import "errors"

// Binding and format errors.
var (
	// ErrFormat indicates an algorithm tag or format version this decoder does not support.
	ErrFormat = errors.New("unsupported stream format")
	// ErrBindingMismatch indicates a rebind against a different logical stream or database.
	ErrBindingMismatch = errors.New("binding mismatch: stream or database hash differs")
	// ErrNotInitialized indicates an operation on a context that was never initialized.
	ErrNotInitialized = errors.New("decompression context is not initialized")
	// ErrNotImplemented is returned by the scalar-track decode path.
	ErrNotImplemented = errors.New("scalar track decompression is not implemented")
)

// Seek and decode errors.
var (
	// ErrInvalidSampleTime indicates a negative or NaN sample time, or a decode before any valid seek.
	ErrInvalidSampleTime = errors.New("invalid sample time")
	// ErrInvalidRoundingPolicy indicates a rounding policy that cannot be applied in the current configuration.
	ErrInvalidRoundingPolicy = errors.New("invalid sample rounding policy")
	// ErrInvalidLoopingPolicy indicates a looping policy value outside clamp, wrap, and as-compressed.
	ErrInvalidLoopingPolicy = errors.New("invalid looping policy")
	// ErrUnsupportedTrackType indicates a track whose element types are disabled by the settings.
	ErrUnsupportedTrackType = errors.New("unsupported track element type")
	// ErrInvalidTrackIndex indicates a track index outside the stream's track range.
	ErrInvalidTrackIndex = errors.New("invalid track index")
	// ErrCorruptStream indicates malformed segment tables, bit rates, pools, or out-of-range bit reads.
	ErrCorruptStream = errors.New("corrupt stream data")
)

// Header parsing errors.
var (
	// ErrInvalidHeaderSize indicates a buffer too short to hold the fixed header.
	ErrInvalidHeaderSize = errors.New("invalid header size")
	// ErrInvalidHeaderFlags indicates a bad magic number or reserved bits set.
	ErrInvalidHeaderFlags = errors.New("invalid header flags")
	// ErrHashMismatch indicates that the stored content hash does not match the payload.
	ErrHashMismatch = errors.New("content hash mismatch")
)

// Database and clip errors.
var (
	// ErrBulkDataMissing indicates a stream-in request for a tier without bulk data.
	ErrBulkDataMissing = errors.New("tier bulk data not provided")
	// ErrInvalidTier indicates a quality tier that has no streamed storage.
	ErrInvalidTier = errors.New("invalid quality tier")
	// ErrDisposed indicates use of a decompressed clip after Dispose.
	ErrDisposed = errors.New("decompressed clip already disposed")
)
