package compress

// NoOpCompressor passes tier bulk data through unchanged.
//
// Databases compiled without compression record format.CompressionNone and are
// decoded through this codec, so streaming such a tier in never copies the bulk buffer.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a new no-operation codec.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Compress returns the input slice as-is.
//
// Note: The returned slice shares the same underlying memory as the input.
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns the input slice as-is.
//
// Note: The returned slice shares the same underlying memory as the input.
// Resident tier buffers are read-only, so aliasing the caller's bulk data is safe
// as long as the caller keeps it unmodified while the tier is resident.
func (c NoOpCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
