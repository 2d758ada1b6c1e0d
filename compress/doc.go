// Package compress provides the codecs used for tier bulk data of keyframe databases.
//
// A compiled database records one format.CompressionType per streamed tier. When a
// tier is streamed in, its bulk data is decompressed once with the matching codec
// and the result becomes the tier's resident buffer. The per-frame decode path never
// touches compressed bytes.
//
// # Supported Algorithms
//
//	Type                    | Codec            | Notes
//	------------------------|------------------|----------------------------------
//	format.CompressionNone  | NoOpCompressor   | bulk data is used in place
//	format.CompressionZstd  | ZstdCompressor   | best ratio, pooled encoders/decoders
//	format.CompressionS2    | S2Compressor     | balanced speed and ratio
//	format.CompressionLZ4   | LZ4Compressor    | fastest decompression, single block
//
// Zstandard uses the pure Go klauspost/compress implementation unless the module
// is built with cgo and the gozstd build tag, which selects valyala/gozstd.
//
// # Usage
//
//	bulk, err := compress.DecompressSized(format.CompressionLZ4, compressed, size)
//	if err != nil {
//	    return fmt.Errorf("stream in: %w", err)
//	}
//
// Codecs that implement SizedDecompressor decode straight into a buffer of the
// expected size; the others decode normally and the size is checked afterwards.
//
// # Thread Safety
//
// All codec implementations are safe for concurrent use.
package compress
