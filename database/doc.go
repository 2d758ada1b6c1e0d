// Package database parses compiled tier databases and manages their streaming state.
//
// A stream with stripped key frames keeps only part of its samples clip-local. The
// rest are split into two importance tiers, medium and lowest, each backed by a
// bulk data buffer. A compiled database records, per tier and segment, which
// samples the tier provides and at which byte offset of the bulk data they start.
//
// # Streaming
//
// A Context owns one 64-bit metadata word per segment per tier:
//
//	bits  0-31: residency bitmap, bit i = segment-relative sample i
//	bits 32-63: byte offset of the segment's poses in the tier's bulk data
//
// StreamIn publishes the decompressed bulk buffer first and the words second.
// StreamOut clears the words first and the buffer second. Decoders read a tier
// with Load, which follows the same order, so any resident bit they observe refers
// to a buffer that holds the data.
//
//	db, err := database.Parse(dbBytes)
//	if err != nil {
//	    return err
//	}
//	state, err := database.NewContext(db,
//	    database.WithBulkData(format.TierMedium, mediumBulk),
//	    database.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	err = state.StreamIn(format.TierMedium)
package database
