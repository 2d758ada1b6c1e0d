// Package decompress samples compressed transform tracks at arbitrary times.
//
// A Context is bound to a parsed stream (and optionally to the streaming state of
// its tier database) with Initialize. Seek then resolves the two key frames that
// bracket a sample time and the interpolation alpha between them, and Decompress
// or DecompressTrack decode the poses at those keys into a Writer.
//
// # Sampling
//
// The sample position is time * sampleRate. Clamped clips saturate at the last
// sample; wrapping clips interpolate the last sample back to the first and fold
// times past the end. Rounding policies snap the alpha to 0 or 1 instead of
// interpolating:
//
//	RoundingNone      interpolate
//	RoundingFloor     earlier key
//	RoundingCeil      later key, unless the time lies exactly on a key
//	RoundingNearest   closer key, ties to the later one
//	RoundingPerTrack  chosen by the writer per track
//
// # Stripped key frames
//
// A stripped stream keeps only some samples of each segment locally. Missing
// samples may be provided by the medium and lowest tiers of a database. A seek
// rounds each key to the closest sample available in any resident storage and
// recomputes the alpha between the resolved keys, so streaming tiers in or out
// changes quality but never fails a seek.
//
// Example:
//
//	tracks, _ := stream.Parse(data)
//	ctx := decompress.NewContext(decompress.DefaultSettings())
//	if err := ctx.Initialize(tracks, nil); err != nil {
//	    return err
//	}
//	if err := ctx.Seek(0.5, format.RoundingNone); err != nil {
//	    return err
//	}
//	err := ctx.Decompress(writer)
package decompress
