package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/arloliu/keyframe/compress"
	"github.com/arloliu/keyframe/database"
	"github.com/arloliu/keyframe/format"
	"github.com/arloliu/keyframe/stream"
)

// printInfo writes a summary of a tracks stream header and its segments, and of
// the tier database when one is given.
func printInfo(w io.Writer, data []byte, in *inputs) error {
	tracks, err := stream.Parse(data)
	if err != nil {
		return err
	}

	var db *database.Database
	if in.database != nil {
		if db, err = database.Parse(in.database); err != nil {
			return err
		}
		if err := db.Validate(tracks); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "hash\t%#08x\n", tracks.Hash())
	fmt.Fprintf(tw, "version\t%s\n", tracks.Version())
	fmt.Fprintf(tw, "track type\t%s\n", tracks.TrackType())
	fmt.Fprintf(tw, "tracks\t%d\n", tracks.NumTracks())
	fmt.Fprintf(tw, "samples\t%d\n", tracks.NumSamples())
	fmt.Fprintf(tw, "sample rate\t%g\n", tracks.SampleRate())
	fmt.Fprintf(tw, "looping\t%s\n", tracks.LoopingPolicy())
	fmt.Fprintf(tw, "duration\t%gs\n", tracks.Duration(tracks.LoopingPolicy()))
	fmt.Fprintf(tw, "stripped\t%t\n", tracks.HasStrippedKeyFrames())
	fmt.Fprintf(tw, "segments\t%d\n", tracks.NumSegments())

	if db != nil {
		fmt.Fprintf(tw, "database\t%#08x\n", db.Hash())
		for i, tier := range format.StreamedTiers {
			if err := printTierBulk(tw, db, tier, in.bulk[i]); err != nil {
				return err
			}
		}
	}

	for _, seg := range tracks.Segments() {
		fmt.Fprintf(tw, "  segment %d\tstart %d, %d samples, %d stored, %d bits/pose, local %#x\n",
			seg.Index, seg.Start, seg.NumSamples, seg.StoredPoses(), seg.PoseBitSize, seg.Residency)

		if db == nil {
			continue
		}

		for _, tier := range format.StreamedTiers {
			entry, err := db.Entry(tier, seg.Index)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "    %s\tbitmap %#x, offset %d\n", tier, entry.Bitmap, entry.Offset)
		}
	}

	return tw.Flush()
}

func printTierBulk(w io.Writer, db *database.Database, tier format.QualityTier, bulk []byte) error {
	size, err := db.BulkSize(tier)
	if err != nil {
		return err
	}

	ct, err := db.Compression(tier)
	if err != nil {
		return err
	}

	if bulk == nil {
		_, err = fmt.Fprintf(w, "%s bulk\t%s, %d bytes uncompressed\n", tier, ct, size)
		return err
	}

	stats := compress.CompressionStats{
		Algorithm:      ct,
		OriginalSize:   int64(size),
		CompressedSize: int64(len(bulk)),
	}
	_, err = fmt.Fprintf(w, "%s bulk\t%s, %d bytes stored, %d uncompressed (ratio %.2f, %.1f%% saved)\n",
		tier, stats.Algorithm, stats.CompressedSize, stats.OriginalSize, stats.CompressionRatio(), stats.SpaceSavings())

	return err
}
