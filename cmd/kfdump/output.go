package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/arloliu/keyframe"
)

// Dump is the serialized form of a decoded clip.
type Dump struct {
	Hash       uint32  `json:"hash" cbor:"hash"`
	SampleRate float32 `json:"sample_rate" cbor:"sample_rate"`
	NumTracks  uint32  `json:"num_tracks" cbor:"num_tracks"`
	Frames     []Frame `json:"frames" cbor:"frames"`
}

// Frame is one decoded frame.
type Frame struct {
	Time   float32     `json:"time" cbor:"time"`
	Tracks []Transform `json:"tracks" cbor:"tracks"`
}

// Transform is one transform track of a frame.
type Transform struct {
	Rotation    [4]float32 `json:"rotation" cbor:"rotation"`
	Translation [3]float32 `json:"translation" cbor:"translation"`
	Scale       [3]float32 `json:"scale" cbor:"scale"`
}

var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("kfdump: CBOR encoder initialization failed: " + err.Error())
	}
}

func newDump(hash uint32, clip *keyframe.DecompressedClip) (*Dump, error) {
	d := &Dump{
		Hash:       hash,
		SampleRate: clip.SampleRate(),
		NumTracks:  clip.NumTransformTracks(),
		Frames:     make([]Frame, clip.NumFrames()),
	}

	for i := range d.Frames {
		frame := &d.Frames[i]
		frame.Time = clip.Times[i]
		frame.Tracks = make([]Transform, d.NumTracks)
		for track := range d.NumTracks {
			q, t, s, err := clip.Transform(i, track)
			if err != nil {
				return nil, err
			}
			frame.Tracks[track] = Transform{Rotation: q, Translation: t, Scale: s}
		}
	}

	return d, nil
}

// encode serializes the dump in the named format.
func (d *Dump) encode(name string) ([]byte, error) {
	switch name {
	case "json":
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, err
		}

		return append(data, '\n'), nil
	case "cbor":
		return cborMode.Marshal(d)
	case "csv":
		return d.csv()
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

var csvHeader = []string{
	"frame", "time", "track",
	"rot_x", "rot_y", "rot_z", "rot_w",
	"pos_x", "pos_y", "pos_z",
	"scale_x", "scale_y", "scale_z",
}

func (d *Dump) csv() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	row := make([]string, 0, len(csvHeader))
	for i, frame := range d.Frames {
		for track, tr := range frame.Tracks {
			row = append(row[:0], strconv.Itoa(i), formatFloat(frame.Time), strconv.Itoa(track))
			for _, v := range tr.Rotation {
				row = append(row, formatFloat(v))
			}
			for _, v := range tr.Translation {
				row = append(row, formatFloat(v))
			}
			for _, v := range tr.Scale {
				row = append(row, formatFloat(v))
			}

			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()

	return buf.Bytes(), w.Error()
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
