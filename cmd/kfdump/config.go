package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/keyframe/decompress"
	"github.com/arloliu/keyframe/format"
)

// Config holds the dump settings that may come from a YAML file.
// Command-line flags override file values.
type Config struct {
	// Format is the output encoding: json, cbor, or csv.
	Format string `yaml:"format"`

	// Rounding is the sampling policy: none, floor, ceil, or nearest.
	Rounding string `yaml:"rounding"`

	// Wrapping honors the stream's wrap looping policy.
	Wrapping bool `yaml:"wrapping"`

	// ClampSampleTime clamps frame times into the clip.
	ClampSampleTime bool `yaml:"clamp_sample_time"`

	// Elements lists the decoded element types: rotation and vector3.
	// Empty decodes everything.
	Elements []string `yaml:"elements"`

	// Digest prints the BLAKE3 digest of the output to stderr.
	Digest bool `yaml:"digest"`
}

// Default returns the configuration used before a file is loaded.
func Default() *Config {
	return &Config{
		Format:          "json",
		Rounding:        "none",
		Wrapping:        true,
		ClampSampleTime: true,
	}
}

// LoadFile overlays a YAML file onto the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "cbor", "csv":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}

	if _, err := c.RoundingPolicy(); err != nil {
		return err
	}

	_, err := c.Settings()

	return err
}

// RoundingPolicy returns the configured rounding policy.
func (c *Config) RoundingPolicy() (format.RoundingPolicy, error) {
	switch strings.ToLower(c.Rounding) {
	case "", "none":
		return format.RoundingNone, nil
	case "floor":
		return format.RoundingFloor, nil
	case "ceil":
		return format.RoundingCeil, nil
	case "nearest":
		return format.RoundingNearest, nil
	default:
		return 0, fmt.Errorf("unknown rounding %q", c.Rounding)
	}
}

// Settings returns the decompression settings described by the config.
func (c *Config) Settings() (decompress.Settings, error) {
	opts := []decompress.Option{
		decompress.WithWrapping(c.Wrapping),
		decompress.WithClampSampleTime(c.ClampSampleTime),
	}

	if len(c.Elements) > 0 {
		elems := make([]format.ElementType, 0, len(c.Elements))
		for _, name := range c.Elements {
			switch strings.ToLower(name) {
			case "rotation":
				elems = append(elems, format.ElementRotation)
			case "vector3":
				elems = append(elems, format.ElementVector3)
			default:
				return decompress.Settings{}, fmt.Errorf("unknown element %q", name)
			}
		}
		opts = append(opts, decompress.WithElements(elems...))
	}

	return decompress.NewSettings(opts...)
}
