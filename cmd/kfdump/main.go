// kfdump decodes a compressed tracks stream, with its optional tier database and
// bulk data, and writes every frame as JSON, CBOR, or CSV.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"

	"github.com/arloliu/keyframe"
	"github.com/arloliu/keyframe/format"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	config   string
	database string
	medium   string
	lowest   string
	output   string
	format   string
	rounding string
	noWrap   bool
	digest   bool
	info     bool
	verbose  bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var f flags

	flagSet := pflag.NewFlagSet("kfdump", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&f.config, "config", "c", "", "YAML config file")
	flagSet.StringVarP(&f.database, "database", "d", "", "compiled tier database of a stripped stream")
	flagSet.StringVar(&f.medium, "medium", "", "medium tier bulk data")
	flagSet.StringVar(&f.lowest, "lowest", "", "lowest tier bulk data")
	flagSet.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	flagSet.StringVarP(&f.format, "format", "f", "", "output format: json, cbor, csv")
	flagSet.StringVar(&f.rounding, "rounding", "", "sample rounding: none, floor, ceil, nearest")
	flagSet.BoolVar(&f.noWrap, "no-wrap", false, "decode wrapping clips as clamped")
	flagSet.BoolVar(&f.digest, "digest", false, "print the BLAKE3 digest of the output to stderr")
	flagSet.BoolVar(&f.info, "info", false, "print the header summary instead of frames")
	flagSet.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printUsage(stdout, flagSet)
		return nil
	}

	if flagSet.NArg() != 1 {
		printUsage(stderr, flagSet)
		return errors.New("expected exactly one tracks file")
	}

	logLevel := slog.LevelInfo
	if f.verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := f.resolveConfig(flagSet)
	if err != nil {
		return err
	}

	tracks, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return err
	}

	in, err := f.readInputs()
	if err != nil {
		return err
	}

	if f.info {
		return printInfo(stdout, tracks, in)
	}

	opts, err := decodeOptions(cfg, in, logger)
	if err != nil {
		return err
	}

	_, hash, err := keyframe.Identify(tracks)
	if err != nil {
		return err
	}

	clip, err := keyframe.DecompressTracks(tracks, nil, opts...)
	if err != nil {
		return err
	}
	defer clip.Dispose()

	dump, err := newDump(hash, clip)
	if err != nil {
		return err
	}

	out, err := dump.encode(cfg.Format)
	if err != nil {
		return err
	}

	if err := writeOutput(f.output, stdout, out); err != nil {
		return err
	}

	logger.Debug("clip dumped",
		slog.String("format", cfg.Format),
		slog.Int("frames", clip.NumFrames()),
		slog.Int("bytes", len(out)))

	if cfg.Digest {
		sum := blake3.Sum256(out)
		fmt.Fprintf(stderr, "blake3 %x\n", sum)
	}

	return nil
}

// resolveConfig loads the config file, if any, and applies explicitly set flags.
func (f *flags) resolveConfig(flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	if f.config != "" {
		var err error
		if cfg, err = LoadFile(f.config); err != nil {
			return nil, err
		}
	}

	if flagSet.Changed("format") {
		cfg.Format = f.format
	}
	if flagSet.Changed("rounding") {
		cfg.Rounding = f.rounding
	}
	if flagSet.Changed("no-wrap") {
		cfg.Wrapping = !f.noWrap
	}
	if flagSet.Changed("digest") {
		cfg.Digest = f.digest
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// inputs holds the optional database and tier bulk files named by flags.
type inputs struct {
	database []byte
	// bulk is indexed like format.StreamedTiers.
	bulk [len(format.StreamedTiers)][]byte
}

func (f *flags) readInputs() (*inputs, error) {
	in := &inputs{}

	if f.database != "" {
		data, err := os.ReadFile(f.database)
		if err != nil {
			return nil, err
		}
		in.database = data
	}

	for i, path := range [len(format.StreamedTiers)]string{f.medium, f.lowest} {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		in.bulk[i] = data
	}

	return in, nil
}

func decodeOptions(cfg *Config, in *inputs, logger *slog.Logger) ([]keyframe.Option, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	rounding, err := cfg.RoundingPolicy()
	if err != nil {
		return nil, err
	}

	opts := []keyframe.Option{
		keyframe.WithSettings(settings),
		keyframe.WithRounding(rounding),
		keyframe.WithLogger(logger),
	}

	if in.database != nil {
		opts = append(opts, keyframe.WithDatabase(in.database))
	}

	for i, tier := range format.StreamedTiers {
		if in.bulk[i] != nil {
			opts = append(opts, keyframe.WithBulkData(tier, in.bulk[i]))
		}
	}

	return opts, nil
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, 0o644) //nolint:gosec // dump output is not sensitive
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `kfdump - decode compressed animation tracks

USAGE
    kfdump [flags] <tracks-file>

FLAGS
%s
EXAMPLES
    # Dump a clip as JSON
    kfdump clip.kft

    # Dump a stripped clip with its medium tier as CSV
    kfdump -d clip.kfdb --medium clip.medium -f csv clip.kft
`, flagSet.FlagUsages())
}
