package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"forcegraph/internal/codec"
	"forcegraph/internal/domain"
	"forcegraph/internal/engine"
	"forcegraph/internal/fetch"
	"forcegraph/internal/scene"
	"forcegraph/internal/service"
)

// layoutOptions are the flags of the layout command.
type layoutOptions struct {
	input       string
	out         string
	format      string
	ticks       int
	warmup      int
	dimensions  int
	colorBy     string
	maxDuration time.Duration
	verbose     bool
}

func layoutCmd() *cobra.Command {
	var opts layoutOptions

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Lay out a payload headless and write the final positions",
		Example: "  forcegraph layout --input graph.json --ticks 300 --out layout.yaml\n" +
			"  forcegraph layout -i https://example.com/graph.json -f json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			engineCfg := cfg.Graph.Engine()
			if cmd.Flags().Changed("ticks") {
				engineCfg.CooldownTicks = opts.ticks
			}
			if cmd.Flags().Changed("warmup") {
				engineCfg.WarmupTicks = opts.warmup
			}
			if cmd.Flags().Changed("dimensions") {
				engineCfg.Dimensions = opts.dimensions
			}
			if cmd.Flags().Changed("color-by") {
				engineCfg.AutoColorBy = opts.colorBy
			}
			if cmd.Flags().Changed("max-duration") {
				engineCfg.CooldownTime = opts.maxDuration
			}

			client := fetch.NewClient(
				fetch.WithRateLimit(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst),
				fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
			)
			return runLayout(cmd.Context(), client, engineCfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "payload file or URL (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: json or yaml (default: from --out)")
	cmd.Flags().IntVarP(&opts.ticks, "ticks", "n", 300, "stop after this many ticks")
	cmd.Flags().IntVar(&opts.warmup, "warmup", 0, "warm-up ticks before the first frame")
	cmd.Flags().IntVarP(&opts.dimensions, "dimensions", "d", engine.DefaultDimensions, "number of dimensions (1-3)")
	cmd.Flags().StringVar(&opts.colorBy, "color-by", "", "node field used to auto-color nodes")
	cmd.Flags().DurationVar(&opts.maxDuration, "max-duration", engine.DefaultCooldownTime, "stop after this much time")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine progress")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runLayout(ctx context.Context, fetcher engine.Fetcher, cfg engine.Config, opts layoutOptions, stdout, stderr io.Writer) error {
	if cfg.Dimensions < 1 || cfg.Dimensions > 3 {
		return fmt.Errorf("dimensions must be between 1 and 3, got %d", cfg.Dimensions)
	}

	out, err := outputCodec(opts)
	if err != nil {
		return err
	}

	data, err := fetcher.Fetch(ctx, opts.input)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.input, err)
	}

	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	camera := scene.NewPerspectiveCamera(service.DefaultCameraPosition, service.DefaultCameraTarget)
	eng, err := engine.New(scene.NewScene(camera), engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer eng.Dispose()

	cfg.Data = data
	cfg.DataURL = ""
	if err := eng.Configure(cfg); err != nil {
		return fmt.Errorf("configure engine: %w", err)
	}

	start := time.Now()
	frames, err := service.Settle(ctx, eng, 0)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	snap := eng.Snapshot()
	snap.Source = opts.input

	var buf bytes.Buffer
	if err := out.ExportSnapshot(snap, &buf); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	if opts.out == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	printLayoutSummary(stderr, snap, frames, elapsed, opts.out, buf.Len())
	return nil
}

// outputCodec picks the export codec from --format, then from the output
// file extension.
func outputCodec(opts layoutOptions) (codec.Codec, error) {
	if opts.format != "" {
		return codec.ForFormat(opts.format)
	}
	if opts.out != "" {
		return codec.ForPath(opts.out), nil
	}
	return codec.ForFormat("json")
}

func printLayoutSummary(w io.Writer, snap *domain.LayoutSnapshot, frames int, elapsed time.Duration, path string, size int) {
	fmt.Fprintf(w, "%s %s\n", good.Sprint("\u2713"), brand.Sprint("layout complete"))
	field(w, "nodes", humanize.Comma(int64(len(snap.Nodes))))
	field(w, "links", humanize.Comma(int64(snap.LinkCount)))
	field(w, "ticks", fmt.Sprintf("%s (%dD, alpha %.4f)", humanize.Comma(int64(frames)), snap.Dimensions, snap.Alpha))
	field(w, "elapsed", elapsed.Round(time.Millisecond))
	field(w, "output", fmt.Sprintf("%s (%s)", filepath.Clean(path), humanize.Bytes(uint64(size))))
	if len(snap.Nodes) == 0 {
		fmt.Fprintln(w, warn.Sprint("  payload was empty, nothing was laid out"))
	}
}
