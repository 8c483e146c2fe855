package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/chriscorrea/winnow/internal/config"
	"github.com/chriscorrea/winnow/internal/dedup"
	"github.com/chriscorrea/winnow/internal/progress"
	"github.com/chriscorrea/winnow/internal/source"

	"github.com/spf13/cobra"
)

// maxLineBytes bounds a single JSONL record; oversized lines are a data
// defect upstream should have caught.
const maxLineBytes = 16 * 1024 * 1024

// runOptions holds CLI behavior separate from engine configuration.
type runOptions struct {
	sources []string
	output  string
	workers int
	quiet   bool
	debug   bool
	stats   bool
}

// buildConfig constructs the engine configuration from an optional config
// file and command flags. Explicit flags win over file values.
func buildConfig(cmd *cobra.Command, args []string) (dedup.Config, runOptions, error) {
	cfg := dedup.DefaultConfig()

	// config file values fill in anything flags leave unset
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		file, err := config.Load(path)
		if err != nil {
			return cfg, runOptions{}, err
		}
		file.Apply(&cfg)
	}

	// explicit flags override file values
	if cmd.Flags().Changed("threshold") {
		cfg.SimilarityThreshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	if cmd.Flags().Changed("shingle-size") {
		cfg.ShingleSize, _ = cmd.Flags().GetInt("shingle-size")
	}
	if cmd.Flags().Changed("signature-length") {
		cfg.SignatureLength, _ = cmd.Flags().GetInt("signature-length")
	}
	if cmd.Flags().Changed("bands") {
		cfg.Bands, _ = cmd.Flags().GetInt("bands")
	}
	if cmd.Flags().Changed("rows") {
		cfg.Rows, _ = cmd.Flags().GetInt("rows")
	}
	if cmd.Flags().Changed("reset-between-sources") {
		cfg.ResetBetweenSources, _ = cmd.Flags().GetBool("reset-between-sources")
	}

	opts := runOptions{}
	opts.output, _ = cmd.Flags().GetString("output")
	opts.workers, _ = cmd.Flags().GetInt("workers")
	opts.quiet, _ = cmd.Flags().GetBool("quiet")
	opts.debug, _ = cmd.Flags().GetBool("debug")
	opts.stats, _ = cmd.Flags().GetBool("stats")

	// use positional arguments as sources, defaulting to stdin
	if len(args) == 0 {
		opts.sources = []string{"-"}
	} else {
		opts.sources = args
	}

	return cfg, opts, nil
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// openOutput returns the destination for surviving records.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// run streams every source through the coordinator and writes surviving
// records as JSONL.
func run(ctx context.Context, coord *dedup.Coordinator, opts runOptions) error {
	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	if out != os.Stdout {
		defer out.Close()
	}

	w := bufio.NewWriter(out)
	defer w.Flush()
	enc := json.NewEncoder(w)

	var reporter *progress.Reporter
	if !opts.quiet {
		reporter = progress.New(ctx, os.Stderr, 2*time.Second)
		reporter.Start()
		defer reporter.Stop()
	}

	for i, src := range opts.sources {
		// isolate sources from each other when requested
		if i > 0 && coord.Config().ResetBetweenSources {
			if err := coord.Reset(); err != nil {
				return err
			}
		}

		if err := processSource(ctx, coord, src, opts.workers, enc, reporter); err != nil {
			return fmt.Errorf("failed to process source %q: %w", src, err)
		}
	}

	coord.Finalize()
	if reporter != nil {
		reporter.Stop()
	}

	if opts.stats && !opts.quiet {
		printStats(os.Stderr, coord.Stats())
	}

	return w.Flush()
}

// processSource reads one JSONL source and feeds its records through the
// coordinator, writing accepted records to enc. Blank and malformed lines are
// skipped with a log entry; the stream continues.
func processSource(ctx context.Context, coord *dedup.Coordinator, src string, workers int, enc *json.Encoder, reporter *progress.Reporter) error {
	reader, err := source.Open(src)
	if err != nil {
		return err
	}
	defer reader.Close()

	in := make(chan dedup.TextRecord)
	results := coord.Run(ctx, in, workers)

	scanErr := make(chan error, 1)
	go func() {
		defer close(in)

		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var rec dedup.TextRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				slog.Warn("Skipping malformed JSON line", "source", src, "error", err)
				continue
			}
			if rec.SourceID == "" {
				rec.SourceID = src
			}

			select {
			case in <- rec:
			case <-ctx.Done():
				scanErr <- ctx.Err()
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for res := range results {
		if res.Err != nil {
			// malformed records are rejected and logged; the run continues
			slog.Warn("Rejected record", "source", src, "error", res.Err)
			continue
		}

		accepted := res.Decision.Action == dedup.Forward
		if reporter != nil {
			reporter.Record(accepted)
		}
		if !accepted {
			slog.Debug("Discarded duplicate",
				"source", res.Decision.Record.SourceID,
				"reason", res.Decision.Reason,
				"survivor", res.Decision.Survivor)
			continue
		}

		if err := enc.Encode(res.Decision.Record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	return <-scanErr
}

// printStats writes the final run counters.
func printStats(w io.Writer, stats dedup.Stats) {
	rate := 0.0
	if stats.Processed > 0 {
		rate = float64(stats.Accepted) / float64(stats.Processed) * 100
	}

	fmt.Fprintf(w, "Final Stats:\n")
	fmt.Fprintf(w, "  Processed:        %d\n", stats.Processed)
	fmt.Fprintf(w, "  Accepted:         %d (%.1f%%)\n", stats.Accepted, rate)
	fmt.Fprintf(w, "  Exact duplicates: %d\n", stats.DiscardedExact)
	fmt.Fprintf(w, "  Fuzzy duplicates: %d\n", stats.DiscardedFuzzy)
	fmt.Fprintf(w, "  Malformed:        %d\n", stats.Malformed)
}

var rootCmd = &cobra.Command{
	Use:   "winnow [sources...]",
	Short: "A streaming deduplication engine for text corpora",
	Long: `Winnow removes exact and near-duplicate records from JSONL text corpora in a
single streaming pass: byte-identical duplicates by content hash, near-duplicates
by MinHash similarity with LSH candidate retrieval. The earliest-seen copy of a
duplicate cluster survives; later copies are discarded.

Examples:
  winnow corpus.jsonl
  winnow --threshold 0.85 shard1.jsonl shard2.jsonl -o clean.jsonl
  cat corpus.jsonl | winnow --stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, opts, err := buildConfig(cmd, args)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// configure logging pending debug flag
		setupLogger(opts.debug)

		// a configuration error is fatal before any record is processed
		coord, err := dedup.NewCoordinator(cfg)
		if err != nil {
			return err
		}

		// create context with signal handling for graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := run(ctx, coord, opts); err != nil {
			return fmt.Errorf("winnow failed: %w", err)
		}

		return nil
	},
}

func init() {
	// engine parameters
	rootCmd.Flags().Float64("threshold", dedup.DefaultSimilarityThreshold, "Minimum estimated Jaccard similarity for a fuzzy duplicate")
	rootCmd.Flags().Int("shingle-size", dedup.DefaultShingleSize, "Word n-gram window size")
	rootCmd.Flags().Int("signature-length", dedup.DefaultSignatureLength, "MinHash signature length")
	rootCmd.Flags().Int("bands", 0, "LSH band count (derived from threshold when unset)")
	rootCmd.Flags().Int("rows", 0, "LSH rows per band (derived from threshold when unset)")
	rootCmd.Flags().Bool("reset-between-sources", false, "Clear corpus state between input files")

	// band parameters must be set together
	rootCmd.MarkFlagsRequiredTogether("bands", "rows")

	// run behavior
	rootCmd.Flags().StringP("output", "o", "", "Output file for surviving records (default: stdout)")
	rootCmd.Flags().StringP("config", "c", "", "YAML config file")
	rootCmd.Flags().Int("workers", 0, "Signature workers (default: number of CPUs)")
	rootCmd.Flags().Bool("stats", false, "Print final dedup counters to stderr")

	// other flags
	rootCmd.Flags().BoolP("quiet", "q", false, "Suppress progress and stats output")
	rootCmd.Flags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.Flags().MarkHidden("debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
