package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/textfang/pkg/config"
	"github.com/Sumatoshi-tech/textfang/pkg/engine"
	"github.com/Sumatoshi-tech/textfang/pkg/ngram"
	"github.com/Sumatoshi-tech/textfang/pkg/observability"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
	"github.com/Sumatoshi-tech/textfang/pkg/safeconv"
	"github.com/Sumatoshi-tech/textfang/pkg/table"
)

// tableExt marks columnar table files; anything else is read as one text
// record per line.
const tableExt = ".tbl"

type ngramFlags struct {
	configPath string
	jobPath    string

	input    string
	minN     int
	maxN     int
	strategy string
	dedup    string

	pairsOut string
	dictOut  string
	freqOut  string

	noProgress bool
	noColor    bool
}

// NewNgramsCommand creates the ngrams command.
func NewNgramsCommand() *cobra.Command {
	var flags ngramFlags

	cmd := &cobra.Command{
		Use:   "ngrams [flags]",
		Short: "Generate n-gram statistics for a corpus",
		Long: `Generate per-record n-gram occurrences, the n-gram dictionary, and
frequency counts for a corpus, within the configured memory budget.

The input is either a columnar table file (.tbl) with record_id and text
columns, or a plain text file with one record per line.

Examples:
  textfang ngrams --input corpus.txt --min-n 1 --max-n 2 --freq freq.tbl
  textfang ngrams --job job.json
  textfang ngrams --input corpus.tbl --strategy disk_spill --pairs pairs.tbl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNgrams(cmd, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&flags.jobPath, "job", "", "path to a JSON job file")
	cmd.Flags().StringVar(&flags.input, "input", "", "corpus path (.tbl or text lines)")
	cmd.Flags().IntVar(&flags.minN, "min-n", 0, "minimum n-gram length")
	cmd.Flags().IntVar(&flags.maxN, "max-n", 0, "maximum n-gram length")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "force strategy: direct|chunked|disk_spill")
	cmd.Flags().StringVar(&flags.dedup, "dedup", "", "force dedup mode: in_memory|external_sort")
	cmd.Flags().StringVar(&flags.pairsOut, "pairs", "", "write (record_id, ngram_id) pairs to this path")
	cmd.Flags().StringVar(&flags.dictOut, "dict", "", "write the (ngram_id, ngram) dictionary to this path")
	cmd.Flags().StringVar(&flags.freqOut, "freq", "", "write (ngram_id, ngram, count) frequencies to this path")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "disable progress output")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	return cmd
}

func runNgrams(cmd *cobra.Command, flags *ngramFlags) error {
	if flags.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	opts, input, outputs, err := resolveRun(cmd, flags, cfg)
	if err != nil {
		return err
	}

	providers, err := initObservability(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	var reporter progress.Reporter
	if !flags.noProgress {
		reporter = progress.NewTerminalReporter(os.Stderr)
	}

	eng, err := buildEngine(cfg, providers, reporter)
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(input)
	if err != nil {
		return err
	}
	defer closeSrc()

	metrics, err := observability.NewEngineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	start := time.Now()
	res, runErr := eng.Run(cmd.Context(), src, opts)
	elapsed := time.Since(start)

	if runErr != nil {
		metrics.RecordRun(cmd.Context(), engine.RunStats{}, elapsed, runErr)

		return runErr
	}

	metrics.RecordRun(cmd.Context(), res.Stats, elapsed, nil)

	if err := writeOutputs(res, outputs); err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), res, elapsed)

	return nil
}

// resolveRun merges configuration, job file, and flags into run options.
// Precedence: explicit flags, then the job file, then the config file.
func resolveRun(cmd *cobra.Command, flags *ngramFlags, cfg *config.Config) (engine.Options, string, config.JobOutput, error) {
	input := flags.input
	minN := cfg.Engine.MinN
	maxN := cfg.Engine.MaxN
	strategy := cfg.Engine.Strategy
	dedup := cfg.Engine.Dedup

	outputs := config.JobOutput{
		Pairs:       flags.pairsOut,
		Dictionary:  flags.dictOut,
		Frequencies: flags.freqOut,
	}

	if flags.jobPath != "" {
		job, err := config.LoadJob(flags.jobPath)
		if err != nil {
			return engine.Options{}, "", config.JobOutput{}, err
		}

		input = job.Input
		minN = job.MinN
		maxN = job.MaxN

		if job.Strategy != "" {
			strategy = job.Strategy
		}

		if job.Dedup != "" {
			dedup = job.Dedup
		}

		if outputs.Pairs == "" {
			outputs.Pairs = job.Output.Pairs
		}

		if outputs.Dictionary == "" {
			outputs.Dictionary = job.Output.Dictionary
		}

		if outputs.Frequencies == "" {
			outputs.Frequencies = job.Output.Frequencies
		}
	}

	if cmd.Flags().Changed("input") {
		input = flags.input
	}

	if cmd.Flags().Changed("min-n") {
		minN = flags.minN
	}

	if cmd.Flags().Changed("max-n") {
		maxN = flags.maxN
	}

	if cmd.Flags().Changed("strategy") {
		strategy = flags.strategy
	}

	if cmd.Flags().Changed("dedup") {
		dedup = flags.dedup
	}

	if input == "" {
		return engine.Options{}, "", config.JobOutput{}, fmt.Errorf("no input: pass --input or a --job file")
	}

	opts := engine.Options{
		MinN:          minN,
		MaxN:          maxN,
		BaseChunkSize: cfg.Chunking.BaseSize,
		ForceStrategy: engine.Strategy(strategy),
		ForceDedup:    engine.DedupMode(dedup),
	}

	return opts, input, outputs, nil
}

// openSource opens a corpus as an engine source. Table files become lazy
// scans; anything else is loaded as line records.
func openSource(path string) (engine.Source, func(), error) {
	if strings.HasSuffix(path, tableExt) {
		scan, err := table.OpenScan(path)
		if err != nil {
			return nil, nil, err
		}

		return engine.NewScanSource(scan), func() {}, nil
	}

	tbl, err := ngram.LoadCorpus(path)
	if err != nil {
		return nil, nil, err
	}

	return engine.NewTableSource(tbl), func() {}, nil
}

func writeOutputs(res *engine.RunResult, outputs config.JobOutput) error {
	if outputs.Pairs != "" {
		if err := table.WriteFile(outputs.Pairs, res.Pairs); err != nil {
			return fmt.Errorf("write pairs: %w", err)
		}
	}

	if outputs.Dictionary != "" {
		if err := table.WriteFile(outputs.Dictionary, res.Dictionary); err != nil {
			return fmt.Errorf("write dictionary: %w", err)
		}
	}

	if outputs.Frequencies != "" {
		if err := table.WriteFile(outputs.Frequencies, res.Frequencies); err != nil {
			return fmt.Errorf("write frequencies: %w", err)
		}
	}

	return nil
}

func printSummary(w io.Writer, res *engine.RunResult, elapsed time.Duration) {
	color.New(color.FgGreen).Fprintf(w, "n-gram generation complete (%s)\n", elapsed.Round(time.Millisecond))

	tbl := prettytable.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(prettytable.StyleLight)
	tbl.AppendRows([]prettytable.Row{
		{"records", res.Stats.Rows},
		{"pair rows", res.Stats.PairRows},
		{"unique n-grams", res.Stats.UniqueNgrams},
		{"strategy", string(res.Stats.Strategy)},
		{"dedup", string(res.Stats.DedupMode)},
		{"chunks", res.Stats.Chunks},
		{"retries", res.Stats.Retries},
		{"spill files", res.Stats.SpillFiles},
		{"escalations", res.Stats.Escalations},
		{"peak resident", humanize.IBytes(safeconv.SaturateUint64(res.Stats.PeakResidentBytes))},
	})
	tbl.Render()
}
