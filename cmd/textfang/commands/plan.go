package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/textfang/pkg/config"
	"github.com/Sumatoshi-tech/textfang/pkg/engine"
	"github.com/Sumatoshi-tech/textfang/pkg/safeconv"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var (
		configPath string
		input      string
		strategy   string
	)

	cmd := &cobra.Command{
		Use:   "plan [flags]",
		Short: "Show what a run would do under current memory pressure",
		Long: `Report the memory budget, current pressure tier, selected strategy, and
effective window size a run would start with, without touching the data.

Examples:
  textfang plan --input corpus.tbl
  textfang plan --input corpus.txt --strategy disk_spill`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.OutOrStdout(), configPath, input, strategy)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&input, "input", "", "corpus path (.tbl or text lines)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "force strategy: direct|chunked|disk_spill")

	return cmd
}

func runPlan(w io.Writer, configPath, input, strategy string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if input == "" {
		return fmt.Errorf("no input: pass --input")
	}

	providers, err := initObservability(cfg)
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, providers, nil)
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(input)
	if err != nil {
		return err
	}
	defer closeSrc()

	plan := eng.Plan(src, engine.Options{
		MinN:          cfg.Engine.MinN,
		MaxN:          cfg.Engine.MaxN,
		BaseChunkSize: cfg.Chunking.BaseSize,
		ForceStrategy: engine.Strategy(strategy),
	})

	rows := "unknown"
	if plan.RowsKnown {
		rows = humanize.Comma(int64(plan.Rows))
	}

	tbl := prettytable.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(prettytable.StyleLight)
	tbl.AppendRows([]prettytable.Row{
		{"budget", humanize.IBytes(safeconv.SaturateUint64(plan.BudgetBytes))},
		{"pressure tier", plan.Tier.String()},
		{"records", rows},
		{"estimated pairs", humanize.Comma(int64(plan.EstimatedPairs))},
		{"strategy", string(plan.Strategy)},
		{"effective window", humanize.Comma(int64(plan.EffectiveWindow))},
		{"spill threshold", humanize.Comma(int64(plan.SpillThreshold))},
	})
	tbl.Render()

	return nil
}
