package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/textfang/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <job.json>",
		Short: "Validate a job file against the job schema",
		Long: `Validate a JSON job file against the canonical job schema.

Examples:
  textfang validate job.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			return runValidate(cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(w io.Writer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}

	validateErr := config.ValidateJob(raw)
	if validateErr == nil {
		color.New(color.FgGreen).Fprintf(w, "job file is valid (%s)\n", path)

		return nil
	}

	if !errors.Is(validateErr, config.ErrJobInvalid) {
		return validateErr
	}

	color.New(color.FgRed).Fprintf(w, "job file validation failed (%s)\n", path)
	fmt.Fprintf(w, "%v\n", validateErr)

	return fmt.Errorf("job file is invalid")
}
