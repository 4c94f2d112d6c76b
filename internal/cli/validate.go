package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hotswap/internal/plan"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plan-dir>",
		Short: "Validate a plan directory without applying it",
		Long: `Validate the CUE plan files in a directory against the plan schema.

Checks that every entry has a non-empty module ID, that versions are
present where required and that the plan builds cleanly. Nothing is
executed.

Example:
  hotswap validate ./plan
  hotswap validate ./plan --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, planDir string, cmd *cobra.Command) error {
	printer := &Printer{Format: opts.Format, Out: cmd.OutOrStdout()}

	p, err := plan.Load(planDir)
	if err != nil {
		_ = printer.Fail(planErrorCode(err), "invalid plan", err.Error())
		return WrapExitError(ExitFailure, "plan validation failed", err)
	}

	summary := validateSummary{
		Plan:      planDir,
		Install:   len(p.Install),
		Update:    len(p.Update),
		Uninstall: len(p.Uninstall),
		Refresh:   p.NeedsRefresh(),
	}
	if err := printer.Report(summary); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}

type validateSummary struct {
	Plan      string `json:"plan"`
	Install   int    `json:"install"`
	Update    int    `json:"update"`
	Uninstall int    `json:"uninstall"`
	Refresh   bool   `json:"refresh"`
}

func (s validateSummary) String() string {
	return fmt.Sprintf("plan %s: valid (%d install, %d update, %d uninstall, refresh=%t)",
		s.Plan, s.Install, s.Update, s.Uninstall, s.Refresh)
}
