package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hotswap/internal/config"
	"github.com/roach88/hotswap/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Journal string
	Cycle   string
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show journaled cycles and module states",
		Long: `Show the cycle history and last recorded module states from the journal.

With --cycle, shows the per-task execution records of that cycle instead.

Example:
  hotswap status
  hotswap status --journal /tmp/hotswap.db
  hotswap status --cycle 0190a1b2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (overrides config)")
	cmd.Flags().StringVar(&opts.Cycle, "cycle", "", "show task executions for this cycle ID")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	printer := &Printer{Format: opts.Format, Out: cmd.OutOrStdout()}

	journalPath := cfg.Store.Path
	if opts.Journal != "" {
		journalPath = opts.Journal
	}
	journal, err := store.Open(journalPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer journal.Close()

	ctx := cmd.Context()

	if opts.Cycle != "" {
		execs, err := journal.ListExecutions(ctx, opts.Cycle)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read executions", err)
		}
		return printer.Report(executionReport{Cycle: opts.Cycle, Executions: execs})
	}

	cycles, err := journal.ListCycles(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cycles", err)
	}
	states, err := journal.ModuleStates(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read module states", err)
	}
	return printer.Report(statusReport{Cycles: cycles, Modules: states})
}

type statusReport struct {
	Cycles  []store.CycleRecord `json:"cycles"`
	Modules []store.ModuleState `json:"modules"`
}

func (r statusReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d cycle(s)\n", len(r.Cycles))
	for _, c := range r.Cycles {
		finished := "running"
		if c.FinishedAt != nil {
			finished = c.FinishedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "  %s  started=%s  finished=%s  tasks=%d\n",
			c.ID, c.StartedAt.Format("2006-01-02 15:04:05"), finished, c.Tasks)
	}
	fmt.Fprintf(&b, "%d module(s)", len(r.Modules))
	for _, m := range r.Modules {
		fmt.Fprintf(&b, "\n  %s  %s  %s", m.Module, m.State, m.Version)
	}
	return b.String()
}

type executionReport struct {
	Cycle      string                `json:"cycle"`
	Executions []store.TaskExecution `json:"executions"`
}

func (r executionReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s: %d execution(s)", r.Cycle, len(r.Executions))
	for _, e := range r.Executions {
		fmt.Fprintf(&b, "\n  [%d] %s  %s  %dms", e.Seq, e.Task, e.Outcome, e.ElapsedMS)
		if e.Error != "" {
			fmt.Fprintf(&b, "  (%s)", e.Error)
		}
	}
	return b.String()
}
