package cli

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/config"
	"github.com/roach88/hotswap/internal/installer"
	"github.com/roach88/hotswap/internal/plan"
	"github.com/roach88/hotswap/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Journal string

	// CycleIDs allows overriding the cycle ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	CycleIDs installer.CycleIDGenerator
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <plan-dir>",
		Short: "Apply an installation plan as one cycle",
		Long: `Apply an installation plan against the module runtime.

The plan directory holds CUE files describing modules to install, update
or uninstall. Tasks are ordered within a single cycle: uninstalls first,
then updates, installs, a package refresh when wiring changed, and finally
the restarts the refresh queued.

Module states recorded by previous cycles are loaded from the journal so
repeated applies see the runtime where the last run left it.

Example:
  hotswap apply ./plan
  hotswap apply --journal /tmp/hotswap.db ./plan --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (overrides config)")

	return cmd
}

func runApply(opts *ApplyOptions, planDir string, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	log := setupLogger(opts.Verbose, cfg.Log.Level)

	printer := &Printer{Format: opts.Format, Out: cmd.OutOrStdout()}

	p, err := plan.Load(planDir)
	if err != nil {
		_ = printer.Fail(planErrorCode(err), "invalid plan", err.Error())
		return WrapExitError(ExitCommandError, "failed to load plan", err)
	}

	journalPath := cfg.Store.Path
	if opts.Journal != "" {
		journalPath = opts.Journal
	}
	journal, err := store.Open(journalPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			log.Error("error closing journal", "error", closeErr)
		}
	}()

	ctx := cmd.Context()

	rt := bundle.NewMemRuntime()
	if err := seedFromJournal(rt, journal, cmd); err != nil {
		return WrapExitError(ExitCommandError, "failed to restore module states", err)
	}

	tasks := plan.Compile(p, installer.WithMaxRefreshWait(cfg.Refresh.MaxWait.Std()))
	cycle := installer.NewCycle(tasks...)

	execOpts := []installer.Option{
		installer.WithLogger(log),
		installer.WithJournal(journal),
		installer.WithMetrics(installer.NewMetrics(prometheus.NewRegistry())),
	}
	if opts.CycleIDs != nil {
		execOpts = append(execOpts, installer.WithCycleIDs(opts.CycleIDs))
	}
	exec := installer.New(rt, execOpts...)

	result, err := exec.RunCycle(ctx, cycle)
	if err != nil {
		return WrapExitError(ExitCommandError, "cycle aborted", err)
	}

	summary := cycleSummary(result)
	if err := printer.Report(summary); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if failed := result.Failed(); len(failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d task(s) failed", len(failed)))
	}
	return nil
}

// seedFromJournal restores the last recorded module states into the runtime.
func seedFromJournal(rt *bundle.MemRuntime, journal *store.Store, cmd *cobra.Command) error {
	states, err := journal.ModuleStates(cmd.Context())
	if err != nil {
		return err
	}
	seeds := make([]bundle.SeedModule, 0, len(states))
	for _, s := range states {
		seeds = append(seeds, bundle.SeedModule{
			ID:      s.Module,
			State:   s.State,
			Version: s.Version,
		})
	}
	rt.Seed(seeds...)
	return nil
}

// applySummary is the JSON payload for a completed cycle.
type applySummary struct {
	CycleID  string        `json:"cycle_id"`
	Tasks    int           `json:"tasks"`
	Failed   int           `json:"failed"`
	Elapsed  string        `json:"elapsed"`
	Failures []taskFailure `json:"failures,omitempty"`
}

type taskFailure struct {
	Seq     int    `json:"seq"`
	SortKey string `json:"sort_key"`
	Error   string `json:"error"`
}

func (s applySummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s: %d task(s), %d failed, %s", s.CycleID, s.Tasks, s.Failed, s.Elapsed)
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\n  [%d] %s: %s", f.Seq, f.SortKey, f.Error)
	}
	return b.String()
}

func cycleSummary(result *installer.CycleResult) applySummary {
	s := applySummary{
		CycleID: result.ID,
		Tasks:   len(result.Results),
		Failed:  len(result.Failed()),
		Elapsed: result.Elapsed.Round(0).String(),
	}
	for _, f := range result.Failed() {
		s.Failures = append(s.Failures, taskFailure{
			Seq:     f.Seq,
			SortKey: f.SortKey,
			Error:   f.Err.Error(),
		})
	}
	return s
}
