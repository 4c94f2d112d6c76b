package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/config"
	"github.com/roach88/hotswap/internal/installer"
	"github.com/roach88/hotswap/internal/plan"
	"github.com/roach88/hotswap/internal/store"
	"github.com/roach88/hotswap/internal/web"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr    string
	Journal string
	Plan    string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP status surface",
		Long: `Start the HTTP status server.

Exposes module states, cycle history from the journal and Prometheus
metrics. With --plan, the plan is applied as one cycle before listening,
so the metrics and cycle history reflect it. Runs until interrupted.

Example:
  hotswap serve
  hotswap serve --addr :8372 --journal /tmp/hotswap.db
  hotswap serve --plan ./plan`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (overrides config)")
	cmd.Flags().StringVar(&opts.Plan, "plan", "", "plan directory to apply before serving")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	log := setupLogger(opts.Verbose, cfg.Log.Level)

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

	rt := bundle.NewMemRuntime()
	if err := seedFromJournal(rt, journal, cmd); err != nil {
		return WrapExitError(ExitCommandError, "failed to restore module states", err)
	}

	registry := prometheus.NewRegistry()
	metrics := installer.NewMetrics(registry)

	if opts.Plan != "" {
		p, err := plan.Load(opts.Plan)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load plan", err)
		}
		exec := installer.New(rt,
			installer.WithLogger(log),
			installer.WithJournal(journal),
			installer.WithMetrics(metrics),
		)
		tasks := plan.Compile(p, installer.WithMaxRefreshWait(cfg.Refresh.MaxWait.Std()))
		result, err := exec.RunCycle(cmd.Context(), installer.NewCycle(tasks...))
		if err != nil {
			return WrapExitError(ExitCommandError, "cycle aborted", err)
		}
		log.Info("startup plan applied", "cycle", result.ID,
			"tasks", len(result.Results), "failed", len(result.Failed()))
	}

	router := web.NewRouter(rt, journal, registry)

	addr := cfg.Web.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	srv := web.NewServer(addr, router, log)
	srv.Start()
	log.Info("status server listening", "addr", addr)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown failed", err)
	}
	return nil
}
