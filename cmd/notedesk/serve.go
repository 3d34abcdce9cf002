package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notedesk/internal/calsync"
	appLog "notedesk/internal/log"
	"notedesk/internal/web"
)

const syncRunTimeout = 5 * time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with periodic calendar sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				opts.cfg.Listen = listen
			}
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config).")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := opts.cfg
	appLog.Info("notedesk starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"database", cfg.Database,
	)

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	syncer := opts.newSyncer(st)
	sched, err := calsync.NewScheduler(cfg.RefreshCron, cfg.Location(), syncer, syncRunTimeout)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	go sched.RunOnce()

	srv := web.NewServer(web.Options{
		Config:    cfg,
		Store:     st,
		Syncer:    syncer,
		Completer: opts.newCompleter(),
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	appLog.Info("notedesk exiting", "signal_received", ctx.Err() != nil)
	return nil
}
