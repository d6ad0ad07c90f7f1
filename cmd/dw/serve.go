package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/dialwatch/internal/archive"
	"github.com/zulandar/dialwatch/internal/config"
	"github.com/zulandar/dialwatch/internal/dashboard"
	"github.com/zulandar/dialwatch/internal/push"
	"github.com/zulandar/dialwatch/internal/seats"
	"github.com/zulandar/dialwatch/internal/switchboard"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor and its dashboard",
		Long: `Starts the switchboard: a startup resync, scheduled resyncs, the push
channel when push.url is set, live-duration polling, and the dashboard API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "dashboard port (overrides dashboard.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Dashboard.Port = port
	}

	schedule, err := config.ParseSchedule(cfg.Sync.Schedule)
	if err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}
	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	client := newUpstreamClient(cfg)
	arc := archive.New(gormDB)
	opts := switchboard.Opts{
		Fetcher:   client,
		Params:    listParams(cfg),
		Schedule:  schedule,
		Retention: cfg.Sync.Retention(),
	}
	if cfg.Upstream.DurationURL != "" {
		opts.Durations = client
		opts.Poll = cfg.Sync.DurationPoll()
	}
	if cfg.Sync.ArchiveEnabled() {
		opts.Archive = arc
	}
	if notifier.Enabled() {
		opts.Alerter = notifier
	}
	board, err := switchboard.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		board.Run(ctx)
	}()

	if cfg.Push.URL != "" {
		pc, err := push.New(push.Opts{URL: cfg.Push.URL, Token: cfg.Upstream.Token, Handler: board})
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pc.Run(ctx); err != nil {
				log.Printf("serve: push: %v", err)
			}
		}()
	}

	err = dashboard.Start(ctx, dashboard.StartOpts{
		Board:      board,
		Seats:      seats.New(gormDB, cfg.Seats.Total, cfg.Seats.Names),
		Runs:       arc,
		TotalSeats: cfg.Seats.Total,
		Port:       cfg.Dashboard.Port,
		Out:        cmd.OutOrStdout(),
	})
	stop()
	wg.Wait()
	fmt.Fprintln(cmd.OutOrStdout(), "Shut down.")
	return err
}
