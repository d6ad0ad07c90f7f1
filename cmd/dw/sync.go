package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dialwatch/internal/config"
	"github.com/zulandar/dialwatch/internal/monitor"
)

func newSyncCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
		interval   time.Duration
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the working set once and print the derived view",
		Long: `Fetches the current working set from the upstream API, runs the page
pipeline, and prints per-source counters and call records. Use --watch to
refresh on an interval; ended calls stay listed until they age out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, configPath, watch, interval, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	cmd.Flags().BoolVar(&watch, "watch", false, "refresh continuously")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "refresh interval with --watch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the derived view as JSON")
	return cmd
}

func runSync(cmd *cobra.Command, configPath string, watch bool, interval time.Duration, asJSON bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client := newUpstreamClient(cfg)
	params := listParams(cfg)
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !watch {
		pages, err := client.FetchWorkingSet(ctx, params)
		if err != nil {
			return err
		}
		d := monitor.Build(pages, time.Now())
		if asJSON {
			return writeJSON(out, d)
		}
		printDerived(out, d)
		return nil
	}

	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}
	reconciler := monitor.NewReconciler(monitor.NewDisplayStore())
	clearScreen := isTerminal(out)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		now := time.Now()
		pages, err := client.FetchWorkingSet(ctx, params)
		if clearScreen {
			fmt.Fprint(out, "\033[2J\033[H")
		}
		if err != nil {
			fmt.Fprintf(out, "%s  sync failed: %v\n", now.Format("15:04:05"), err)
		} else {
			d := monitor.Build(pages, now)
			records, _ := reconciler.Apply(d)
			reconciler.Prune(now.Add(-cfg.Sync.Retention()))
			fmt.Fprintf(out, "%s  %d pages, %d sources\n\n", now.Format("15:04:05"), len(pages), len(d.Sources))
			printSummaries(out, d)
			fmt.Fprintln(out)
			printRecords(out, records)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
