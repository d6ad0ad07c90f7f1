package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dialwatch/internal/archive"
	"github.com/zulandar/dialwatch/internal/config"
	"github.com/zulandar/dialwatch/internal/monitor"
)

func newReplayCmd() *cobra.Command {
	var (
		configPath string
		since      time.Duration
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the view from archived pages",
		Long:  "Loads pages archived within --since and runs the page pipeline over them, as if they were the live working set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, configPath, since, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	cmd.Flags().DurationVar(&since, "since", time.Hour, "how far back to load archived pages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the derived view as JSON")
	return cmd
}

func runReplay(cmd *cobra.Command, configPath string, since time.Duration, asJSON bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	now := time.Now()
	pages, err := archive.New(gormDB).LoadPages(now.Add(-since))
	if err != nil {
		return err
	}

	ws := monitor.NewWorkingSet()
	ws.Replace(pages)
	d := monitor.Build(ws.Pages(), now)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), d)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Replaying %d archived pages\n\n", ws.Len())
	printDerived(cmd.OutOrStdout(), d)
	return nil
}
