package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dialwatch/internal/archive"
	"github.com/zulandar/dialwatch/internal/config"
	"github.com/zulandar/dialwatch/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBPruneCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the archive tables",
		Long:  "Connects to the configured sqlite or MySQL database and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables (%s)\n", len(db.AllModels()), cfg.Database.Driver)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	return cmd
}

func newDBPruneCmd() *cobra.Command {
	var (
		configPath string
		olderThan  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived pages older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			n, err := archive.New(gormDB).PruneBefore(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d archived pages\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age of the oldest page to keep")
	return cmd
}
