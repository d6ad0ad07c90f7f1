package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/dialwatch/internal/config"
	"github.com/zulandar/dialwatch/internal/seats"
)

func newSeatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seats",
		Short: "Manage seat display names",
	}

	cmd.AddCommand(newSeatsListCmd())
	cmd.AddCommand(newSeatsSetCmd())
	cmd.AddCommand(newSeatsClearCmd())
	return cmd
}

func openSeats(configPath string) (*seats.Directory, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, err
	}
	return seats.New(gormDB, cfg.Seats.Total, cfg.Seats.Names), nil
}

func newSeatsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List seat names",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openSeats(configPath)
			if err != nil {
				return err
			}
			list, err := dir.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEAT\tNAME\tCUSTOM")
			for _, s := range list {
				custom := ""
				if s.Custom {
					custom = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", s.Number, s.Name, custom)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	return cmd
}

func newSeatsSetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set SEAT NAME...",
		Short: "Set the display name of a seat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseSeatNumber(args[0])
			if err != nil {
				return err
			}
			dir, err := openSeats(configPath)
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			if err := dir.Set(number, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seat %d is now %q\n", number, name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	return cmd
}

func newSeatsClearCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "clear SEAT",
		Short: "Restore the default name of a seat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseSeatNumber(args[0])
			if err != nil {
				return err
			}
			dir, err := openSeats(configPath)
			if err != nil {
				return err
			}
			if err := dir.Clear(number); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seat %d restored to %s\n", number, seats.DefaultName(number))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dialwatch config file")
	return cmd
}

func parseSeatNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > seats.MaxSeatNumber {
		return 0, fmt.Errorf("invalid seat number %q: must be 1-%d", s, seats.MaxSeatNumber)
	}
	return n, nil
}
