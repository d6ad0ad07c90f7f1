package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "dw dev") {
		t.Errorf("expected output to contain 'dw dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newVersionCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.Run(cmd, nil)

	expected := "dw 1.0.0 (commit: abc123, built: 2026-01-01)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := runCmd(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"Dialwatch", "serve", "sync", "parse", "replay", "seats", "db", "version"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help output to contain %q, got: %s", want, out)
		}
	}
}

func TestConfigFlagDefaults(t *testing.T) {
	for _, args := range [][]string{
		{"serve", "--help"},
		{"sync", "--help"},
		{"replay", "--help"},
		{"seats", "list", "--help"},
		{"db", "migrate", "--help"},
	} {
		out, err := runCmd(t, args...)
		if err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
		if !strings.Contains(out, "--config") || !strings.Contains(out, "dialwatch.yaml") {
			t.Errorf("%v: expected --config defaulting to dialwatch.yaml, got: %s", args, out)
		}
	}
}

func TestMissingConfig(t *testing.T) {
	for _, args := range [][]string{
		{"sync", "--config", "/nonexistent/dialwatch.yaml"},
		{"replay", "--config", "/nonexistent/dialwatch.yaml"},
		{"seats", "list", "--config", "/nonexistent/dialwatch.yaml"},
		{"db", "migrate", "--config", "/nonexistent/dialwatch.yaml"},
	} {
		_, err := runCmd(t, args...)
		if err == nil {
			t.Errorf("%v: expected error for missing config", args)
			continue
		}
		if !strings.Contains(err.Error(), "load config") {
			t.Errorf("%v: error = %q, want to contain 'load config'", args, err)
		}
	}
}

func TestExecuteError(t *testing.T) {
	cmd := &cobra.Command{
		Use:           "failing",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("intentional error")
		},
	}
	cmd.SetArgs([]string{})
	if code := execute(cmd); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}
