package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/zulandar/dialwatch/internal/monitor"
	"github.com/zulandar/dialwatch/internal/scrape"
	"golang.org/x/term"
)

// formatDuration renders seconds as m:ss, or h:mm:ss past an hour.
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatRate renders a rate as a percentage, or "-" when nothing was sampled.
func formatRate(r scrape.Rate) string {
	if !r.Defined() {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", r.Value)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSummaries writes one line of counters per source, in source order.
func printSummaries(out io.Writer, d monitor.Derived) {
	if len(d.Sources) == 0 {
		fmt.Fprintln(out, "No recognized pages.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tMANUAL\tSEGMENTS\tVOICE\tCONNECT\tCALLBACK\tSEATS")
	for _, src := range d.Sources {
		s := d.MonitorSummaries[src]
		seatCount := 0
		for _, row := range d.SeatStatuses[src] {
			seatCount += len(row)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%d\n",
			src, s.ManualCalls, s.SegmentCounts.Total(), s.VoiceCallCount,
			formatRate(s.ConnectRate), formatRate(s.CallbackRate), seatCount)
	}
	w.Flush()
}

// printRecords writes call records as a table.
func printRecords(out io.Writer, records []monitor.CallRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No calls.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSOURCE\tSEAT\tNUMBER\tSTATUS\tDURATION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.CallTime.Format("15:04:05"), r.IntegrationSource, r.Agent,
			r.CalledNumber, r.CallStatus, formatDuration(r.Duration))
	}
	w.Flush()
}

// printDerived writes the summary table followed by the records table.
func printDerived(out io.Writer, d monitor.Derived) {
	printSummaries(out, d)
	fmt.Fprintln(out)
	printRecords(out, d.Records)
}
