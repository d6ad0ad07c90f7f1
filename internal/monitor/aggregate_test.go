package monitor

import (
	"math"
	"testing"
	"time"
)

func TestExtractSourceLabel(t *testing.T) {
	tests := []struct {
		name  string
		page  CapturedPage
		index int
		want  string
	}{
		{"host", CapturedPage{URL: "http://Example.com/get_curcall_in.php?a=1"}, 0, "example.com"},
		{"explicit port", CapturedPage{URL: "http://10.0.0.5:8080/x"}, 0, "10.0.0.5:8080"},
		{"default port omitted", CapturedPage{URL: "https://pbx.local:443/x"}, 0, "pbx.local"},
		{"call-record scheme", CapturedPage{URL: "call-record://get_curcall_in/42"}, 0, "get_curcall_in"},
		{"malformed url", CapturedPage{URL: "http://bad host.local/x"}, 0, "bad host.local"},
		{"domain fallback", CapturedPage{URL: "not a url", Domain: "dialer-b"}, 3, "dialer-b"},
		{"synthesized", CapturedPage{}, 5, "聯調來源6"},
		{"relative url synthesized", CapturedPage{URL: "/get_curcall_in.php?a"}, 0, "聯調來源1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSourceLabel(tt.page, tt.index)
			if got != tt.want {
				t.Errorf("ExtractSourceLabel = %q, want %q", got, tt.want)
			}
			if again := ExtractSourceLabel(tt.page, tt.index); again != got {
				t.Errorf("ExtractSourceLabel not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestAggregate_SameHostMerges(t *testing.T) {
	pages := []CapturedPage{
		callListPage("1", "example.com", 30, [6]string{"1", "0911111111", "0900000001", "通話中", "2024-05-01 10:00:00", "00:01:00"}),
		callListPage("2", "example.com", 20, [6]string{"1", "0922222222", "0900000002", "通話中", "2024-05-01 10:05:00", "00:02:00"}),
	}
	got := Aggregate(pages)

	if len(got) != 1 {
		t.Fatalf("len(Aggregate) = %d, want 1", len(got))
	}
	if got[0].Source != "example.com" {
		t.Errorf("Source = %q, want example.com", got[0].Source)
	}
	if len(got[0].Calls) != 2 {
		t.Errorf("len(Calls) = %d, want 2", len(got[0].Calls))
	}
	if got[0].Summary.ManualCalls != 50 {
		t.Errorf("ManualCalls = %d, want 50", got[0].Summary.ManualCalls)
	}
	if got[0].Summary.SegmentCounts.Segment1 != 2 {
		t.Errorf("Segment1 = %d, want 2", got[0].Summary.SegmentCounts.Segment1)
	}
}

func TestAggregate_SkipsUnusablePages(t *testing.T) {
	pages := []CapturedPage{
		{URL: "http://example.com/other.php?a", Content: callListHTML(5)},
		{URL: "http://example.com/get_curcall_in.php?a"},
		{URL: "http://example.com/get_curcall_in.php?b", Content: "<p>no table, no seats</p>"},
	}
	if got := Aggregate(pages); len(got) != 0 {
		t.Errorf("Aggregate = %+v, want nothing", got)
	}
}

func TestAggregate_FirstSeenOrderAndSeats(t *testing.T) {
	early := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	a1 := callListPage("a1", "a.local", 1)
	a1.CapturedAt = late
	b := peerStatusPage("b", "b.local", map[int]string{1: "green"})
	a2 := peerStatusPage("a2", "a.local", map[int]string{3: "blue", 1: "red"})
	a2.CreatedAt = early
	a3 := peerStatusPage("a3", "a.local", map[int]string{7: "purple"})

	got := Aggregate([]CapturedPage{a1, b, a2, a3})
	if len(got) != 2 || got[0].Source != "a.local" || got[1].Source != "b.local" {
		t.Fatalf("sources = %+v, want a.local then b.local", got)
	}

	a := got[0]
	if !a.CapturedAt.Equal(early) {
		t.Errorf("CapturedAt = %v, want earliest %v", a.CapturedAt, early)
	}
	if len(a.SeatStatuses) != 1 || len(a.SeatStatuses[0]) != 1 || a.SeatStatuses[0][0].SeatNumber != 7 {
		t.Errorf("SeatStatuses = %+v, want only the last grid (seat 7)", a.SeatStatuses)
	}
}

func TestAggregate_RateScanOverridesTable(t *testing.T) {
	html := `<table><tr><td>1</td><td></td><td></td><td></td><td></td><td></td><td>接通：10 回撥：20</td></tr></table>
<div>總計 接通：50%</div>`
	page := CapturedPage{URL: "http://camp.local/cont_controler.php?c=1", Content: html}

	got := Aggregate([]CapturedPage{page})
	if len(got) != 1 {
		t.Fatalf("len(Aggregate) = %d, want 1", len(got))
	}
	s := got[0].Summary
	if s.ConnectRate.Samples != 1 || math.Abs(s.ConnectRate.Value-50) > 1e-9 {
		t.Errorf("ConnectRate = %+v, want text-scan {50 1}", s.ConnectRate)
	}
	if s.CallbackRate.Samples != 1 || math.Abs(s.CallbackRate.Value-20) > 1e-9 {
		t.Errorf("CallbackRate = %+v, want table {20 1}", s.CallbackRate)
	}
	if len(got[0].Calls) != 0 {
		t.Errorf("campaign page produced %d calls", len(got[0].Calls))
	}
}

func TestAggregate_HTMLContentFallback(t *testing.T) {
	page := CapturedPage{
		URL:         "http://example.com/get_curcall_in.php?a",
		HTMLContent: callListHTML(4, [6]string{"1", "0912", "", "", "", ""}),
	}
	got := Aggregate([]CapturedPage{page})
	if len(got) != 1 || got[0].Summary.ManualCalls != 4 || len(got[0].Calls) != 1 {
		t.Errorf("Aggregate = %+v", got)
	}
}

func TestAggregate_EndedPageMarksCalls(t *testing.T) {
	live := callListPage("1", "example.com", 1, [6]string{"1", "0911111111", "0900000003", "座席 3", "2024-05-01 10:00:00", "00:01:00"})
	done := callListPage("2", "example.com", 1, [6]string{"1", "0922222222", "0900000004", "座席 4", "2024-05-01 10:05:00", "00:02:00"})
	done.Metadata.Status = "hangup"

	got := Aggregate([]CapturedPage{live, done})
	if len(got) != 1 || len(got[0].Calls) != 2 {
		t.Fatalf("Aggregate = %+v, want one source with 2 calls", got)
	}
	if got[0].Calls[0].Ended {
		t.Error("call of the live page marked ended")
	}
	if !got[0].Calls[1].Ended {
		t.Error("call of the hung-up page not marked ended")
	}

	records := Synthesize(got, testNow)
	for _, r := range records {
		switch r.CalledNumber {
		case "911111111":
			if r.CallStatus == StatusEnded {
				t.Errorf("911111111 = %q, want live status", r.CallStatus)
			}
		case "922222222":
			if r.CallStatus != StatusEnded || r.Note != StatusEnded || r.Agent != 4 {
				t.Errorf("922222222 = %+v, want ended on seat 4", r)
			}
		}
	}
}

func TestPageEnded(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"ended", true},
		{"Hangup", true},
		{" completed ", true},
		{"通話結束", true},
		{"ringing", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := PageEnded(tt.status); got != tt.want {
			t.Errorf("PageEnded(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
