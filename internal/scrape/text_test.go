package scrape

import (
	"regexp"
	"testing"
	"time"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  a   b  ", "a b"},
		{"a&nbsp;&nbsp;b", "a b"},
		{"\t座席\n 01 ", "座席 01"},
		{"a \u3000b", "a b"},
		{"09\u200b12", "0912"},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractNumber(t *testing.T) {
	re := regexp.MustCompile(`人工通話：\s*(\d+)`)
	if got := ExtractNumber("人工通話： 42 一段：1", re); got != 42 {
		t.Errorf("ExtractNumber = %d, want 42", got)
	}
	if got := ExtractNumber("nothing here", re); got != 0 {
		t.Errorf("ExtractNumber(missing) = %d, want 0", got)
	}
}

func TestParseDurationToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"01:30:45", 5445},
		{"05:30", 330},
		{"00:05:30", 330},
		{"5分", 300},
		{"5分鐘", 300},
		{"1小時30分15秒", 5415},
		{"45秒", 45},
		{"2h5m", 7500},
		{"", 0},
		{"   ", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDurationToSeconds(tt.in); got != tt.want {
				t.Errorf("ParseDurationToSeconds(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMonitorDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	got := ParseMonitorDate("2024/01/02 10:11:12", now)
	want := time.Date(2024, 1, 2, 10, 11, 12, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("slash form = %v, want %v", got, want)
	}

	got = ParseMonitorDate("2024-01-02 10:11", now)
	want = time.Date(2024, 1, 2, 10, 11, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("minute form = %v, want %v", got, want)
	}

	got = ParseMonitorDate("2024-01-02T10:11:12Z", now)
	want = time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("RFC3339 = %v, want %v", got, want)
	}

	for _, in := range []string{"", "not a date", "99:99"} {
		if got := ParseMonitorDate(in, now); !got.Equal(now) {
			t.Errorf("ParseMonitorDate(%q) = %v, want now", in, got)
		}
	}
}

func TestHashString(t *testing.T) {
	if got := HashString(""); got != 0 {
		t.Errorf("HashString(\"\") = %d, want 0", got)
	}
	if got := HashString("abc"); got != 96354 {
		t.Errorf("HashString(abc) = %d, want 96354", got)
	}
	if HashString("<table>1</table>") != HashString("<table>1</table>") {
		t.Error("HashString is not deterministic")
	}
	if HashString("a long string that overflows the 32 bit accumulator") < 0 {
		t.Error("HashString returned a negative value")
	}
}

func TestNormalizeCalledNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0912-345-678", "912345678"},
		{"  (02) 2345 6789 ", "223456789"},
		{"000", "000"},
		{"", "-"},
		{"未知", "-"},
	}
	for _, tt := range tests {
		if got := NormalizeCalledNumber(tt.in); got != tt.want {
			t.Errorf("NormalizeCalledNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeriveSeatFromCallback(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"0987654321", 21, true},
		{"8007", 7, true},
		{"5", 5, true},
		{"12300", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		got, ok := DeriveSeatFromCallback(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DeriveSeatFromCallback(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDetermineCallStatusDisplay(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"座席 3 通話", "通話中"},
		{"振鈴", "振鈴"},
		{"外撥振鈴中", "外撥振鈴中"},
		{"", "聯調通話"},
		{"等待", "等待"},
	}
	for _, tt := range tests {
		if got := DetermineCallStatusDisplay(tt.in); got != tt.want {
			t.Errorf("DetermineCallStatusDisplay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractAgentNumberFromStatus(t *testing.T) {
	tests := []struct {
		status   string
		fallback int
		want     int
	}{
		{"座席 7", 1, 7},
		{"座席12通話中", 1, 12},
		{"分機 35", 1, 35},
		{"分機 305", 1, 1},
		{"振鈴 50000", 3, 3},
		{"振鈴 0912345678", 2, 2},
		{"座席 0", 5, 5},
		{"通話中", 4, 4},
		{"", 9, 9},
	}
	for _, tt := range tests {
		if got := ExtractAgentNumberFromStatus(tt.status, tt.fallback); got != tt.want {
			t.Errorf("ExtractAgentNumberFromStatus(%q, %d) = %d, want %d", tt.status, tt.fallback, got, tt.want)
		}
	}
}

func TestCalculateAverage(t *testing.T) {
	if _, ok := CalculateAverage(nil); ok {
		t.Error("CalculateAverage(nil) should be undefined")
	}
	avg, ok := CalculateAverage([]float64{60, 80, 100})
	if !ok || avg != 80 {
		t.Errorf("CalculateAverage = (%v, %v), want (80, true)", avg, ok)
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{75, "75%"},
		{0, "0%"},
		{33.333, "33.3%"},
	}
	for _, tt := range tests {
		if got := FormatPercentage(tt.in); got != tt.want {
			t.Errorf("FormatPercentage(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCallDuration(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0秒"},
		{-3, "0秒"},
		{45, "45秒"},
		{330, "5分30秒"},
		{3723, "1小時2分3秒"},
		{3600, "1小時0分0秒"},
	}
	for _, tt := range tests {
		if got := FormatCallDuration(tt.in); got != tt.want {
			t.Errorf("FormatCallDuration(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
