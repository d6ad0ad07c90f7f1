package scrape

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// wsRe also covers no-break and ideographic spaces, which the legacy pages
// use as cell padding.
var wsRe = regexp.MustCompile(`[\s\x{00a0}\x{3000}]+`)

// CleanText collapses whitespace and entity padding into single spaces and
// trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// ExtractNumber returns the integer captured by the first group of re, or 0.
func ExtractNumber(text string, re *regexp.Regexp) int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	n, _ := leadingInt(m[1])
	return n
}

// leadingInt parses the leading decimal digits of s, ignoring anything after.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

var leadingFloatRe = regexp.MustCompile(`^\d*\.?\d*`)

// leadingFloat parses the longest numeric prefix of s ("1.2.3" reads as 1.2).
func leadingFloat(s string) (float64, bool) {
	prefix := leadingFloatRe.FindString(strings.TrimSpace(s))
	if prefix == "" || prefix == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(prefix, "."), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// HashString is the 32-bit rolling string hash (h = h*31 + c over UTF-16
// code units), returned as a non-negative value.
func HashString(s string) int64 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

var (
	hourRe   = regexp.MustCompile(`(?i)(\d+)\s*(小時|小时|h)`)
	minuteRe = regexp.MustCompile(`(?i)(\d+)\s*(分鐘|分钟|分|m)`)
	secondRe = regexp.MustCompile(`(?i)(\d+)\s*(秒|s)`)
)

// ParseDurationToSeconds converts "HH:MM:SS", "MM:SS" or free text such as
// "1小時30分15秒" into seconds. Unparseable input yields 0.
func ParseDurationToSeconds(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	if strings.Contains(trimmed, ":") {
		parts := strings.Split(trimmed, ":")
		nums := make([]int, len(parts))
		for i, p := range parts {
			nums[i], _ = leadingInt(p)
		}
		switch len(nums) {
		case 3:
			return nums[0]*3600 + nums[1]*60 + nums[2]
		case 2:
			return nums[0]*60 + nums[1]
		}
	}

	total := 0
	if m := hourRe.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n * 3600
	}
	if m := minuteRe.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n * 60
	}
	if m := secondRe.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n
	}
	return total
}

var localDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var zonedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// ParseMonitorDate parses a start-time cell. Slashes are treated as dashes
// and wall-clock forms are read in local time. Empty or invalid input
// returns now.
func ParseMonitorDate(text string, now time.Time) time.Time {
	normalized := strings.TrimSpace(strings.ReplaceAll(text, "/", "-"))
	if normalized == "" {
		return now
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, normalized, time.Local); err == nil {
			return t
		}
	}
	for _, layout := range zonedDateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t
		}
	}
	return now
}

var nonDigitRe = regexp.MustCompile(`\D`)

func digitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// NormalizeCalledNumber strips formatting and leading zeros from a dialed
// number. The result is never empty: a value without digits becomes "-".
func NormalizeCalledNumber(value string) string {
	digits := digitsOnly(value)
	if trimmed := strings.TrimLeft(digits, "0"); trimmed != "" {
		return trimmed
	}
	if digits != "" {
		return digits
	}
	return "-"
}

// DeriveSeatFromCallback infers the agent seat from the last two digits of a
// callback number.
func DeriveSeatFromCallback(callback string) (int, bool) {
	digits := digitsOnly(callback)
	if digits == "" {
		return 0, false
	}
	if len(digits) > 2 {
		digits = digits[len(digits)-2:]
	}
	seat, err := strconv.Atoi(digits)
	if err != nil || seat <= 0 {
		return 0, false
	}
	return seat, true
}

// DetermineCallStatusDisplay maps a raw status cell to the label shown in
// the call table.
func DetermineCallStatusDisplay(raw string) string {
	switch {
	case strings.Contains(raw, "座席"):
		return "通話中"
	case strings.Contains(raw, "振鈴"):
		return raw
	case raw == "":
		return "聯調通話"
	default:
		return raw
	}
}

// MaxAgentNumber is the highest seat number a status label may name.
const MaxAgentNumber = 200

var (
	seatInStatusRe   = regexp.MustCompile(`座席\s*(\d+)`)
	numberInStatusRe = regexp.MustCompile(`(\d+)`)
)

// ExtractAgentNumberFromStatus pulls a seat number out of a status label
// ("座席 7" → 7), falling back when none is present or the number is not a
// seat in 1..MaxAgentNumber (a phone number in a ringing label, say).
func ExtractAgentNumberFromStatus(status string, fallback int) int {
	if status == "" {
		return fallback
	}
	for _, re := range []*regexp.Regexp{seatInStatusRe, numberInStatusRe} {
		if m := re.FindStringSubmatch(status); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= MaxAgentNumber {
				return n
			}
			return fallback
		}
	}
	return fallback
}

// CalculateAverage returns the arithmetic mean, or false for no values.
func CalculateAverage(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// FormatPercentage renders 75 as "75%" and 77.75 as "77.8%".
func FormatPercentage(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d%%", int64(v))
	}
	return fmt.Sprintf("%.1f%%", v)
}

// FormatCallDuration renders seconds as "1小時2分3秒", omitting leading zero units.
func FormatCallDuration(seconds int) string {
	if seconds <= 0 {
		return "0秒"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%d小時", hours)
	}
	if hours > 0 || minutes > 0 {
		fmt.Fprintf(&b, "%d分", minutes)
	}
	fmt.Fprintf(&b, "%d秒", secs)
	return b.String()
}
