package scrape

import (
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	manualCallsRe = regexp.MustCompile(`人工通話：\s*(\d+)`)
	segment1Re    = regexp.MustCompile(`一段：\s*(\d+)`)
	segment2Re    = regexp.MustCompile(`二段：\s*(\d+)`)
	segment3Re    = regexp.MustCompile(`三段：\s*(\d+)`)
	segment4Re    = regexp.MustCompile(`四段：\s*(\d+)`)
	voiceCallsRe  = regexp.MustCompile(`語音通話[:：]?\s*(\d+)`)
)

// emptyCallsMarker is the row text the call-list page shows when idle.
const emptyCallsMarker = "無任何通話記錄"

// detailHeaderLabels identify a call-detail table, as opposed to a pure
// summary table rendered with the same markup.
var detailHeaderLabels = []string{"被叫", "呼叫狀態", "通话时长"}

// ParseCallTable parses the first <table> of a call-list page into its rows
// and header counters.
func ParseCallTable(raw string) CallTable {
	table := findFirst(parseDocument(raw), atom.Table)
	if table == nil {
		return CallTable{Calls: []CallRow{}}
	}

	headers := findAll(table, atom.Th)
	summary := parseHeaderCounters(headerText(table, headers))

	if !isCallDetailTable(headers) {
		return CallTable{Calls: []CallRow{}, Summary: summary}
	}

	calls := []CallRow{}
	for _, tr := range findAll(table, atom.Tr) {
		row, ok := parseCallRow(tr)
		if ok {
			calls = append(calls, row)
		}
	}
	return CallTable{Calls: calls, Summary: summary}
}

// headerText returns the text of the table head, or of its header cells when
// the page omits <thead>.
func headerText(table *nethtml.Node, headers []*nethtml.Node) string {
	if thead := findFirst(table, atom.Thead); thead != nil {
		return textContent(thead)
	}
	parts := make([]string, len(headers))
	for i, th := range headers {
		parts[i] = textContent(th)
	}
	return strings.Join(parts, " ")
}

func parseHeaderCounters(text string) Summary {
	return Summary{
		ManualCalls: ExtractNumber(text, manualCallsRe),
		SegmentCounts: SegmentCounts{
			Segment1: ExtractNumber(text, segment1Re),
			Segment2: ExtractNumber(text, segment2Re),
			Segment3: ExtractNumber(text, segment3Re),
			Segment4: ExtractNumber(text, segment4Re),
		},
		VoiceCallCount: ExtractNumber(text, voiceCallsRe),
	}
}

func isCallDetailTable(headers []*nethtml.Node) bool {
	for _, th := range headers {
		label := CleanText(textContent(th))
		for _, want := range detailHeaderLabels {
			if strings.Contains(label, want) {
				return true
			}
		}
	}
	return false
}

// parseCallRow maps the cells of one data row positionally. Short rows keep
// whatever cells they have; missing trailing cells read as empty.
func parseCallRow(tr *nethtml.Node) (CallRow, bool) {
	cells := cellTexts(tr)
	if len(cells) <= 1 {
		return CallRow{}, false
	}
	rowText := CleanText(textContent(tr))
	if rowText == "" || strings.Contains(rowText, emptyCallsMarker) {
		return CallRow{}, false
	}

	cell := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}

	seq, _ := leadingInt(cell(0))
	callback := cell(2)
	agent, _ := DeriveSeatFromCallback(callback)
	return CallRow{
		Sequence:       seq,
		CalledNumber:   NormalizeCalledNumber(cell(1)),
		CallbackNumber: callback,
		CallStatus:     DetermineCallStatusDisplay(cell(3)),
		StartTime:      cell(4),
		DurationText:   cell(5),
		DerivedAgent:   agent,
	}, true
}
