package scrape

import (
	"regexp"

	"golang.org/x/net/html/atom"
)

// campaignRateColumn is the index of the cell holding the per-campaign
// connect and callback rates.
const campaignRateColumn = 6

var (
	cellConnectRe  = regexp.MustCompile(`接通\s*[：:]\s*([\d.]+)`)
	cellCallbackRe = regexp.MustCompile(`回撥\s*[：:]\s*([\d.]+)`)

	textConnectRe  = regexp.MustCompile(`接通\s*[:：]\s*([\d.]+)\s*%`)
	textCallbackRe = regexp.MustCompile(`回撥\s*[:：]\s*([\d.]+)\s*%`)
)

// ParseCampaignControllerTable reads the rate column of a campaign-controller
// table. It never yields call rows; only the two rates of the summary are set.
func ParseCampaignControllerTable(raw string) CallTable {
	table := findFirst(parseDocument(raw), atom.Table)
	if table == nil {
		return CallTable{Calls: []CallRow{}}
	}

	var connect, callback []float64
	for _, tr := range findAll(table, atom.Tr) {
		cells := cellTexts(tr)
		if len(cells) <= campaignRateColumn {
			continue
		}
		text := cells[campaignRateColumn]
		connect = append(connect, collectFloats(text, cellConnectRe)...)
		callback = append(callback, collectFloats(text, cellCallbackRe)...)
	}

	return CallTable{
		Calls: []CallRow{},
		Summary: Summary{
			ConnectRate:  RateOf(connect),
			CallbackRate: RateOf(callback),
		},
	}
}

// ExtractCampaignRates scans the visible text of a whole page for
// "接通：X%" and "回撥：X%" labels and averages every match.
func ExtractCampaignRates(raw string) (connect, callback Rate) {
	text := VisibleText(raw)
	if text == "" {
		return Rate{}, Rate{}
	}
	return RateOf(collectFloats(text, textConnectRe)), RateOf(collectFloats(text, textCallbackRe))
}

func collectFloats(text string, re *regexp.Regexp) []float64 {
	var out []float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v, ok := leadingFloat(m[1]); ok {
			out = append(out, v)
		}
	}
	return out
}
