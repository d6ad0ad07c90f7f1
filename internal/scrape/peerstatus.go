package scrape

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const peerLegend = "綠色-待機"

var (
	peerMarkerRe = regexp.MustCompile(`(?i)綠色-待機|紅色-離線|get_peer_status|get_curcall_in`)
	closingBrRe  = regexp.MustCompile(`(?i)</br\s*>`)
	brRe         = regexp.MustCompile(`(?i)<br\s*/?>`)
	doubleBrRe   = regexp.MustCompile(`<br/>\s*<br/>`)
	peerFontRe   = regexp.MustCompile(`(?i)<font[^>]*color=['"]?(green|red|purple|blue|grey)['"]?[^>]*>\s*([0-9]{1,3})\s*</font>`)
)

// ParsePeerStatusHTML extracts the seat grid of a peer-status page, sorted by
// seat number and chunked into rows of SeatsPerRow. It returns nil when the
// page carries no status markers or no seat tokens.
//
// Only the block before the first blank line (double <br>) is scanned, and
// within it only the first line that holds seat tokens; later lines repeat
// the grid in a footer.
func ParsePeerStatusHTML(raw string) [][]PeerSeatStatus {
	if raw == "" || !peerMarkerRe.MatchString(raw) {
		return nil
	}

	normalized := brRe.ReplaceAllString(closingBrRe.ReplaceAllString(raw, "<br/>"), "<br/>")
	section := doubleBrRe.Split(normalized, 2)[0]
	if strings.TrimSpace(section) == "" {
		section = normalized
	}

	var seats []PeerSeatStatus
	for _, segment := range strings.Split(section, "<br/>") {
		segment = strings.TrimSpace(segment)
		if segment == "" || strings.Contains(segment, peerLegend) {
			continue
		}
		seats = appendSeatTokens(seats, segment)
		if len(seats) > 0 {
			break
		}
	}
	if len(seats) == 0 {
		return nil
	}

	sort.SliceStable(seats, func(i, j int) bool { return seats[i].SeatNumber < seats[j].SeatNumber })
	return ChunkSeats(seats, SeatsPerRow)
}

func appendSeatTokens(seats []PeerSeatStatus, segment string) []PeerSeatStatus {
	for _, m := range peerFontRe.FindAllStringSubmatch(segment, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil || n <= 0 {
			continue
		}
		seats = append(seats, PeerSeatStatus{SeatNumber: n, Status: MapPeerColorToStatus(m[1])})
	}
	return seats
}
