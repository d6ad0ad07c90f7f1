package monitor

import (
	"fmt"
	"strings"
	"time"
)

// callListHTML renders a call-detail table with the given manual-call count
// and rows of {sequence, called, callback, status, start, duration}.
func callListHTML(manual int, rows ...[6]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<table><thead><tr><th colspan="6">人工通話：%d 一段：1</th></tr>`, manual)
	sb.WriteString(`<tr><th>序號</th><th>被叫</th><th>回撥</th><th>呼叫狀態</th><th>開始時間</th><th>通话时长</th></tr></thead><tbody>`)
	for _, r := range rows {
		sb.WriteString("<tr>")
		for _, c := range r {
			fmt.Fprintf(&sb, "<td>%s</td>", c)
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}

func callListPage(id, host string, manual int, rows ...[6]string) CapturedPage {
	return CapturedPage{
		ID:      id,
		URL:     "http://" + host + "/get_curcall_in.php?id=" + id,
		Content: callListHTML(manual, rows...),
	}
}

func peerStatusPage(id, host string, seats map[int]string) CapturedPage {
	var sb strings.Builder
	sb.WriteString("綠色-待機 紅色-離線<br>")
	for n := 1; n <= 40; n++ {
		if color, ok := seats[n]; ok {
			fmt.Fprintf(&sb, `<font color="%s">%d</font>`, color, n)
		}
	}
	return CapturedPage{
		ID:         id,
		URL:        "http://" + host + "/get_peer_status.php?id=" + id,
		RecordType: RecordTypePeerStatus,
		Content:    sb.String(),
	}
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
