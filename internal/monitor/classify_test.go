package monitor

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		page CapturedPage
		want Classification
		kind Kind
	}{
		{
			name: "call list by tag",
			page: CapturedPage{RecordType: "get_curcall_in"},
			want: Classification{CallList: true},
			kind: CallListPage,
		},
		{
			name: "peer status by url",
			page: CapturedPage{URL: "http://pbx.local/admin/GET_PEER_STATUS.php?x=1"},
			want: Classification{PeerStatus: true},
			kind: PeerStatusPage,
		},
		{
			name: "campaign controller by url",
			page: CapturedPage{URL: "http://pbx.local/cont_controler.php?camp=2"},
			want: Classification{CampaignController: true},
			kind: CampaignControllerPage,
		},
		{
			name: "url without query is not a match",
			page: CapturedPage{URL: "http://pbx.local/get_curcall_in.php"},
			kind: Unrecognized,
		},
		{
			name: "tag must match exactly",
			page: CapturedPage{RecordType: "GET_CURCALL_IN"},
			kind: Unrecognized,
		},
		{
			name: "tag and url disagree",
			page: CapturedPage{RecordType: "get_peer_status", URL: "http://pbx.local/get_curcall_in.php?a"},
			want: Classification{CallList: true, PeerStatus: true},
			kind: CallListPage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.page)
			if got != tt.want {
				t.Errorf("Classify = %+v, want %+v", got, tt.want)
			}
			if got.Kind() != tt.kind {
				t.Errorf("Kind = %v, want %v", got.Kind(), tt.kind)
			}
			if got.Recognized() != (tt.kind != Unrecognized) {
				t.Errorf("Recognized = %v", got.Recognized())
			}
		})
	}
}
