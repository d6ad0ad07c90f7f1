package monitor

import "regexp"

// Record-type tags assigned by the upstream capture store.
const (
	RecordTypeCallList           = "get_curcall_in"
	RecordTypePeerStatus         = "get_peer_status"
	RecordTypeCampaignController = "cont_controler"
)

var (
	callListURLRe           = regexp.MustCompile(`(?i)get_curcall_in\.php\?`)
	peerStatusURLRe         = regexp.MustCompile(`(?i)get_peer_status\.php\?`)
	campaignControllerURLRe = regexp.MustCompile(`(?i)cont_controler\.php\?`)
)

// Kind is the legacy page template a capture was taken from.
type Kind int

const (
	Unrecognized Kind = iota
	CallListPage
	PeerStatusPage
	CampaignControllerPage
)

func (k Kind) String() string {
	switch k {
	case CallListPage:
		return "call-list"
	case PeerStatusPage:
		return "peer-status"
	case CampaignControllerPage:
		return "campaign-controller"
	default:
		return "unrecognized"
	}
}

// Classification records which templates a page matches. A page may match
// more than one when its tag and URL disagree.
type Classification struct {
	CallList           bool `json:"callList"`
	PeerStatus         bool `json:"peerStatus"`
	CampaignController bool `json:"campaignController"`
}

// Classify matches the page's record-type tag exactly, or its URL against
// the three legacy endpoints.
func Classify(p CapturedPage) Classification {
	return Classification{
		CallList:           p.RecordType == RecordTypeCallList || callListURLRe.MatchString(p.URL),
		PeerStatus:         p.RecordType == RecordTypePeerStatus || peerStatusURLRe.MatchString(p.URL),
		CampaignController: p.RecordType == RecordTypeCampaignController || campaignControllerURLRe.MatchString(p.URL),
	}
}

// Recognized reports whether any template matched.
func (c Classification) Recognized() bool {
	return c.CallList || c.PeerStatus || c.CampaignController
}

// Kind resolves the classification to a single variant. The call list wins
// over the campaign controller, which wins over peer status, matching the
// order the table parsers are tried in.
func (c Classification) Kind() Kind {
	switch {
	case c.CallList:
		return CallListPage
	case c.CampaignController:
		return CampaignControllerPage
	case c.PeerStatus:
		return PeerStatusPage
	default:
		return Unrecognized
	}
}
