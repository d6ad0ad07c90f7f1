package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/dialwatch/internal/monitor"
)

// FlexString decodes a JSON string or number into a string. Upstream ids
// arrive as either.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("upstream: id is neither string nor number: %s", b)
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt decodes a JSON number or numeric string. Anything else reads as 0.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*f = FlexInt(x)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(x))
		*f = FlexInt(n)
	default:
		*f = 0
	}
	return nil
}

// FlexTime decodes RFC 3339 strings, "2006-01-02 15:04:05" wall-clock
// strings, or epoch numbers (milliseconds when large, else seconds).
// Unparseable values read as the zero time.
type FlexTime struct{ time.Time }

var wallClockLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.Time = time.Time{}
	switch x := v.(type) {
	case float64:
		f.Time = epochTime(x)
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range wallClockLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				f.Time = t
				return nil
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			f.Time = epochTime(n)
		}
	}
	return nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Time)
}

func epochTime(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if v >= 1e12 {
		return time.UnixMilli(int64(v))
	}
	return time.Unix(int64(v), 0)
}

// firstTime returns the first non-zero time.
func firstTime(ts ...FlexTime) FlexTime {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return FlexTime{}
}

// ParsedData is the pre-parsed section of an entry.
type ParsedData struct {
	RawHTML string `json:"rawHtml,omitempty"`
}

// EntryMetadata holds request facts recorded with an entry.
type EntryMetadata struct {
	RequestMethod string `json:"requestMethod,omitempty"`
}

// Entry is one call-record capture as served by the upstream API.
type Entry struct {
	ID             FlexString     `json:"id"`
	RecordType     string         `json:"recordType,omitempty"`
	URL            string         `json:"url,omitempty"`
	Title          string         `json:"title,omitempty"`
	ResponseBody   string         `json:"responseBody,omitempty"`
	Content        string         `json:"content,omitempty"`
	HTMLContent    string         `json:"htmlContent,omitempty"`
	ParsedData     *ParsedData    `json:"parsedData,omitempty"`
	StatusCode     FlexInt        `json:"statusCode,omitempty"`
	Metadata       *EntryMetadata `json:"metadata,omitempty"`
	CreatedAt      FlexTime       `json:"createdAt"`
	UpdatedAt      FlexTime       `json:"updatedAt"`
	LastUpdateTime FlexTime       `json:"lastUpdateTime"`
}

// Body returns the first non-empty of responseBody, content, htmlContent
// and parsedData.rawHtml.
func (e Entry) Body() string {
	for _, s := range []string{e.ResponseBody, e.Content, e.HTMLContent} {
		if s != "" {
			return s
		}
	}
	if e.ParsedData != nil {
		return e.ParsedData.RawHTML
	}
	return ""
}

// IsDelta reports whether the entry only references a record by id, with no
// body, URL or type of its own.
func (e Entry) IsDelta() bool {
	return e.Body() == "" && e.URL == "" && e.RecordType == ""
}

// ToPage converts the entry into a captured page.
func (e Entry) ToPage() monitor.CapturedPage {
	url := e.URL
	if url == "" {
		recordType := e.RecordType
		if recordType == "" {
			recordType = "unknown"
		}
		url = fmt.Sprintf("call-record://%s/%s", recordType, e.ID)
	}

	p := monitor.CapturedPage{
		ID:         string(e.ID),
		URL:        url,
		RecordType: e.RecordType,
		Title:      e.Title,
		Metadata: monitor.PageMetadata{
			Description: e.RecordType,
			StatusCode:  int(e.StatusCode),
		},
		CreatedAt:  e.CreatedAt.Time,
		UpdatedAt:  e.UpdatedAt.Time,
		CapturedAt: firstTime(e.LastUpdateTime, e.UpdatedAt, e.CreatedAt).Time,
	}
	if e.Metadata != nil {
		p.Metadata.RequestMethod = e.Metadata.RequestMethod
	}
	if body := e.Body(); body != "" {
		p.Content = body
		p.HTMLContent = body
	}
	return p
}

// payload is the loose shape of a pushed record: every alias the producers
// have used for the id, type and timestamps.
type payload struct {
	ID             FlexString     `json:"id"`
	RecordID       FlexString     `json:"recordId"`
	MongoID        FlexString     `json:"_id"`
	RecordType     string         `json:"recordType"`
	Type           string         `json:"type"`
	URL            string         `json:"url"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	HTMLContent    string         `json:"htmlContent"`
	ResponseBody   string         `json:"responseBody"`
	ParsedData     *ParsedData    `json:"parsedData"`
	StatusCode     FlexInt        `json:"statusCode"`
	Metadata       *EntryMetadata `json:"metadata"`
	CreatedAt      FlexTime       `json:"createdAt"`
	UpdatedAt      FlexTime       `json:"updatedAt"`
	LastUpdateTime FlexTime       `json:"lastUpdateTime"`
	Timestamp      FlexTime       `json:"timestamp"`
}

// NormalizePayload turns a pushed record into an Entry. It reports false for
// anything that is not an object or carries no id.
func NormalizePayload(raw []byte) (Entry, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Entry{}, false
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Entry{}, false
	}

	id := p.ID
	for _, alt := range []FlexString{p.RecordID, p.MongoID} {
		if id == "" {
			id = alt
		}
	}
	if id == "" {
		return Entry{}, false
	}
	recordType := p.RecordType
	if recordType == "" {
		recordType = p.Type
	}

	return Entry{
		ID:             id,
		RecordType:     recordType,
		URL:            p.URL,
		Title:          p.Title,
		ResponseBody:   p.ResponseBody,
		Content:        p.Content,
		HTMLContent:    p.HTMLContent,
		ParsedData:     p.ParsedData,
		StatusCode:     p.StatusCode,
		Metadata:       p.Metadata,
		CreatedAt:      firstTime(p.CreatedAt, p.Timestamp),
		UpdatedAt:      firstTime(p.UpdatedAt, p.Timestamp),
		LastUpdateTime: firstTime(p.LastUpdateTime, p.Timestamp),
	}, true
}
