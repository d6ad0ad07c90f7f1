package upstream

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Fallback entry used when a list response is raw HTML instead of JSON.
const (
	FallbackID  = "webpage-fallback"
	FallbackURL = "http://integration.local/fallback"
)

// DecodeList extracts entries from a list response. It accepts a bare array
// or an array under data, data.data, result or items. Text that is not JSON
// but contains a table becomes a single fallback entry. Elements that fail
// to decode are skipped.
func DecodeList(body []byte) []Entry {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var root any
	if err := json.Unmarshal(trimmed, &root); err != nil {
		text := string(body)
		if strings.Contains(text, "<table") {
			return []Entry{{
				ID:          FallbackID,
				URL:         FallbackURL,
				Title:       "fallback",
				Content:     text,
				HTMLContent: text,
			}}
		}
		return nil
	}

	items := listItems(trimmed)
	entries := make([]Entry, 0, len(items))
	for _, raw := range items {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// listItems locates the array of raw items inside a list response.
func listItems(body []byte) []json.RawMessage {
	var arr []json.RawMessage
	if json.Unmarshal(body, &arr) == nil {
		return arr
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(body, &obj) != nil {
		return nil
	}
	if data, ok := obj["data"]; ok {
		if json.Unmarshal(data, &arr) == nil {
			return arr
		}
		var inner map[string]json.RawMessage
		if json.Unmarshal(data, &inner) == nil {
			if nested, ok := inner["data"]; ok && json.Unmarshal(nested, &arr) == nil {
				return arr
			}
		}
	}
	for _, key := range []string{"result", "items"} {
		if v, ok := obj[key]; ok && json.Unmarshal(v, &arr) == nil {
			return arr
		}
	}
	return nil
}
