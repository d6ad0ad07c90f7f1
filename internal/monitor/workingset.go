package monitor

import "fmt"

// WorkingSet holds the last known page per physical resource. Keys keep the
// position of their first insertion; a newer observation replaces the page in
// place.
type WorkingSet struct {
	order []string
	pages map[string]CapturedPage
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{pages: make(map[string]CapturedPage)}
}

// Replace discards the current contents and loads pages. Pages with neither
// id nor URL are keyed by their position.
func (w *WorkingSet) Replace(pages []CapturedPage) {
	w.order = w.order[:0]
	w.pages = make(map[string]CapturedPage, len(pages))
	for i, p := range pages {
		key := p.Key()
		if key == "" {
			key = fmt.Sprintf("record-%d", i)
		}
		w.put(key, p)
	}
}

// Upsert inserts or replaces one page. It reports false, leaving the set
// untouched, when the page has neither id nor URL.
func (w *WorkingSet) Upsert(p CapturedPage) bool {
	key := p.Key()
	if key == "" {
		return false
	}
	w.put(key, p)
	return true
}

func (w *WorkingSet) put(key string, p CapturedPage) {
	if _, ok := w.pages[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pages[key] = p
}

// MarkStatus records a status delta on an existing page. It reports false
// when no page has that key.
func (w *WorkingSet) MarkStatus(key, status string) bool {
	p, ok := w.pages[key]
	if !ok {
		return false
	}
	p.Metadata.Status = status
	w.pages[key] = p
	return true
}

// Get returns the page stored under key.
func (w *WorkingSet) Get(key string) (CapturedPage, bool) {
	p, ok := w.pages[key]
	return p, ok
}

// Pages returns the pages in first-insertion order.
func (w *WorkingSet) Pages() []CapturedPage {
	out := make([]CapturedPage, 0, len(w.order))
	for _, key := range w.order {
		out = append(out, w.pages[key])
	}
	return out
}

// Len returns the number of pages held.
func (w *WorkingSet) Len() int { return len(w.order) }
