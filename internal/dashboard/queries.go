package dashboard

import "time"

// SyncRunRow holds one resync run for display.
type SyncRunRow struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	ElapsedMS  int64      `json:"elapsedMs"`
	Pages      int        `json:"pages"`
	Records    int        `json:"records"`
	Error      string     `json:"error,omitempty"`
}

// RecentRuns returns up to limit runs, newest first, with elapsed time in
// milliseconds.
func RecentRuns(runs RunHistory, limit int) ([]SyncRunRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	list, err := runs.RecentSyncRuns(limit)
	if err != nil {
		return nil, err
	}

	rows := make([]SyncRunRow, len(list))
	for i, r := range list {
		rows[i] = SyncRunRow{
			ID:         r.ID,
			Trigger:    r.Trigger,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Pages:      r.Pages,
			Records:    r.Records,
			Error:      r.ErrorMessage,
		}
		if r.FinishedAt != nil && !r.StartedAt.IsZero() {
			rows[i].ElapsedMS = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
		}
	}
	return rows, nil
}
