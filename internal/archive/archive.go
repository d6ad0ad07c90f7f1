// Package archive persists observed pages and resync runs so that a session
// can be replayed through the pipeline later.
package archive

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/dialwatch/internal/models"
	"github.com/zulandar/dialwatch/internal/monitor"
	"github.com/zulandar/dialwatch/internal/scrape"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Archive stores pages and sync runs in the configured database.
type Archive struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns an archive backed by db. The tables must already exist.
func New(db *gorm.DB) *Archive {
	return &Archive{db: db, now: time.Now}
}

// contentHash fingerprints a body for change detection.
func contentHash(body string) string {
	return fmt.Sprintf("%x-%x", scrape.HashString(body), len(body))
}

// SavePages upserts pages by key. Pages without a key, and pages whose body
// and status are unchanged since the last save, are skipped. It returns the
// number of rows written.
func (a *Archive) SavePages(pages []monitor.CapturedPage) (int, error) {
	written := 0
	for _, p := range pages {
		key := p.Key()
		if key == "" {
			continue
		}
		body := p.Body()
		hash := contentHash(body)

		var existing models.CapturedPage
		err := a.db.Where("page_key = ?", key).Limit(1).Find(&existing).Error
		if err != nil {
			return written, fmt.Errorf("archive: lookup %s: %w", key, err)
		}
		if existing.ID != 0 && existing.ContentHash == hash && existing.Status == p.Metadata.Status {
			continue
		}

		capturedAt := p.ObservedAt()
		if capturedAt.IsZero() {
			capturedAt = a.now()
		}
		row := models.CapturedPage{
			PageKey:       key,
			UpstreamID:    p.ID,
			RecordType:    p.RecordType,
			URL:           p.URL,
			Domain:        p.Domain,
			Title:         p.Title,
			Content:       body,
			ContentHash:   hash,
			StatusCode:    p.Metadata.StatusCode,
			RequestMethod: p.Metadata.RequestMethod,
			Status:        p.Metadata.Status,
			CapturedAt:    capturedAt,
		}
		result := a.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "page_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"upstream_id", "record_type", "url", "domain", "title", "content",
				"content_hash", "status_code", "request_method", "status", "captured_at", "updated_at",
			}),
		}).Create(&row)
		if result.Error != nil {
			return written, fmt.Errorf("archive: save %s: %w", key, result.Error)
		}
		written++
	}
	return written, nil
}

// LoadPages returns archived pages captured at or after since, oldest first.
// A zero since loads everything.
func (a *Archive) LoadPages(since time.Time) ([]monitor.CapturedPage, error) {
	q := a.db.Order("captured_at ASC").Order("id ASC")
	if !since.IsZero() {
		q = q.Where("captured_at >= ?", since)
	}
	var rows []models.CapturedPage
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("archive: load pages: %w", err)
	}

	pages := make([]monitor.CapturedPage, 0, len(rows))
	for _, r := range rows {
		pages = append(pages, monitor.CapturedPage{
			ID:         r.UpstreamID,
			URL:        r.URL,
			RecordType: r.RecordType,
			Content:    r.Content,
			Domain:     r.Domain,
			Title:      r.Title,
			Metadata: monitor.PageMetadata{
				Description:   r.RecordType,
				StatusCode:    r.StatusCode,
				RequestMethod: r.RequestMethod,
				Status:        r.Status,
			},
			CapturedAt: r.CapturedAt,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return pages, nil
}

// SyncRun describes one finished resync.
type SyncRun struct {
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	Records    int
	Err        error
}

// RecordSyncRun stores run and returns its generated id.
func (a *Archive) RecordSyncRun(run SyncRun) (string, error) {
	row := models.SyncRun{
		ID:        uuid.NewString(),
		Trigger:   run.Trigger,
		StartedAt: run.StartedAt,
		Pages:     run.Pages,
		Records:   run.Records,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		row.FinishedAt = &finished
	}
	if run.Err != nil {
		row.ErrorMessage = run.Err.Error()
	}
	if err := a.db.Create(&row).Error; err != nil {
		return "", fmt.Errorf("archive: record sync run: %w", err)
	}
	return row.ID, nil
}

// RecentSyncRuns returns up to limit runs, newest first.
func (a *Archive) RecentSyncRuns(limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.SyncRun
	if err := a.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("archive: list sync runs: %w", err)
	}
	return runs, nil
}

// PruneBefore deletes pages captured before cutoff and returns how many.
func (a *Archive) PruneBefore(cutoff time.Time) (int64, error) {
	result := a.db.Where("captured_at < ?", cutoff).Delete(&models.CapturedPage{})
	if result.Error != nil {
		return 0, fmt.Errorf("archive: prune: %w", result.Error)
	}
	return result.RowsAffected, nil
}
