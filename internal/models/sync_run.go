package models

import "time"

// SyncRun records one full resynchronization against the upstream API.
type SyncRun struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Trigger      string    `gorm:"size:16;index"`
	StartedAt    time.Time `gorm:"index"`
	FinishedAt   *time.Time
	Pages        int
	Records      int
	ErrorMessage string `gorm:"type:text"`
}
