package models

import "time"

// CapturedPage is the archived copy of one observed legacy page, keyed by
// its working-set key (upstream id, else URL).
type CapturedPage struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	PageKey       string `gorm:"size:191;not null;uniqueIndex"`
	UpstreamID    string `gorm:"size:64"`
	RecordType    string `gorm:"size:32;index"`
	URL           string `gorm:"type:text"`
	Domain        string `gorm:"size:128"`
	Title         string `gorm:"size:256"`
	Content       string `gorm:"type:mediumtext"`
	ContentHash   string `gorm:"size:16"`
	StatusCode    int
	RequestMethod string    `gorm:"size:16"`
	Status        string    `gorm:"size:32"`
	CapturedAt    time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
