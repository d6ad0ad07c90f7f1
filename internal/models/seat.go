package models

import "time"

// SeatName overrides the display name of one seat.
type SeatName struct {
	SeatNumber int    `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"size:64;not null"`
	UpdatedAt  time.Time
}
