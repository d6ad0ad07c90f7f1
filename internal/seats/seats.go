// Package seats manages the display names shown for agent seats.
package seats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/dialwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MinSeats is the smallest seat list ever returned.
const MinSeats = 20

// MaxSeatNumber bounds the seat numbers that can be named.
const MaxSeatNumber = 200

// ErrSeatNumber is returned for seat numbers outside 1..MaxSeatNumber.
var ErrSeatNumber = errors.New("seat number out of range")

// Seat is one entry of the seat directory.
type Seat struct {
	Number int    `json:"seatNumber"`
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}

// DefaultName is the fallback label for seat n, e.g. 座席07.
func DefaultName(n int) string {
	return fmt.Sprintf("座席%02d", n)
}

// Directory resolves seat names from configured defaults and stored
// overrides.
type Directory struct {
	db       *gorm.DB
	total    int
	defaults []string
}

// New returns a directory sized for total seats. defaults[i] names seat i+1
// when no override is stored.
func New(db *gorm.DB, total int, defaults []string) *Directory {
	return &Directory{db: db, total: total, defaults: defaults}
}

// List returns every seat from 1 to max(MinSeats, total, len(defaults),
// highest stored seat). Non-blank stored names win over defaults.
func (d *Directory) List() ([]Seat, error) {
	var stored []models.SeatName
	if err := d.db.Order("seat_number ASC").Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("seats: list: %w", err)
	}

	n := max(MinSeats, d.total, len(d.defaults))
	for _, s := range stored {
		if s.SeatNumber > n && s.SeatNumber <= MaxSeatNumber {
			n = s.SeatNumber
		}
	}

	out := make([]Seat, n)
	for i := range out {
		out[i] = Seat{Number: i + 1, Name: DefaultName(i + 1)}
		if i < len(d.defaults) && strings.TrimSpace(d.defaults[i]) != "" {
			out[i].Name = d.defaults[i]
		}
	}
	for _, s := range stored {
		if s.SeatNumber < 1 || s.SeatNumber > n || strings.TrimSpace(s.Name) == "" {
			continue
		}
		out[s.SeatNumber-1].Name = s.Name
		out[s.SeatNumber-1].Custom = true
	}
	return out, nil
}

// Name returns the display name of one seat.
func (d *Directory) Name(number int) (string, error) {
	list, err := d.List()
	if err != nil {
		return "", err
	}
	if number < 1 || number > len(list) {
		return DefaultName(number), nil
	}
	return list[number-1].Name, nil
}

// Set stores an override for seat number. A blank name clears it.
func (d *Directory) Set(number int, name string) error {
	if number < 1 || number > MaxSeatNumber {
		return fmt.Errorf("seats: set %d: %w", number, ErrSeatNumber)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return d.Clear(number)
	}
	row := models.SeatName{SeatNumber: number, Name: name, UpdatedAt: time.Now()}
	result := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seat_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("seats: set %d: %w", number, result.Error)
	}
	return nil
}

// Clear removes the override for seat number. Clearing an unnamed seat is
// not an error.
func (d *Directory) Clear(number int) error {
	if err := d.db.Where("seat_number = ?", number).Delete(&models.SeatName{}).Error; err != nil {
		return fmt.Errorf("seats: clear %d: %w", number, err)
	}
	return nil
}

// Replace swaps all overrides for names, where names[i] names seat i+1.
// Blank entries leave the seat on its default.
func (d *Directory) Replace(names []string) error {
	if len(names) > MaxSeatNumber {
		return fmt.Errorf("seats: replace %d names: %w", len(names), ErrSeatNumber)
	}
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.SeatName{}).Error; err != nil {
			return fmt.Errorf("seats: replace: %w", err)
		}
		now := time.Now()
		var rows []models.SeatName
		for i, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				rows = append(rows, models.SeatName{SeatNumber: i + 1, Name: name, UpdatedAt: now})
			}
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("seats: replace: %w", err)
		}
		return nil
	})
}
