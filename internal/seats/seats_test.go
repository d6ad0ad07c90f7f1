package seats

import (
	"errors"
	"testing"

	"github.com/zulandar/dialwatch/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.SeatName{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestDefaultName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "座席01"},
		{9, "座席09"},
		{20, "座席20"},
		{123, "座席123"},
	}
	for _, tt := range tests {
		if got := DefaultName(tt.n); got != tt.want {
			t.Errorf("DefaultName(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestList_Defaults(t *testing.T) {
	d := New(openTestDB(t), 0, []string{"王大明", " ", "Jack"})
	list, err := d.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != MinSeats {
		t.Fatalf("len = %d, want %d", len(list), MinSeats)
	}
	if list[0].Name != "王大明" || list[1].Name != "座席02" || list[2].Name != "Jack" {
		t.Errorf("names = %q %q %q", list[0].Name, list[1].Name, list[2].Name)
	}
	if list[19].Number != 20 || list[19].Name != "座席20" {
		t.Errorf("last = %+v", list[19])
	}
	for _, s := range list {
		if s.Custom {
			t.Errorf("seat %d custom without overrides", s.Number)
		}
	}
}

func TestList_TotalAndStoredExtendLength(t *testing.T) {
	db := openTestDB(t)
	d := New(db, 25, nil)
	list, _ := d.List()
	if len(list) != 25 {
		t.Errorf("len = %d, want 25", len(list))
	}

	if err := d.Set(30, "Night shift"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	list, _ = d.List()
	if len(list) != 30 {
		t.Fatalf("len = %d, want 30", len(list))
	}
	if list[29].Name != "Night shift" || !list[29].Custom {
		t.Errorf("seat 30 = %+v", list[29])
	}
}

func TestSetAndClear(t *testing.T) {
	d := New(openTestDB(t), 20, []string{"王大明"})

	if err := d.Set(1, "  Amy "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if name, _ := d.Name(1); name != "Amy" {
		t.Errorf("Name(1) = %q, want Amy", name)
	}
	if err := d.Set(1, "Lisa"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if name, _ := d.Name(1); name != "Lisa" {
		t.Errorf("Name(1) = %q, want Lisa", name)
	}

	if err := d.Clear(1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if name, _ := d.Name(1); name != "王大明" {
		t.Errorf("Name(1) after clear = %q, want default", name)
	}

	d.Set(2, "Tom")
	if err := d.Set(2, "   "); err != nil {
		t.Fatalf("Set blank: %v", err)
	}
	if name, _ := d.Name(2); name != "座席02" {
		t.Errorf("Name(2) after blank set = %q, want default", name)
	}

	if err := d.Clear(7); err != nil {
		t.Errorf("Clear(unnamed) = %v", err)
	}
}

func TestSet_OutOfRange(t *testing.T) {
	d := New(openTestDB(t), 20, nil)
	for _, n := range []int{0, -1, MaxSeatNumber + 1} {
		if err := d.Set(n, "x"); !errors.Is(err, ErrSeatNumber) {
			t.Errorf("Set(%d) = %v, want ErrSeatNumber", n, err)
		}
	}
}

func TestReplace(t *testing.T) {
	d := New(openTestDB(t), 20, nil)
	d.Set(5, "old")

	if err := d.Replace([]string{"A", "", "C"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	list, _ := d.List()
	if list[0].Name != "A" || list[1].Name != "座席02" || list[2].Name != "C" {
		t.Errorf("names = %q %q %q", list[0].Name, list[1].Name, list[2].Name)
	}
	if list[4].Custom {
		t.Error("seat 5 kept its old override after Replace")
	}

	if err := d.Replace(nil); err != nil {
		t.Fatalf("Replace(nil): %v", err)
	}
	list, _ = d.List()
	if list[0].Custom {
		t.Error("Replace(nil) left overrides")
	}
}
