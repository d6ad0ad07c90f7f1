package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/dialwatch/internal/config"
	"github.com/zulandar/dialwatch/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "default local",
			cfg:  config.DatabaseConfig{Host: "127.0.0.1", Port: 3306, User: "root", Name: "dialwatch"},
			want: "root@tcp(127.0.0.1:3306)/dialwatch?parseTime=true",
		},
		{
			name: "with password",
			cfg:  config.DatabaseConfig{Host: "db.internal", Port: 3307, User: "dw", Password: "pw", Name: "calls"},
			want: "dw:pw@tcp(db.internal:3307)/calls?parseTime=true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("err = %v, want unsupported driver", err)
	}
}

func TestConnect_SQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dw.db")
	db, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("table for %T missing after migrate", m)
		}
	}

	// Migration is idempotent.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
	if err := db.Create(&models.SeatName{SeatNumber: 3, Name: "Amy"}).Error; err != nil {
		t.Fatalf("insert seat: %v", err)
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 3 {
		t.Errorf("AllModels() returned %d models, want 3", got)
	}
}
