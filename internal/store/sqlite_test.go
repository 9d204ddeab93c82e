package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/honeydew/review-engine/internal/domain"
)

func TestNewDB(t *testing.T) {
	db := openTestDB(t)

	var tables []string
	if err := db.Select(&tables, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name"); err != nil {
		t.Fatalf("query tables: %v", err)
	}

	expected := map[string]bool{
		"rating_scales":     true,
		"outlets":           true,
		"critics":           true,
		"features":          true,
		"reviews":           true,
		"title_stats":       true,
		"critic_stats":      true,
		"outlet_stats":      true,
		"mutation_audit":    true,
		"schema_migrations": true,
	}

	for _, tbl := range tables {
		delete(expected, tbl)
	}
	for tbl := range expected {
		t.Errorf("expected table %q not found", tbl)
	}
}

func TestNewDB_IdempotentMigration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db1, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("first NewDB: %v", err)
	}
	if _, err := (&ScaleRepo{}).Create(context.Background(), db1, "Thumbs", 1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	db1.Close()

	// Reopening must not re-run the migration or lose data.
	db2, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("second NewDB: %v", err)
	}
	defer db2.Close()

	scales, err := (&ScaleRepo{}).List(context.Background(), db2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(scales) != 1 {
		t.Errorf("scales after reopen = %d, want 1", len(scales))
	}
}

func TestNewDB_ForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)

	var on int
	if err := db.Get(&on, "PRAGMA foreign_keys"); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}

	_, err := (&CatalogRepo{}).CreateCritic(context.Background(), db, domain.Critic{DisplayName: "Orphan", OutletID: 999})
	if !errors.Is(err, domain.ErrOutletNotFound) {
		t.Errorf("CreateCritic with missing outlet: err = %v, want ErrOutletNotFound", err)
	}
}
