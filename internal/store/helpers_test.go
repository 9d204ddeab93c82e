package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixture is a minimal catalog: one scale, one outlet, two critics and two features.
type fixture struct {
	scaleID  int64
	outletID int64
	critic1  int64
	critic2  int64
	feature1 int64
	feature2 int64
}

func seedFixture(t *testing.T, db *sqlx.DB) fixture {
	t.Helper()
	ctx := context.Background()
	scales := &ScaleRepo{}
	catalog := &CatalogRepo{}

	var f fixture
	var err error
	if f.scaleID, err = scales.Create(ctx, db, "Five-star", 3.5); err != nil {
		t.Fatalf("create scale: %v", err)
	}
	if f.outletID, err = catalog.CreateOutlet(ctx, db, domain.Outlet{Name: "Daily Reel"}); err != nil {
		t.Fatalf("create outlet: %v", err)
	}
	if f.critic1, err = catalog.CreateCritic(ctx, db, domain.Critic{DisplayName: "A. Critic", OutletID: f.outletID}); err != nil {
		t.Fatalf("create critic: %v", err)
	}
	if f.critic2, err = catalog.CreateCritic(ctx, db, domain.Critic{DisplayName: "B. Critic", OutletID: f.outletID, IsTopCritic: true}); err != nil {
		t.Fatalf("create critic: %v", err)
	}
	if f.feature1, err = catalog.CreateFeature(ctx, db, domain.Feature{Title: "First Light"}); err != nil {
		t.Fatalf("create feature: %v", err)
	}
	if f.feature2, err = catalog.CreateFeature(ctx, db, domain.Feature{Title: "Second Wind"}); err != nil {
		t.Fatalf("create feature: %v", err)
	}
	return f
}

func insertReview(t *testing.T, db *sqlx.DB, featureID, criticID, scaleID int64, score float64, rec domain.Recommendation) int64 {
	t.Helper()
	repo := &ReviewRepo{}
	id, err := repo.Insert(context.Background(), db, domain.Review{
		FeatureID:      featureID,
		CriticID:       criticID,
		ScaleID:        scaleID,
		NumericScore:   score,
		Recommendation: rec,
		ReviewDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Insert review: %v", err)
	}
	return id
}
