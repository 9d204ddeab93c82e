package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/honeydew/review-engine/internal/domain"
)

func TestCatalogRepo_CriticRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := &CatalogRepo{}

	outletID, err := repo.CreateOutlet(ctx, db, domain.Outlet{Name: "Night Owl"})
	if err != nil {
		t.Fatalf("CreateOutlet: %v", err)
	}
	joined := time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC)
	criticID, err := repo.CreateCritic(ctx, db, domain.Critic{
		DisplayName: "C. Reviewer",
		OutletID:    outletID,
		IsTopCritic: true,
		JoinedDate:  joined,
	})
	if err != nil {
		t.Fatalf("CreateCritic: %v", err)
	}

	got, err := repo.GetCritic(ctx, db, criticID)
	if err != nil {
		t.Fatalf("GetCritic: %v", err)
	}
	if got.OutletID != outletID || !got.IsTopCritic || !got.JoinedDate.Equal(joined) {
		t.Errorf("GetCritic = %+v", got)
	}

	of, err := repo.OutletOf(ctx, db, criticID)
	if err != nil {
		t.Fatalf("OutletOf: %v", err)
	}
	if of != outletID {
		t.Errorf("OutletOf = %d, want %d", of, outletID)
	}

	n, err := repo.CountCritics(ctx, db, outletID)
	if err != nil {
		t.Fatalf("CountCritics: %v", err)
	}
	if n != 1 {
		t.Errorf("CountCritics = %d, want 1", n)
	}
}

func TestCatalogRepo_Exists(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)
	repo := &CatalogRepo{}

	checks := []struct {
		name string
		fn   func(int64) (bool, error)
		id   int64
		want bool
	}{
		{"critic present", func(id int64) (bool, error) { return repo.CriticExists(ctx, db, id) }, f.critic1, true},
		{"critic absent", func(id int64) (bool, error) { return repo.CriticExists(ctx, db, id) }, 999, false},
		{"feature present", func(id int64) (bool, error) { return repo.FeatureExists(ctx, db, id) }, f.feature1, true},
		{"feature absent", func(id int64) (bool, error) { return repo.FeatureExists(ctx, db, id) }, 999, false},
		{"outlet present", func(id int64) (bool, error) { return repo.OutletExists(ctx, db, id) }, f.outletID, true},
		{"outlet absent", func(id int64) (bool, error) { return repo.OutletExists(ctx, db, id) }, 999, false},
	}
	for _, c := range checks {
		got, err := c.fn(c.id)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCatalogRepo_CreateFeatureKeepsID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := &CatalogRepo{}

	year := 1999
	id, err := repo.CreateFeature(ctx, db, domain.Feature{ID: 500, Title: "Fixed Key", ReleaseYear: &year})
	if err != nil {
		t.Fatalf("CreateFeature: %v", err)
	}
	if id != 500 {
		t.Errorf("CreateFeature ID = %d, want 500", id)
	}
}

func TestCatalogRepo_DeleteCascadesReviews(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)
	repo := &CatalogRepo{}

	insertReview(t, db, f.feature1, f.critic1, f.scaleID, 4, domain.RecommendUp)
	insertReview(t, db, f.feature2, f.critic1, f.scaleID, 1, domain.RecommendDown)

	if err := repo.DeleteCritic(ctx, db, f.critic1); err != nil {
		t.Fatalf("DeleteCritic: %v", err)
	}

	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM reviews"); err != nil {
		t.Fatalf("count reviews: %v", err)
	}
	if n != 0 {
		t.Errorf("reviews after critic delete = %d, want 0", n)
	}

	if err := repo.DeleteCritic(ctx, db, f.critic1); !errors.Is(err, domain.ErrCriticNotFound) {
		t.Errorf("second DeleteCritic err = %v, want ErrCriticNotFound", err)
	}
	if err := repo.DeleteFeature(ctx, db, 999); !errors.Is(err, domain.ErrFeatureNotFound) {
		t.Errorf("DeleteFeature err = %v, want ErrFeatureNotFound", err)
	}
}

func TestCatalogRepo_DeleteOutletInUse(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)
	repo := &CatalogRepo{}

	if err := repo.DeleteOutlet(ctx, db, f.outletID); !errors.Is(err, domain.ErrOutletInUse) {
		t.Errorf("DeleteOutlet with critics err = %v, want ErrOutletInUse", err)
	}

	for _, id := range []int64{f.critic1, f.critic2} {
		if err := repo.DeleteCritic(ctx, db, id); err != nil {
			t.Fatalf("DeleteCritic: %v", err)
		}
	}
	if err := repo.DeleteOutlet(ctx, db, f.outletID); err != nil {
		t.Errorf("DeleteOutlet after critics removed: %v", err)
	}
	if _, err := repo.GetOutlet(ctx, db, f.outletID); !errors.Is(err, domain.ErrOutletNotFound) {
		t.Errorf("GetOutlet err = %v, want ErrOutletNotFound", err)
	}
}
