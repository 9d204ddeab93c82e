package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/aggregate"
	"github.com/honeydew/review-engine/internal/domain"
	"github.com/honeydew/review-engine/internal/scale"
	"github.com/honeydew/review-engine/internal/store"
)

type testEnv struct {
	svc      *Service
	db       *sqlx.DB
	tenPoint int64
	outlet   int64
	outlet2  int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if _, err := scale.SeedDefaults(ctx, db, &store.ScaleRepo{}); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}

	env := &testEnv{svc: NewService(db, "Thumbs"), db: db}
	ten, err := env.svc.ScaleRepo.GetByDescription(ctx, db, "Ten-point")
	if err != nil {
		t.Fatalf("GetByDescription: %v", err)
	}
	env.tenPoint = ten.ID

	if env.outlet, err = env.svc.Catalog.CreateOutlet(ctx, db, domain.Outlet{Name: "Daily Reel"}); err != nil {
		t.Fatalf("CreateOutlet: %v", err)
	}
	if env.outlet2, err = env.svc.Catalog.CreateOutlet(ctx, db, domain.Outlet{Name: "Night Owl"}); err != nil {
		t.Fatalf("CreateOutlet: %v", err)
	}
	return env
}

func (e *testEnv) critic(t *testing.T, outletID int64) int64 {
	t.Helper()
	id, err := e.svc.Catalog.CreateCritic(context.Background(), e.db, domain.Critic{DisplayName: "critic", OutletID: outletID})
	if err != nil {
		t.Fatalf("CreateCritic: %v", err)
	}
	return id
}

func (e *testEnv) feature(t *testing.T, id int64) int64 {
	t.Helper()
	got, err := e.svc.Catalog.CreateFeature(context.Background(), e.db, domain.Feature{ID: id, Title: "feature"})
	if err != nil {
		t.Fatalf("CreateFeature: %v", err)
	}
	return got
}

func (e *testEnv) add(t *testing.T, featureID, criticID int64, scaleID *int64, score float64) int64 {
	t.Helper()
	id, err := e.svc.AddReview(context.Background(), domain.NewReview{
		FeatureID:    featureID,
		CriticID:     criticID,
		ScaleID:      scaleID,
		NumericScore: score,
		ReviewDate:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AddReview(feature=%d, critic=%d, score=%v): %v", featureID, criticID, score, err)
	}
	return id
}

func (e *testEnv) titleStats(t *testing.T, featureID int64) domain.TitleStats {
	t.Helper()
	s, err := e.svc.GetTitleStats(context.Background(), featureID)
	if err != nil {
		t.Fatalf("GetTitleStats(%d): %v", featureID, err)
	}
	return *s
}

func (e *testEnv) countReviews(t *testing.T) int {
	t.Helper()
	var n int
	if err := e.db.Get(&n, "SELECT COUNT(*) FROM reviews"); err != nil {
		t.Fatalf("count reviews: %v", err)
	}
	return n
}

// assertConsistent checks that every cached row equals a fresh recompute.
func (e *testEnv) assertConsistent(t *testing.T) {
	t.Helper()
	drift, err := e.svc.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(drift) != 0 {
		t.Errorf("stats drift: %+v", drift)
	}
}

func ptr[T any](v T) *T { return &v }

// failingRecomputer fails every Apply after the wrapped engine has written its rows.
type failingRecomputer struct {
	*aggregate.Engine
}

func (f failingRecomputer) Apply(ctx context.Context, ext sqlx.ExtContext, keys *aggregate.Keys) error {
	if err := f.Engine.Apply(ctx, ext, keys); err != nil {
		return err
	}
	return domain.WrapEngineError(domain.ErrRecomputeFailed.Code, "recompute title", errors.New("disk I/O error"))
}
