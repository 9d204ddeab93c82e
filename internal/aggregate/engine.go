// Package aggregate keeps the title, critic and outlet statistics in step with the review ledger.
// Every recompute is a full rescan of the key's reviews followed by a replace of its row.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/honeydew/review-engine/internal/domain"
	"github.com/honeydew/review-engine/internal/logging"
	"github.com/honeydew/review-engine/internal/metrics"
	"github.com/honeydew/review-engine/internal/store"
)

// Engine recomputes statistics rows inside the caller's transaction.
type Engine struct {
	Stats *store.StatsRepo
	Now   func() time.Time
	Log   zerolog.Logger
}

// NewEngine creates an Engine over the given stats repository.
func NewEngine(stats *store.StatsRepo) *Engine {
	return &Engine{
		Stats: stats,
		Now:   time.Now,
		Log:   logging.With().Str("component", "aggregate").Logger(),
	}
}

// Apply recomputes every key in keys. A key with no remaining reviews has its row removed.
// Any failure is returned as ErrRecomputeFailed and the caller must roll back.
func (e *Engine) Apply(ctx context.Context, ext sqlx.ExtContext, keys *Keys) error {
	metrics.RecomputeKeys.Observe(float64(keys.Len()))
	now := e.Now().Unix()

	for _, id := range keys.Titles() {
		if err := e.recomputeTitle(ctx, ext, id, now); err != nil {
			return e.fail(ctx, KindTitle, id, err)
		}
	}
	for _, id := range keys.Critics() {
		if err := e.recomputeCritic(ctx, ext, id, now); err != nil {
			return e.fail(ctx, KindCritic, id, err)
		}
	}
	for _, id := range keys.Outlets() {
		if err := e.recomputeOutlet(ctx, ext, id, now); err != nil {
			return e.fail(ctx, KindOutlet, id, err)
		}
	}
	return nil
}

func (e *Engine) fail(ctx context.Context, kind string, id int64, err error) error {
	metrics.RecomputeFailures.Inc()
	log := logging.Ctx(ctx, e.Log)
	log.Error().Err(err).Str("kind", kind).Int64("key", id).Msg("recompute failed")
	return domain.WrapEngineError(domain.ErrRecomputeFailed.Code, fmt.Sprintf("recompute %s %d", kind, id), err)
}

func (e *Engine) recomputeTitle(ctx context.Context, ext sqlx.ExtContext, featureID, now int64) error {
	t, err := e.Stats.TallyFeature(ctx, ext, featureID)
	if err != nil {
		return err
	}
	if t.Total == 0 {
		metrics.RecordRecompute(KindTitle, true)
		return e.Stats.DeleteTitle(ctx, ext, featureID)
	}
	metrics.RecordRecompute(KindTitle, false)
	return e.Stats.ReplaceTitle(ctx, ext, TitleStatsFrom(featureID, t), now)
}

func (e *Engine) recomputeCritic(ctx context.Context, ext sqlx.ExtContext, criticID, now int64) error {
	t, err := e.Stats.TallyCritic(ctx, ext, criticID)
	if err != nil {
		return err
	}
	if t.Total == 0 {
		metrics.RecordRecompute(KindCritic, true)
		return e.Stats.DeleteCritic(ctx, ext, criticID)
	}
	metrics.RecordRecompute(KindCritic, false)
	return e.Stats.ReplaceCritic(ctx, ext, CriticStatsFrom(criticID, t), now)
}

func (e *Engine) recomputeOutlet(ctx context.Context, ext sqlx.ExtContext, outletID, now int64) error {
	t, err := e.Stats.TallyOutlet(ctx, ext, outletID)
	if err != nil {
		return err
	}
	if t.Total == 0 {
		metrics.RecordRecompute(KindOutlet, true)
		return e.Stats.DeleteOutlet(ctx, ext, outletID)
	}
	metrics.RecordRecompute(KindOutlet, false)
	return e.Stats.ReplaceOutlet(ctx, ext, OutletStatsFrom(outletID, t), now)
}

// AllKeys returns every key that has reviews or a cached row.
func (e *Engine) AllKeys(ctx context.Context, q sqlx.QueryerContext) (*Keys, error) {
	ks, err := e.Stats.AllKeys(ctx, q)
	if err != nil {
		return nil, err
	}
	k := NewKeys()
	for _, id := range ks.Titles {
		k.AddTitle(id)
	}
	for _, id := range ks.Critics {
		k.AddCritic(id)
	}
	for _, id := range ks.Outlets {
		k.AddOutlet(id)
	}
	return k, nil
}

// Verify recomputes every key without writing and reports each cached row that disagrees.
func (e *Engine) Verify(ctx context.Context, q sqlx.QueryerContext) ([]domain.Drift, error) {
	keys, err := e.AllKeys(ctx, q)
	if err != nil {
		return nil, err
	}

	var drift []domain.Drift
	for _, id := range keys.Titles() {
		t, err := e.Stats.TallyFeature(ctx, q, id)
		if err != nil {
			return nil, err
		}
		cached, err := e.Stats.GetTitle(ctx, q, id)
		if err != nil && !errors.Is(err, domain.ErrStatsNotFound) {
			return nil, err
		}
		got, want := absent, absent
		if cached != nil {
			got = formatTitle(*cached)
		}
		if t.Total > 0 {
			want = formatTitle(TitleStatsFrom(id, t))
		}
		drift = appendDrift(drift, KindTitle, id, got, want)
	}
	for _, id := range keys.Critics() {
		t, err := e.Stats.TallyCritic(ctx, q, id)
		if err != nil {
			return nil, err
		}
		cached, err := e.Stats.GetCritic(ctx, q, id)
		if err != nil && !errors.Is(err, domain.ErrStatsNotFound) {
			return nil, err
		}
		got, want := absent, absent
		if cached != nil {
			got = formatCounts(cached.ReviewCount, cached.SweetnessPct)
		}
		if t.Total > 0 {
			s := CriticStatsFrom(id, t)
			want = formatCounts(s.ReviewCount, s.SweetnessPct)
		}
		drift = appendDrift(drift, KindCritic, id, got, want)
	}
	for _, id := range keys.Outlets() {
		t, err := e.Stats.TallyOutlet(ctx, q, id)
		if err != nil {
			return nil, err
		}
		cached, err := e.Stats.GetOutlet(ctx, q, id)
		if err != nil && !errors.Is(err, domain.ErrStatsNotFound) {
			return nil, err
		}
		got, want := absent, absent
		if cached != nil {
			got = formatCounts(cached.ReviewCount, cached.SweetnessPct)
		}
		if t.Total > 0 {
			s := OutletStatsFrom(id, t)
			want = formatCounts(s.ReviewCount, s.SweetnessPct)
		}
		drift = appendDrift(drift, KindOutlet, id, got, want)
	}

	metrics.DriftDetected.Set(float64(len(drift)))
	return drift, nil
}

// absent marks a key that has no stats row.
const absent = "absent"

func appendDrift(drift []domain.Drift, kind string, id int64, cached, actual string) []domain.Drift {
	if cached == actual {
		return drift
	}
	return append(drift, domain.Drift{Kind: kind, Key: id, Cached: cached, Actual: actual})
}

func formatTitle(s domain.TitleStats) string {
	return fmt.Sprintf("total=%d positive=%d sweetness=%.2f cert=%s", s.TotalReviews, s.PositiveReviews, s.SweetnessPct, s.Certification)
}

func formatCounts(count int, pct float64) string {
	return fmt.Sprintf("count=%d sweetness=%.2f", count, pct)
}
