package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
)

// StatsRepo reads the review ledger for recomputes and owns the three statistic caches.
// Only the aggregate engine calls the Replace and Delete methods.
type StatsRepo struct{}

// TallyFeature counts all and positive reviews of a feature.
func (r *StatsRepo) TallyFeature(ctx context.Context, q sqlx.QueryerContext, featureID int64) (domain.Tally, error) {
	const query = `SELECT COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN recommendation = 'UP' THEN 1 ELSE 0 END), 0) AS positive
FROM reviews WHERE feature_id = ?`
	return tally(ctx, q, query, featureID)
}

// TallyCritic counts all and positive reviews written by a critic.
func (r *StatsRepo) TallyCritic(ctx context.Context, q sqlx.QueryerContext, criticID int64) (domain.Tally, error) {
	const query = `SELECT COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN recommendation = 'UP' THEN 1 ELSE 0 END), 0) AS positive
FROM reviews WHERE critic_id = ?`
	return tally(ctx, q, query, criticID)
}

// TallyOutlet counts all and positive reviews written by the critics currently at an outlet.
func (r *StatsRepo) TallyOutlet(ctx context.Context, q sqlx.QueryerContext, outletID int64) (domain.Tally, error) {
	const query = `SELECT COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN r.recommendation = 'UP' THEN 1 ELSE 0 END), 0) AS positive
FROM reviews r
JOIN critics c ON c.id = r.critic_id
WHERE c.outlet_id = ?`
	return tally(ctx, q, query, outletID)
}

func tally(ctx context.Context, q sqlx.QueryerContext, query string, key int64) (domain.Tally, error) {
	var t domain.Tally
	if err := sqlx.GetContext(ctx, q, &t, query, key); err != nil {
		return domain.Tally{}, fmt.Errorf("tally reviews: %w", err)
	}
	return t, nil
}

// ReplaceTitle overwrites the cached stats row of a feature.
func (r *StatsRepo) ReplaceTitle(ctx context.Context, ext sqlx.ExtContext, s domain.TitleStats, now int64) error {
	const q = `INSERT INTO title_stats (feature_id, total_reviews, positive_reviews, sweetness_pct, certification, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(feature_id) DO UPDATE SET
	total_reviews = excluded.total_reviews,
	positive_reviews = excluded.positive_reviews,
	sweetness_pct = excluded.sweetness_pct,
	certification = excluded.certification,
	updated_at = excluded.updated_at`
	if _, err := ext.ExecContext(ctx, q, s.FeatureID, s.TotalReviews, s.PositiveReviews, s.SweetnessPct, string(s.Certification), now); err != nil {
		return fmt.Errorf("replace title stats: %w", err)
	}
	return nil
}

// ReplaceCritic overwrites the cached stats row of a critic.
func (r *StatsRepo) ReplaceCritic(ctx context.Context, ext sqlx.ExtContext, s domain.CriticStats, now int64) error {
	const q = `INSERT INTO critic_stats (critic_id, review_count, sweetness_pct, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(critic_id) DO UPDATE SET
	review_count = excluded.review_count,
	sweetness_pct = excluded.sweetness_pct,
	updated_at = excluded.updated_at`
	if _, err := ext.ExecContext(ctx, q, s.CriticID, s.ReviewCount, s.SweetnessPct, now); err != nil {
		return fmt.Errorf("replace critic stats: %w", err)
	}
	return nil
}

// ReplaceOutlet overwrites the cached stats row of an outlet.
func (r *StatsRepo) ReplaceOutlet(ctx context.Context, ext sqlx.ExtContext, s domain.OutletStats, now int64) error {
	const q = `INSERT INTO outlet_stats (outlet_id, review_count, sweetness_pct, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(outlet_id) DO UPDATE SET
	review_count = excluded.review_count,
	sweetness_pct = excluded.sweetness_pct,
	updated_at = excluded.updated_at`
	if _, err := ext.ExecContext(ctx, q, s.OutletID, s.ReviewCount, s.SweetnessPct, now); err != nil {
		return fmt.Errorf("replace outlet stats: %w", err)
	}
	return nil
}

// DeleteTitle drops the cached stats row of a feature, if any.
func (r *StatsRepo) DeleteTitle(ctx context.Context, ext sqlx.ExtContext, featureID int64) error {
	if _, err := ext.ExecContext(ctx, `DELETE FROM title_stats WHERE feature_id = ?`, featureID); err != nil {
		return fmt.Errorf("delete title stats: %w", err)
	}
	return nil
}

// DeleteCritic drops the cached stats row of a critic, if any.
func (r *StatsRepo) DeleteCritic(ctx context.Context, ext sqlx.ExtContext, criticID int64) error {
	if _, err := ext.ExecContext(ctx, `DELETE FROM critic_stats WHERE critic_id = ?`, criticID); err != nil {
		return fmt.Errorf("delete critic stats: %w", err)
	}
	return nil
}

// DeleteOutlet drops the cached stats row of an outlet, if any.
func (r *StatsRepo) DeleteOutlet(ctx context.Context, ext sqlx.ExtContext, outletID int64) error {
	if _, err := ext.ExecContext(ctx, `DELETE FROM outlet_stats WHERE outlet_id = ?`, outletID); err != nil {
		return fmt.Errorf("delete outlet stats: %w", err)
	}
	return nil
}

const (
	titleCols  = `feature_id, total_reviews, positive_reviews, sweetness_pct, certification`
	criticCols = `critic_id, review_count, sweetness_pct`
	outletCols = `outlet_id, review_count, sweetness_pct`
)

// GetTitle returns the cached stats of a feature.
func (r *StatsRepo) GetTitle(ctx context.Context, q sqlx.QueryerContext, featureID int64) (*domain.TitleStats, error) {
	var s domain.TitleStats
	if err := getStats(ctx, q, &s, `SELECT `+titleCols+` FROM title_stats WHERE feature_id = ?`, featureID); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCritic returns the cached stats of a critic.
func (r *StatsRepo) GetCritic(ctx context.Context, q sqlx.QueryerContext, criticID int64) (*domain.CriticStats, error) {
	var s domain.CriticStats
	if err := getStats(ctx, q, &s, `SELECT `+criticCols+` FROM critic_stats WHERE critic_id = ?`, criticID); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetOutlet returns the cached stats of an outlet.
func (r *StatsRepo) GetOutlet(ctx context.Context, q sqlx.QueryerContext, outletID int64) (*domain.OutletStats, error) {
	var s domain.OutletStats
	if err := getStats(ctx, q, &s, `SELECT `+outletCols+` FROM outlet_stats WHERE outlet_id = ?`, outletID); err != nil {
		return nil, err
	}
	return &s, nil
}

func getStats(ctx context.Context, q sqlx.QueryerContext, dest any, query string, key int64) error {
	if err := sqlx.GetContext(ctx, q, dest, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrStatsNotFound
		}
		return fmt.Errorf("get stats: %w", err)
	}
	return nil
}

// ListTitles returns every cached title row ordered by key.
func (r *StatsRepo) ListTitles(ctx context.Context, q sqlx.QueryerContext) ([]domain.TitleStats, error) {
	var out []domain.TitleStats
	if err := sqlx.SelectContext(ctx, q, &out, `SELECT `+titleCols+` FROM title_stats ORDER BY feature_id`); err != nil {
		return nil, fmt.Errorf("list title stats: %w", err)
	}
	return out, nil
}

// ListCritics returns every cached critic row ordered by key.
func (r *StatsRepo) ListCritics(ctx context.Context, q sqlx.QueryerContext) ([]domain.CriticStats, error) {
	var out []domain.CriticStats
	if err := sqlx.SelectContext(ctx, q, &out, `SELECT `+criticCols+` FROM critic_stats ORDER BY critic_id`); err != nil {
		return nil, fmt.Errorf("list critic stats: %w", err)
	}
	return out, nil
}

// ListOutlets returns every cached outlet row ordered by key.
func (r *StatsRepo) ListOutlets(ctx context.Context, q sqlx.QueryerContext) ([]domain.OutletStats, error) {
	var out []domain.OutletStats
	if err := sqlx.SelectContext(ctx, q, &out, `SELECT `+outletCols+` FROM outlet_stats ORDER BY outlet_id`); err != nil {
		return nil, fmt.Errorf("list outlet stats: %w", err)
	}
	return out, nil
}

// KeySet lists every statistics key that has reviews or a cached row.
type KeySet struct {
	Titles  []int64
	Critics []int64
	Outlets []int64
}

// AllKeys returns every key a full rebuild or verification must visit.
func (r *StatsRepo) AllKeys(ctx context.Context, q sqlx.QueryerContext) (KeySet, error) {
	var ks KeySet
	const titles = `SELECT feature_id FROM reviews UNION SELECT feature_id FROM title_stats ORDER BY 1`
	if err := sqlx.SelectContext(ctx, q, &ks.Titles, titles); err != nil {
		return KeySet{}, fmt.Errorf("list title keys: %w", err)
	}
	const critics = `SELECT critic_id FROM reviews UNION SELECT critic_id FROM critic_stats ORDER BY 1`
	if err := sqlx.SelectContext(ctx, q, &ks.Critics, critics); err != nil {
		return KeySet{}, fmt.Errorf("list critic keys: %w", err)
	}
	const outlets = `SELECT c.outlet_id FROM reviews r JOIN critics c ON c.id = r.critic_id
UNION SELECT outlet_id FROM outlet_stats ORDER BY 1`
	if err := sqlx.SelectContext(ctx, q, &ks.Outlets, outlets); err != nil {
		return KeySet{}, fmt.Errorf("list outlet keys: %w", err)
	}
	return ks, nil
}
