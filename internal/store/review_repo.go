package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
)

// ReviewRepo handles persistence for Review records.
type ReviewRepo struct{}

var reviewColumns = []string{"id", "feature_id", "critic_id", "scale_id", "numeric_score", "recommendation", "review_date", "url"}

type reviewRow struct {
	ID             int64   `db:"id"`
	FeatureID      int64   `db:"feature_id"`
	CriticID       int64   `db:"critic_id"`
	ScaleID        int64   `db:"scale_id"`
	NumericScore   float64 `db:"numeric_score"`
	Recommendation string  `db:"recommendation"`
	ReviewDate     string  `db:"review_date"`
	URL            *string `db:"url"`
}

func (r reviewRow) toDomain() (domain.Review, error) {
	d, err := time.Parse(domain.DateLayout, r.ReviewDate)
	if err != nil {
		return domain.Review{}, fmt.Errorf("parse review_date: %w", err)
	}
	return domain.Review{
		ID:             r.ID,
		FeatureID:      r.FeatureID,
		CriticID:       r.CriticID,
		ScaleID:        r.ScaleID,
		NumericScore:   r.NumericScore,
		Recommendation: domain.Recommendation(r.Recommendation),
		ReviewDate:     d,
		URL:            r.URL,
	}, nil
}

// Insert adds a review and returns its ID. The recommendation must already be classified.
// Callers check the feature and critic first, so a foreign key failure means the scale is gone.
func (r *ReviewRepo) Insert(ctx context.Context, ext sqlx.ExtContext, rev domain.Review) (int64, error) {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("reviews")
	ib.Cols("feature_id", "critic_id", "scale_id", "numeric_score", "recommendation", "review_date", "url")
	ib.Values(rev.FeatureID, rev.CriticID, rev.ScaleID, rev.NumericScore,
		string(rev.Recommendation), rev.ReviewDate.Format(domain.DateLayout), rev.URL)

	query, args := ib.Build()
	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateReview
		}
		if isForeignKeyViolation(err) {
			return 0, domain.ErrScaleNotFound
		}
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return res.LastInsertId()
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepo) GetByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Review, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(reviewColumns...).From("reviews").Where(sb.Equal("id", id))
	return r.getOne(ctx, q, sb)
}

// FindByPair returns the review a critic wrote for a feature, or ErrReviewNotFound.
func (r *ReviewRepo) FindByPair(ctx context.Context, q sqlx.QueryerContext, criticID, featureID int64) (*domain.Review, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(reviewColumns...).From("reviews").Where(
		sb.Equal("critic_id", criticID),
		sb.Equal("feature_id", featureID),
	)
	return r.getOne(ctx, q, sb)
}

func (r *ReviewRepo) getOne(ctx context.Context, q sqlx.QueryerContext, sb *sqlbuilder.SelectBuilder) (*domain.Review, error) {
	query, args := sb.Build()
	var row reviewRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	rev, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// Update applies the non-nil patch fields to a review and stores the recomputed recommendation.
// As with Insert, a foreign key failure is reported as ErrScaleNotFound.
func (r *ReviewRepo) Update(ctx context.Context, ext sqlx.ExtContext, id int64, patch domain.ReviewPatch, rec domain.Recommendation) error {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("reviews")

	assignments := []string{ub.Assign("recommendation", string(rec))}
	if patch.FeatureID != nil {
		assignments = append(assignments, ub.Assign("feature_id", *patch.FeatureID))
	}
	if patch.CriticID != nil {
		assignments = append(assignments, ub.Assign("critic_id", *patch.CriticID))
	}
	if patch.ScaleID != nil {
		assignments = append(assignments, ub.Assign("scale_id", *patch.ScaleID))
	}
	if patch.NumericScore != nil {
		assignments = append(assignments, ub.Assign("numeric_score", *patch.NumericScore))
	}
	if patch.ReviewDate != nil {
		assignments = append(assignments, ub.Assign("review_date", patch.ReviewDate.Format(domain.DateLayout)))
	}
	if patch.URL != nil {
		assignments = append(assignments, ub.Assign("url", *patch.URL))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReview
		}
		if isForeignKeyViolation(err) {
			return domain.ErrScaleNotFound
		}
		return fmt.Errorf("update review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrReviewNotFound
	}
	return nil
}

// Delete removes a single review.
func (r *ReviewRepo) Delete(ctx context.Context, ext sqlx.ExtContext, id int64) error {
	return deleteOne(ctx, ext, `DELETE FROM reviews WHERE id = ?`, id, domain.ErrReviewNotFound)
}

// DeleteByCritic removes every review written by a critic and returns how many were removed.
func (r *ReviewRepo) DeleteByCritic(ctx context.Context, ext sqlx.ExtContext, criticID int64) (int64, error) {
	res, err := ext.ExecContext(ctx, `DELETE FROM reviews WHERE critic_id = ?`, criticID)
	if err != nil {
		return 0, fmt.Errorf("delete reviews by critic: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByFeature removes every review of a feature and returns how many were removed.
func (r *ReviewRepo) DeleteByFeature(ctx context.Context, ext sqlx.ExtContext, featureID int64) (int64, error) {
	res, err := ext.ExecContext(ctx, `DELETE FROM reviews WHERE feature_id = ?`, featureID)
	if err != nil {
		return 0, fmt.Errorf("delete reviews by feature: %w", err)
	}
	return res.RowsAffected()
}

// ListFilter narrows a review listing. Zero fields are ignored.
type ListFilter struct {
	FeatureID int64
	CriticID  int64
	Limit     int
}

// List returns reviews matching the filter, newest review date first.
func (r *ReviewRepo) List(ctx context.Context, q sqlx.QueryerContext, f ListFilter) ([]domain.Review, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(reviewColumns...).From("reviews")
	if f.FeatureID != 0 {
		sb.Where(sb.Equal("feature_id", f.FeatureID))
	}
	if f.CriticID != 0 {
		sb.Where(sb.Equal("critic_id", f.CriticID))
	}
	sb.OrderBy("review_date DESC", "id ASC")
	if f.Limit > 0 {
		sb.Limit(f.Limit)
	}

	query, args := sb.Build()
	var rows []reviewRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		rev, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, nil
}

// FeaturesByCritic returns the distinct features a critic has reviewed.
func (r *ReviewRepo) FeaturesByCritic(ctx context.Context, q sqlx.QueryerContext, criticID int64) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT DISTINCT feature_id FROM reviews WHERE critic_id = ? ORDER BY feature_id`, criticID); err != nil {
		return nil, fmt.Errorf("list features by critic: %w", err)
	}
	return ids, nil
}

// CriticsByFeature returns the distinct critics who reviewed a feature.
func (r *ReviewRepo) CriticsByFeature(ctx context.Context, q sqlx.QueryerContext, featureID int64) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT DISTINCT critic_id FROM reviews WHERE feature_id = ? ORDER BY critic_id`, featureID); err != nil {
		return nil, fmt.Errorf("list critics by feature: %w", err)
	}
	return ids, nil
}
