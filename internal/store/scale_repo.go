package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
)

// ScaleRepo handles persistence for RatingScale records.
type ScaleRepo struct{}

// Create inserts a new rating scale and returns its ID.
func (r *ScaleRepo) Create(ctx context.Context, ext sqlx.ExtContext, description string, threshold float64) (int64, error) {
	const q = `INSERT INTO rating_scales (description, positive_threshold) VALUES (?, ?)`
	res, err := ext.ExecContext(ctx, q, description, threshold)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateScale
		}
		return 0, fmt.Errorf("create rating scale: %w", err)
	}
	return res.LastInsertId()
}

// GetByID retrieves a rating scale by its ID.
func (r *ScaleRepo) GetByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.RatingScale, error) {
	const query = `SELECT id, description, positive_threshold FROM rating_scales WHERE id = ?`
	var s domain.RatingScale
	if err := sqlx.GetContext(ctx, q, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScaleNotFound
		}
		return nil, fmt.Errorf("get rating scale: %w", err)
	}
	return &s, nil
}

// GetByDescription retrieves a rating scale by its unique description.
func (r *ScaleRepo) GetByDescription(ctx context.Context, q sqlx.QueryerContext, description string) (*domain.RatingScale, error) {
	const query = `SELECT id, description, positive_threshold FROM rating_scales WHERE description = ?`
	var s domain.RatingScale
	if err := sqlx.GetContext(ctx, q, &s, query, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScaleNotFound
		}
		return nil, fmt.Errorf("get rating scale by description: %w", err)
	}
	return &s, nil
}

// List returns all rating scales ordered by ID.
func (r *ScaleRepo) List(ctx context.Context, q sqlx.QueryerContext) ([]domain.RatingScale, error) {
	const query = `SELECT id, description, positive_threshold FROM rating_scales ORDER BY id ASC`
	var scales []domain.RatingScale
	if err := sqlx.SelectContext(ctx, q, &scales, query); err != nil {
		return nil, fmt.Errorf("list rating scales: %w", err)
	}
	return scales, nil
}

// CountReviews returns the number of reviews scored on the given scale.
func (r *ScaleRepo) CountReviews(ctx context.Context, q sqlx.QueryerContext, id int64) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM reviews WHERE scale_id = ?`, id); err != nil {
		return 0, fmt.Errorf("count reviews by scale: %w", err)
	}
	return n, nil
}

// Delete removes a rating scale. The foreign key blocks the delete while reviews reference it.
func (r *ScaleRepo) Delete(ctx context.Context, ext sqlx.ExtContext, id int64) error {
	res, err := ext.ExecContext(ctx, `DELETE FROM rating_scales WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrScaleInUse
		}
		return fmt.Errorf("delete rating scale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrScaleNotFound
	}
	return nil
}
