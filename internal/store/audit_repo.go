package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
)

// AuditRepo handles persistence for AuditRecord entries.
type AuditRepo struct{}

// Record inserts an audit record. An empty ID is filled with a new UUID.
func (r *AuditRepo) Record(ctx context.Context, ext sqlx.ExtContext, rec domain.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DetailJSON == "" {
		rec.DetailJSON = "{}"
	}
	const q = `INSERT INTO mutation_audit (id, operation, review_id, feature_id, critic_id, detail_json, created_at)
VALUES (:id, :operation, :review_id, :feature_id, :critic_id, :detail_json, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, q, rec); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// ListByReview returns all audit records for a review, oldest first.
func (r *AuditRepo) ListByReview(ctx context.Context, q sqlx.QueryerContext, reviewID int64) ([]domain.AuditRecord, error) {
	const query = `SELECT id, operation, review_id, feature_id, critic_id, detail_json, created_at
FROM mutation_audit
WHERE review_id = ?
ORDER BY created_at ASC, rowid ASC`
	var records []domain.AuditRecord
	if err := sqlx.SelectContext(ctx, q, &records, query, reviewID); err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}

// ListRecent returns the newest audit records, up to limit.
func (r *AuditRepo) ListRecent(ctx context.Context, q sqlx.QueryerContext, limit int) ([]domain.AuditRecord, error) {
	const query = `SELECT id, operation, review_id, feature_id, critic_id, detail_json, created_at
FROM mutation_audit
ORDER BY created_at DESC, rowid DESC
LIMIT ?`
	var records []domain.AuditRecord
	if err := sqlx.SelectContext(ctx, q, &records, query, limit); err != nil {
		return nil, fmt.Errorf("list recent audit records: %w", err)
	}
	return records, nil
}
