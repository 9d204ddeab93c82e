// Package scale resolves rating scales and classifies raw scores into recommendations.
package scale

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
	"github.com/honeydew/review-engine/internal/store"
)

// Classify returns UP iff score is at or above threshold.
func Classify(score, threshold float64) domain.Recommendation {
	if score >= threshold {
		return domain.RecommendUp
	}
	return domain.RecommendDown
}

// Registry serves scale thresholds with an in-memory cache.
// Thresholds never change after creation, so entries are only dropped when a scale is deleted.
type Registry struct {
	repo     *store.ScaleRepo
	fallback string

	mu         sync.RWMutex
	thresholds map[int64]float64
	fallbackID int64
}

// NewRegistry creates a Registry. fallback is the description of the scale
// used for reviews submitted without one.
func NewRegistry(repo *store.ScaleRepo, fallback string) *Registry {
	return &Registry{
		repo:       repo,
		fallback:   fallback,
		thresholds: make(map[int64]float64),
	}
}

// Threshold returns the positive threshold of a scale, or ErrScaleNotFound.
func (r *Registry) Threshold(ctx context.Context, q sqlx.QueryerContext, scaleID int64) (float64, error) {
	r.mu.RLock()
	t, ok := r.thresholds[scaleID]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	s, err := r.repo.GetByID(ctx, q, scaleID)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.thresholds[s.ID] = s.PositiveThreshold
	r.mu.Unlock()
	return s.PositiveThreshold, nil
}

// Resolve returns *scaleID, or the fallback scale's ID when scaleID is nil.
func (r *Registry) Resolve(ctx context.Context, q sqlx.QueryerContext, scaleID *int64) (int64, error) {
	if scaleID != nil {
		return *scaleID, nil
	}
	return r.FallbackID(ctx, q)
}

// FallbackID looks up the fallback scale by description.
func (r *Registry) FallbackID(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	r.mu.RLock()
	id := r.fallbackID
	r.mu.RUnlock()
	if id != 0 {
		return id, nil
	}

	s, err := r.repo.GetByDescription(ctx, q, r.fallback)
	if err != nil {
		if errors.Is(err, domain.ErrScaleNotFound) {
			return 0, domain.NewEngineError(domain.ErrScaleNotFound.Code,
				fmt.Sprintf("fallback rating scale %q not found", r.fallback))
		}
		return 0, err
	}

	r.mu.Lock()
	r.fallbackID = s.ID
	r.thresholds[s.ID] = s.PositiveThreshold
	r.mu.Unlock()
	return s.ID, nil
}

// Normalize classifies score against the threshold of scaleID.
func (r *Registry) Normalize(ctx context.Context, q sqlx.QueryerContext, scaleID int64, score float64) (domain.Recommendation, error) {
	t, err := r.Threshold(ctx, q, scaleID)
	if err != nil {
		return "", err
	}
	return Classify(score, t), nil
}

// IsFallback reports whether scaleID is the cached fallback scale.
func (r *Registry) IsFallback(scaleID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallbackID != 0 && r.fallbackID == scaleID
}

// Forget drops a deleted scale from the cache.
func (r *Registry) Forget(scaleID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.thresholds, scaleID)
	if r.fallbackID == scaleID {
		r.fallbackID = 0
	}
}
