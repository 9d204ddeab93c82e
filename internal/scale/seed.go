package scale

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
	"github.com/honeydew/review-engine/internal/store"
)

// Defaults are the standard scoring schemes.
var Defaults = []domain.RatingScale{
	{Description: "Thumbs", PositiveThreshold: 1},
	{Description: "Five-star", PositiveThreshold: 3.5},
	{Description: "Ten-point", PositiveThreshold: 6},
	{Description: "Percentage", PositiveThreshold: 60},
	{Description: "Four-star", PositiveThreshold: 2.5},
}

// SeedDefaults creates any default scale that does not exist yet and returns how many it created.
func SeedDefaults(ctx context.Context, ext sqlx.ExtContext, repo *store.ScaleRepo) (int, error) {
	created := 0
	for _, s := range Defaults {
		_, err := repo.GetByDescription(ctx, ext, s.Description)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrScaleNotFound) {
			return created, err
		}
		if _, err := repo.Create(ctx, ext, s.Description, s.PositiveThreshold); err != nil {
			return created, fmt.Errorf("seed scale %q: %w", s.Description, err)
		}
		created++
	}
	return created, nil
}
