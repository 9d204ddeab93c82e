package ledger

import (
	"context"
	"errors"

	"github.com/honeydew/review-engine/internal/aggregate"
	"github.com/honeydew/review-engine/internal/domain"
	"github.com/honeydew/review-engine/internal/store"
)

// AddReview records a new review. A nil ScaleID selects the fallback scale.
// The recommendation is derived from the score and the scale threshold.
func (s *Service) AddReview(ctx context.Context, in domain.NewReview) (int64, error) {
	if err := s.validate.Struct(in); err != nil {
		return 0, s.invalid(err)
	}

	var id int64
	err := s.run(ctx, "add_review", func(ctx context.Context, u *unit) error {
		u.audit.FeatureID, u.audit.CriticID = in.FeatureID, in.CriticID

		scaleID, err := s.Scales.Resolve(ctx, u.tx, in.ScaleID)
		if err != nil {
			return err
		}
		rec, err := s.Scales.Normalize(ctx, u.tx, scaleID, in.NumericScore)
		if err != nil {
			return err
		}
		if err := s.requireFeature(ctx, u, in.FeatureID); err != nil {
			return err
		}

		rev := domain.Review{
			FeatureID:      in.FeatureID,
			CriticID:       in.CriticID,
			ScaleID:        scaleID,
			NumericScore:   in.NumericScore,
			Recommendation: rec,
			ReviewDate:     in.ReviewDate,
			URL:            in.URL,
		}
		// Fails with ErrCriticNotFound for an unknown critic.
		keys, err := aggregate.ReviewKeys(ctx, u.tx, s.Catalog, rev)
		if err != nil {
			return err
		}
		u.lock(keys)

		id, err = s.Reviews.Insert(ctx, u.tx, rev)
		if err != nil {
			s.forgetMissingScale(err, scaleID)
			return err
		}
		u.audit.ReviewID = id
		u.detail["scale_id"] = scaleID
		u.detail["score"] = in.NumericScore
		u.detail["recommendation"] = rec
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateReview applies patch to a review. The recommendation is always
// reclassified against the resulting score and scale.
// An unknown review is reported as ErrReviewNotFound before an empty patch is rejected.
func (s *Service) UpdateReview(ctx context.Context, reviewID int64, patch domain.ReviewPatch) error {
	if err := s.validate.Struct(patch); err != nil {
		return s.invalid(err)
	}

	return s.run(ctx, "update_review", func(ctx context.Context, u *unit) error {
		u.audit.ReviewID = reviewID

		old, err := s.Reviews.GetByID(ctx, u.tx, reviewID)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return domain.ErrEmptyPatch
		}
		next := patch.Apply(*old)
		u.audit.FeatureID, u.audit.CriticID = next.FeatureID, next.CriticID

		if next.FeatureID != old.FeatureID {
			if err := s.requireFeature(ctx, u, next.FeatureID); err != nil {
				return err
			}
		}
		rec, err := s.Scales.Normalize(ctx, u.tx, next.ScaleID, next.NumericScore)
		if err != nil {
			return err
		}

		// For an identity change the old and new keys are both affected.
		keys, err := aggregate.ReviewKeys(ctx, u.tx, s.Catalog, *old, next)
		if err != nil {
			return err
		}
		u.lock(keys)

		if err := s.Reviews.Update(ctx, u.tx, reviewID, patch, rec); err != nil {
			s.forgetMissingScale(err, next.ScaleID)
			return err
		}
		u.detail["identity_changed"] = patch.ChangesIdentity(*old)
		u.detail["recommendation"] = rec
		if rec != old.Recommendation {
			u.detail["previous_recommendation"] = old.Recommendation
		}
		return nil
	})
}

// DeleteReview removes a review.
func (s *Service) DeleteReview(ctx context.Context, reviewID int64) error {
	return s.run(ctx, "remove_review", func(ctx context.Context, u *unit) error {
		u.audit.ReviewID = reviewID

		old, err := s.Reviews.GetByID(ctx, u.tx, reviewID)
		if err != nil {
			return err
		}
		u.audit.FeatureID, u.audit.CriticID = old.FeatureID, old.CriticID

		keys, err := aggregate.ReviewKeys(ctx, u.tx, s.Catalog, *old)
		if err != nil {
			return err
		}
		u.lock(keys)

		if err := s.Reviews.Delete(ctx, u.tx, reviewID); err != nil {
			return err
		}
		u.detail["recommendation"] = old.Recommendation
		return nil
	})
}

// forgetMissingScale drops a cached threshold once the store reports its scale gone,
// which happens when the scale was deleted outside this Service.
func (s *Service) forgetMissingScale(err error, scaleID int64) {
	if errors.Is(err, domain.ErrScaleNotFound) {
		s.Scales.Forget(scaleID)
	}
}

func (s *Service) requireFeature(ctx context.Context, u *unit, featureID int64) error {
	ok, err := s.Catalog.FeatureExists(ctx, u.tx, featureID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrFeatureNotFound
	}
	return nil
}

// GetReview returns one review.
func (s *Service) GetReview(ctx context.Context, reviewID int64) (*domain.Review, error) {
	return s.Reviews.GetByID(ctx, s.DB, reviewID)
}

// ListReviewsByFeature returns the reviews of a feature, newest first. limit <= 0 returns all.
func (s *Service) ListReviewsByFeature(ctx context.Context, featureID int64, limit int) ([]domain.Review, error) {
	return s.Reviews.List(ctx, s.DB, store.ListFilter{FeatureID: featureID, Limit: limit})
}

// ListReviewsByCritic returns the reviews written by a critic, newest first. limit <= 0 returns all.
func (s *Service) ListReviewsByCritic(ctx context.Context, criticID int64, limit int) ([]domain.Review, error) {
	return s.Reviews.List(ctx, s.DB, store.ListFilter{CriticID: criticID, Limit: limit})
}

// GetTitleStats returns the cached stats of a feature, or ErrStatsNotFound when it has no reviews.
func (s *Service) GetTitleStats(ctx context.Context, featureID int64) (*domain.TitleStats, error) {
	return s.Stats.GetTitle(ctx, s.DB, featureID)
}

// GetCriticStats returns the cached stats of a critic, or ErrStatsNotFound when it has no reviews.
func (s *Service) GetCriticStats(ctx context.Context, criticID int64) (*domain.CriticStats, error) {
	return s.Stats.GetCritic(ctx, s.DB, criticID)
}

// GetOutletStats returns the cached stats of an outlet, or ErrStatsNotFound when its critics have no reviews.
func (s *Service) GetOutletStats(ctx context.Context, outletID int64) (*domain.OutletStats, error) {
	return s.Stats.GetOutlet(ctx, s.DB, outletID)
}
