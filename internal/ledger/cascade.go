package ledger

import (
	"context"
	"errors"

	"github.com/honeydew/review-engine/internal/aggregate"
	"github.com/honeydew/review-engine/internal/domain"
)

// RemoveByCritic removes every review a critic wrote and returns how many were removed.
func (s *Service) RemoveByCritic(ctx context.Context, criticID int64) (int64, error) {
	var n int64
	err := s.run(ctx, "remove_by_critic", func(ctx context.Context, u *unit) error {
		var err error
		n, err = s.removeCriticReviews(ctx, u, criticID)
		return err
	})
	return n, err
}

// RemoveByFeature removes every review of a feature and returns how many were removed.
func (s *Service) RemoveByFeature(ctx context.Context, featureID int64) (int64, error) {
	var n int64
	err := s.run(ctx, "remove_by_feature", func(ctx context.Context, u *unit) error {
		var err error
		n, err = s.removeFeatureReviews(ctx, u, featureID)
		return err
	})
	return n, err
}

// OnCriticDeleted deletes a critic together with its reviews. Every title it
// reviewed is recomputed, its own stats row is removed and its outlet is recomputed.
func (s *Service) OnCriticDeleted(ctx context.Context, criticID int64) error {
	return s.run(ctx, "delete_critic", func(ctx context.Context, u *unit) error {
		if _, err := s.removeCriticReviews(ctx, u, criticID); err != nil {
			return err
		}
		return s.Catalog.DeleteCritic(ctx, u.tx, criticID)
	})
}

// OnFeatureDeleted deletes a feature together with its reviews. Its stats row
// is removed and every critic and outlet that reviewed it is recomputed.
func (s *Service) OnFeatureDeleted(ctx context.Context, featureID int64) error {
	return s.run(ctx, "delete_feature", func(ctx context.Context, u *unit) error {
		if _, err := s.removeFeatureReviews(ctx, u, featureID); err != nil {
			return err
		}
		return s.Catalog.DeleteFeature(ctx, u.tx, featureID)
	})
}

// OnOutletDeleted deletes an outlet. It is rejected with ErrOutletInUse while critics reference it.
func (s *Service) OnOutletDeleted(ctx context.Context, outletID int64) error {
	return s.run(ctx, "delete_outlet", func(ctx context.Context, u *unit) error {
		u.detail["outlet_id"] = outletID

		ok, err := s.Catalog.OutletExists(ctx, u.tx, outletID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOutletNotFound
		}
		n, err := s.Catalog.CountCritics(ctx, u.tx, outletID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrOutletInUse
		}

		keys := aggregate.NewKeys()
		keys.AddOutlet(outletID)
		u.lock(keys)

		return s.Catalog.DeleteOutlet(ctx, u.tx, outletID)
	})
}

// DeleteScale deletes a rating scale. It is rejected with ErrScaleInUse while
// reviews use it, and for the fallback scale.
func (s *Service) DeleteScale(ctx context.Context, scaleID int64) error {
	err := s.run(ctx, "delete_scale", func(ctx context.Context, u *unit) error {
		u.detail["scale_id"] = scaleID

		if _, err := s.ScaleRepo.GetByID(ctx, u.tx, scaleID); err != nil {
			return err
		}
		n, err := s.ScaleRepo.CountReviews(ctx, u.tx, scaleID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrScaleInUse
		}
		fallback, err := s.Scales.FallbackID(ctx, u.tx)
		if err != nil && !errors.Is(err, domain.ErrScaleNotFound) {
			return err
		}
		if fallback == scaleID {
			return domain.NewEngineError(domain.ErrScaleInUse.Code, "rating scale is the configured fallback")
		}
		return s.ScaleRepo.Delete(ctx, u.tx, scaleID)
	})
	if err == nil {
		s.Scales.Forget(scaleID)
	}
	return err
}

func (s *Service) removeCriticReviews(ctx context.Context, u *unit, criticID int64) (int64, error) {
	u.audit.CriticID = criticID

	features, err := s.Reviews.FeaturesByCritic(ctx, u.tx, criticID)
	if err != nil {
		return 0, err
	}
	// Also rejects an unknown critic with ErrCriticNotFound.
	keys, err := aggregate.CriticRemovalKeys(ctx, u.tx, s.Catalog, criticID, features)
	if err != nil {
		return 0, err
	}
	u.lock(keys)

	n, err := s.Reviews.DeleteByCritic(ctx, u.tx, criticID)
	if err != nil {
		return 0, err
	}
	u.detail["reviews_removed"] = n
	return n, nil
}

func (s *Service) removeFeatureReviews(ctx context.Context, u *unit, featureID int64) (int64, error) {
	u.audit.FeatureID = featureID

	if err := s.requireFeature(ctx, u, featureID); err != nil {
		return 0, err
	}
	critics, err := s.Reviews.CriticsByFeature(ctx, u.tx, featureID)
	if err != nil {
		return 0, err
	}
	keys, err := aggregate.FeatureRemovalKeys(ctx, u.tx, s.Catalog, featureID, critics)
	if err != nil {
		return 0, err
	}
	u.lock(keys)

	n, err := s.Reviews.DeleteByFeature(ctx, u.tx, featureID)
	if err != nil {
		return 0, err
	}
	u.detail["reviews_removed"] = n
	return n, nil
}
