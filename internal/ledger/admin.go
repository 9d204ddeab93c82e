package ledger

import (
	"context"

	"github.com/honeydew/review-engine/internal/domain"
)

// Rebuild recomputes every statistics key in one transaction and returns how many keys it visited.
// It repairs caches after edits made outside the ledger.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	var n int
	err := s.run(ctx, "rebuild", func(ctx context.Context, u *unit) error {
		keys, err := s.Engine.AllKeys(ctx, u.tx)
		if err != nil {
			return err
		}
		u.lock(keys)
		n = keys.Len()
		u.detail["keys"] = n
		return nil
	})
	return n, err
}

// Verify compares every cached row with a fresh recompute and returns the rows that differ.
// It writes nothing.
func (s *Service) Verify(ctx context.Context) ([]domain.Drift, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrStoreQuery.Code, "begin tx", err)
	}
	defer tx.Rollback()

	drift, err := s.Engine.Verify(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(drift) > 0 {
		s.Log.Warn().Int("rows", len(drift)).Msg("statistics drift detected")
	}
	return drift, nil
}
