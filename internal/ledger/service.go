// Package ledger is the single entry point for review mutations. Each mutation
// runs in one transaction together with the recompute of every statistics key it affects.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/honeydew/review-engine/internal/aggregate"
	"github.com/honeydew/review-engine/internal/domain"
	"github.com/honeydew/review-engine/internal/keylock"
	"github.com/honeydew/review-engine/internal/logging"
	"github.com/honeydew/review-engine/internal/metrics"
	"github.com/honeydew/review-engine/internal/scale"
	"github.com/honeydew/review-engine/internal/store"
)

// Recomputer maintains the statistics caches. *aggregate.Engine is the production implementation.
type Recomputer interface {
	Apply(ctx context.Context, ext sqlx.ExtContext, keys *aggregate.Keys) error
	AllKeys(ctx context.Context, q sqlx.QueryerContext) (*aggregate.Keys, error)
	Verify(ctx context.Context, q sqlx.QueryerContext) ([]domain.Drift, error)
}

// Service applies ledger mutations and serves reads.
type Service struct {
	DB        *sqlx.DB
	Scales    *scale.Registry
	ScaleRepo *store.ScaleRepo
	Catalog   *store.CatalogRepo
	Reviews   *store.ReviewRepo
	Stats     *store.StatsRepo
	Audit     *store.AuditRepo
	Engine    Recomputer
	Locks     *keylock.Locker
	Log       zerolog.Logger
	Now       func() time.Time

	validate *validator.Validate
}

// NewService wires a Service over db. fallbackScale names the scale used for reviews submitted without one.
func NewService(db *sqlx.DB, fallbackScale string) *Service {
	scaleRepo := &store.ScaleRepo{}
	stats := &store.StatsRepo{}
	return &Service{
		DB:        db,
		Scales:    scale.NewRegistry(scaleRepo, fallbackScale),
		ScaleRepo: scaleRepo,
		Catalog:   &store.CatalogRepo{},
		Reviews:   &store.ReviewRepo{},
		Stats:     stats,
		Audit:     &store.AuditRepo{},
		Engine:    aggregate.NewEngine(stats),
		Locks:     keylock.New(),
		Log:       logging.With().Str("component", "ledger").Logger(),
		Now:       time.Now,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// unit is one in-flight mutation.
type unit struct {
	tx      *sqlx.Tx
	keys    *aggregate.Keys
	audit   domain.AuditRecord
	detail  map[string]any
	locks   *keylock.Locker
	release func()
}

// lock records the affected keys and acquires their per-key locks.
// It must be called once, after the keys are known and before the ledger write.
// A second call panics: taking more locks while holding some breaks the sorted lock order.
func (u *unit) lock(keys *aggregate.Keys) {
	if u.release != nil {
		panic("ledger: unit locked twice")
	}
	u.keys.Merge(keys)
	u.release = u.locks.Lock(u.keys.LockNames()...)
}

func (u *unit) unlock() {
	if u.release != nil {
		u.release()
	}
}

// run executes fn inside a transaction, recomputes the keys fn locked, records
// the audit entry and commits. Any error rolls the whole unit back.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context, u *unit) error) (err error) {
	start := time.Now()
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID())
	}

	u := &unit{
		keys:   aggregate.NewKeys(),
		audit:  domain.AuditRecord{Operation: op},
		detail: map[string]any{},
		locks:  s.Locks,
	}
	// Registered first so the locks outlive the rollback or commit below.
	defer u.unlock()
	defer func() {
		metrics.RecordMutation(op, time.Since(start), err)
		s.logResult(ctx, u, err)
	}()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapEngineError(domain.ErrStoreWrite.Code, "begin tx", err)
	}
	defer tx.Rollback()
	u.tx = tx

	if err := fn(ctx, u); err != nil {
		return err
	}

	if err := s.Engine.Apply(ctx, tx, u.keys); err != nil {
		return err
	}

	detail, err := json.Marshal(u.detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}
	u.audit.DetailJSON = string(detail)
	u.audit.CreatedAt = s.Now().Unix()
	if err := s.Audit.Record(ctx, tx, u.audit); err != nil {
		return domain.WrapEngineError(domain.ErrStoreWrite.Code, "record audit", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapEngineError(domain.ErrStoreWrite.Code, "commit", err)
	}
	return nil
}

func (s *Service) logResult(ctx context.Context, u *unit, err error) {
	log := logging.Ctx(ctx, s.Log)
	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = log.Debug()
	case errors.Is(err, domain.ErrRecomputeFailed):
		ev = log.Error().Err(err)
	case isRejection(err):
		ev = log.Info().Err(err)
	default:
		ev = log.Warn().Err(err)
	}
	ev.Str("op", u.audit.Operation).
		Int64("review_id", u.audit.ReviewID).
		Int64("feature_id", u.audit.FeatureID).
		Int64("critic_id", u.audit.CriticID).
		Int("keys", u.keys.Len())
	if err == nil {
		ev.Msg("mutation committed")
		return
	}
	ev.Msg("mutation rolled back")
}

// isRejection reports whether err is a NotFound, Conflict or Constraint error
// raised before anything was written.
func isRejection(err error) bool {
	var ee *domain.EngineError
	if !errors.As(err, &ee) {
		return false
	}
	return ee.Code <= -32010 && ee.Code >= -32069
}

func (s *Service) invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.WrapEngineError(domain.ErrInvalidReview.Code, domain.ErrInvalidReview.Message, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return domain.NewEngineError(domain.ErrInvalidReview.Code, fmt.Sprintf("%s: %v", domain.ErrInvalidReview.Message, problems))
}
