package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
)

// CatalogRepo reads and administers the catalog entities the engine references:
// outlets, critics and features. The engine itself only reads through it; the
// create and delete methods serve setup code and the ledger's cascade handlers.
type CatalogRepo struct{}

type criticRow struct {
	ID          int64  `db:"id"`
	DisplayName string `db:"display_name"`
	OutletID    int64  `db:"outlet_id"`
	IsTopCritic bool   `db:"is_top_critic"`
	JoinedDate  string `db:"joined_date"`
}

func (c criticRow) toDomain() (*domain.Critic, error) {
	out := &domain.Critic{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		OutletID:    c.OutletID,
		IsTopCritic: c.IsTopCritic,
	}
	if c.JoinedDate != "" {
		t, err := time.Parse(domain.DateLayout, c.JoinedDate)
		if err != nil {
			return nil, fmt.Errorf("parse joined_date: %w", err)
		}
		out.JoinedDate = t
	}
	return out, nil
}

// CreateOutlet inserts an outlet and returns its ID.
func (r *CatalogRepo) CreateOutlet(ctx context.Context, ext sqlx.ExtContext, o domain.Outlet) (int64, error) {
	const q = `INSERT INTO outlets (name, country, url) VALUES (?, ?, ?)`
	res, err := ext.ExecContext(ctx, q, o.Name, o.Country, o.URL)
	if err != nil {
		return 0, fmt.Errorf("create outlet: %w", err)
	}
	return res.LastInsertId()
}

// CreateCritic inserts a critic and returns its ID. The outlet must exist.
func (r *CatalogRepo) CreateCritic(ctx context.Context, ext sqlx.ExtContext, c domain.Critic) (int64, error) {
	joined := ""
	if !c.JoinedDate.IsZero() {
		joined = c.JoinedDate.Format(domain.DateLayout)
	}
	const q = `INSERT INTO critics (display_name, outlet_id, is_top_critic, joined_date) VALUES (?, ?, ?, ?)`
	res, err := ext.ExecContext(ctx, q, c.DisplayName, c.OutletID, c.IsTopCritic, joined)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrOutletNotFound
		}
		return 0, fmt.Errorf("create critic: %w", err)
	}
	return res.LastInsertId()
}

// CreateFeature inserts a feature and returns its ID. A non-zero f.ID is kept as the catalog key.
func (r *CatalogRepo) CreateFeature(ctx context.Context, ext sqlx.ExtContext, f domain.Feature) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if f.ID != 0 {
		res, err = ext.ExecContext(ctx, `INSERT INTO features (id, title, release_year) VALUES (?, ?, ?)`, f.ID, f.Title, f.ReleaseYear)
	} else {
		res, err = ext.ExecContext(ctx, `INSERT INTO features (title, release_year) VALUES (?, ?)`, f.Title, f.ReleaseYear)
	}
	if err != nil {
		return 0, fmt.Errorf("create feature: %w", err)
	}
	return res.LastInsertId()
}

// GetCritic retrieves a critic by ID.
func (r *CatalogRepo) GetCritic(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Critic, error) {
	const query = `SELECT id, display_name, outlet_id, is_top_critic, joined_date FROM critics WHERE id = ?`
	var row criticRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCriticNotFound
		}
		return nil, fmt.Errorf("get critic: %w", err)
	}
	return row.toDomain()
}

// GetOutlet retrieves an outlet by ID.
func (r *CatalogRepo) GetOutlet(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Outlet, error) {
	var o domain.Outlet
	if err := sqlx.GetContext(ctx, q, &o, `SELECT id, name, country, url FROM outlets WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutletNotFound
		}
		return nil, fmt.Errorf("get outlet: %w", err)
	}
	return &o, nil
}

// CriticExists reports whether a critic with the given ID exists.
func (r *CatalogRepo) CriticExists(ctx context.Context, q sqlx.QueryerContext, id int64) (bool, error) {
	return exists(ctx, q, `SELECT EXISTS(SELECT 1 FROM critics WHERE id = ?)`, id)
}

// FeatureExists reports whether a feature with the given ID exists.
func (r *CatalogRepo) FeatureExists(ctx context.Context, q sqlx.QueryerContext, id int64) (bool, error) {
	return exists(ctx, q, `SELECT EXISTS(SELECT 1 FROM features WHERE id = ?)`, id)
}

// OutletExists reports whether an outlet with the given ID exists.
func (r *CatalogRepo) OutletExists(ctx context.Context, q sqlx.QueryerContext, id int64) (bool, error) {
	return exists(ctx, q, `SELECT EXISTS(SELECT 1 FROM outlets WHERE id = ?)`, id)
}

// OutletOf returns the outlet a critic currently writes for.
func (r *CatalogRepo) OutletOf(ctx context.Context, q sqlx.QueryerContext, criticID int64) (int64, error) {
	var outletID int64
	if err := sqlx.GetContext(ctx, q, &outletID, `SELECT outlet_id FROM critics WHERE id = ?`, criticID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrCriticNotFound
		}
		return 0, fmt.Errorf("get outlet of critic: %w", err)
	}
	return outletID, nil
}

// CountCritics returns the number of critics at an outlet.
func (r *CatalogRepo) CountCritics(ctx context.Context, q sqlx.QueryerContext, outletID int64) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM critics WHERE outlet_id = ?`, outletID); err != nil {
		return 0, fmt.Errorf("count critics: %w", err)
	}
	return n, nil
}

// DeleteCritic removes a critic row. Reviews cascade at the schema level.
func (r *CatalogRepo) DeleteCritic(ctx context.Context, ext sqlx.ExtContext, id int64) error {
	return deleteOne(ctx, ext, `DELETE FROM critics WHERE id = ?`, id, domain.ErrCriticNotFound)
}

// DeleteFeature removes a feature row. Reviews cascade at the schema level.
func (r *CatalogRepo) DeleteFeature(ctx context.Context, ext sqlx.ExtContext, id int64) error {
	return deleteOne(ctx, ext, `DELETE FROM features WHERE id = ?`, id, domain.ErrFeatureNotFound)
}

// DeleteOutlet removes an outlet row. The foreign key blocks the delete while critics reference it.
func (r *CatalogRepo) DeleteOutlet(ctx context.Context, ext sqlx.ExtContext, id int64) error {
	err := deleteOne(ctx, ext, `DELETE FROM outlets WHERE id = ?`, id, domain.ErrOutletNotFound)
	if isForeignKeyViolation(err) {
		return domain.ErrOutletInUse
	}
	return err
}

func exists(ctx context.Context, q sqlx.QueryerContext, query string, id int64) (bool, error) {
	var ok bool
	if err := sqlx.GetContext(ctx, q, &ok, query, id); err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return ok, nil
}

func deleteOne(ctx context.Context, ext sqlx.ExtContext, query string, id int64, notFound error) error {
	res, err := ext.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
