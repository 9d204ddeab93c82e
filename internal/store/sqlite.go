// Package store provides SQLite-backed persistence for the review aggregation engine.
package store

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/honeydew/review-engine/internal/domain"
	"github.com/honeydew/review-engine/internal/logging"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Options controls how the database is opened.
type Options struct {
	Path          string
	BusyTimeoutMS int
}

// NewDB opens a SQLite database at the given path with recommended pragmas
// and applies all pending migrations.
func NewDB(path string) (*sqlx.DB, error) {
	return Open(Options{Path: path})
}

// Open opens the database described by opts and migrates it to the latest version.
func Open(opts Options) (*sqlx.DB, error) {
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
		opts.Path, opts.BusyTimeoutMS)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// migrationLogger adapts zerolog to the migrate.Logger interface.
type migrationLogger struct {
	log zerolog.Logger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.log.Debug().Msgf(format, v...)
}

func (l migrationLogger) Verbose() bool {
	return l.log.GetLevel() <= zerolog.DebugLevel
}

// Migrate applies the embedded migrations. Running it on an up-to-date database is a no-op.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return domain.WrapEngineError(domain.ErrSchemaMigration.Code, "load migrations", err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return domain.WrapEngineError(domain.ErrSchemaMigration.Code, "init migration driver", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return domain.WrapEngineError(domain.ErrSchemaMigration.Code, "init migrator", err)
	}
	// m.Close would also close db, which the caller owns.
	defer src.Close()

	log := logging.With().Str("component", "migrate").Logger()
	m.Log = migrationLogger{log: log}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, _ := m.Version()
		log.Error().Err(err).Uint("version", version).Bool("dirty", dirty).Msg("migration failed")
		return domain.WrapEngineError(domain.ErrSchemaMigration.Code, "apply migrations", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY constraint failure.
func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
