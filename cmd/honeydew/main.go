// Package main is the admin CLI for the HoneyDew review engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/config"
	"github.com/honeydew/review-engine/internal/ledger"
	"github.com/honeydew/review-engine/internal/logging"
	"github.com/honeydew/review-engine/internal/scale"
	"github.com/honeydew/review-engine/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `usage: honeydew [-config path] <command> [flags]

commands:
  migrate       apply pending schema migrations
  seed-scales   insert the default rating scales
  rebuild       recompute every statistics row
  verify        report statistics rows that disagree with the review ledger
  stats         print cached statistics (-title N | -critic N | -outlet N)
`

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", os.Getenv("HONEYDEW_CONFIG"), "path to configuration YAML file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *showVersion {
		fmt.Printf("honeydew %s (commit=%s, built=%s)\n", version, commit, date)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		stop()
		fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string, out io.Writer) error {
	// Opening the database applies pending migrations.
	db, err := store.Open(store.Options{Path: cfg.Database.Path, BusyTimeoutMS: cfg.Database.BusyTimeoutMS})
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd != "seed-scales" && cfg.Scales.SeedDefaults {
		if _, err := seed(ctx, db); err != nil {
			return err
		}
	}

	svc := ledger.NewService(db, cfg.Scales.Fallback)
	log := logging.With().Str("command", cmd).Logger()

	switch cmd {
	case "migrate":
		log.Info().Str("path", cfg.Database.Path).Msg("schema is up to date")
		return nil

	case "seed-scales":
		n, err := seed(ctx, db)
		if err != nil {
			return err
		}
		log.Info().Int("inserted", n).Msg("default rating scales seeded")
		return nil

	case "rebuild":
		n, err := svc.Rebuild(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("keys", n).Msg("statistics rebuilt")
		return nil

	case "verify":
		drift, err := svc.Verify(ctx)
		if err != nil {
			return err
		}
		if err := writeJSON(out, drift); err != nil {
			return err
		}
		if len(drift) > 0 {
			return fmt.Errorf("%d statistics rows drifted; run rebuild", len(drift))
		}
		return nil

	case "stats":
		return stats(ctx, svc, args, out)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func seed(ctx context.Context, db *sqlx.DB) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	n, err := scale.SeedDefaults(ctx, tx, &store.ScaleRepo{})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func stats(ctx context.Context, svc *ledger.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	title := fs.Int64("title", 0, "feature id")
	critic := fs.Int64("critic", 0, "critic id")
	outlet := fs.Int64("outlet", 0, "outlet id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		v   any
		err error
	)
	switch {
	case *title > 0:
		v, err = svc.GetTitleStats(ctx, *title)
	case *critic > 0:
		v, err = svc.GetCriticStats(ctx, *critic)
	case *outlet > 0:
		v, err = svc.GetOutletStats(ctx, *outlet)
	default:
		return fmt.Errorf("stats needs one of -title, -critic or -outlet")
	}
	if err != nil {
		return err
	}
	return writeJSON(out, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatal(err error) {
	logging.Error().Err(err).Msg("honeydew failed")
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
