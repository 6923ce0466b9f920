// Package migrate runs the embedded goose migrations against PostgreSQL.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/myfruitshop/myfruitshop/db/migrations"
)

// Commands accepted by Run.
const (
	CmdUp      = "up"
	CmdDown    = "down"
	CmdStatus  = "status"
	CmdVersion = "version"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	gooseMu   sync.Mutex
)

// Open returns a database/sql handle backed by the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/migrate: open: %w", err)
	}
	return db, nil
}

// Run executes a goose command over the embedded migrations.
func Run(ctx context.Context, db *sql.DB, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("platform/migrate: db is required")
	}
	switch command {
	case CmdUp, CmdDown, CmdStatus, CmdVersion:
	default:
		return fmt.Errorf("platform/migrate: unknown command %q", command)
	}

	// goose keeps its dialect and base FS in package globals.
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/migrate: set dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("platform/migrate: goose %s: %w", command, err)
	}
	return nil
}

// MaybeRunDev applies pending migrations on startup when enabled outside production.
func MaybeRunDev(ctx context.Context, logger *slog.Logger, dsn string, enabled, production bool) error {
	if !enabled || production {
		return nil
	}
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("running migrations (auto)")
	if err := Run(ctx, db, CmdUp); err != nil {
		return err
	}
	logger.Info("migrations completed")
	return nil
}

// Validate checks migration filenames and goose annotations in fsys.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("platform/migrate: read dir: %w", err)
	}
	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("platform/migrate: invalid filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("platform/migrate: duplicate version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("platform/migrate: read %q: %w", name, err)
		}
		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") || !strings.Contains(txt, "-- +goose Down") {
			return fmt.Errorf("platform/migrate: %q must have Up and Down sections", name)
		}
	}
	return nil
}
