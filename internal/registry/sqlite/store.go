// Package sqlite implements the team and model registry on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/forecast-submission-gateway/internal/registry"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry/sqlite/migrations"
)

// Store is a SQLite-backed registry.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string, clock clockwork.Clock) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("registry path is required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS, clock.Now); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, clock: clock}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register adds model to team, creating the team on first use. Registering
// an existing pair is a no-op. A team may hold at most
// registry.MaxModelsPerTeam models.
func (s *Store) Register(ctx context.Context, team, model string) error {
	team, model = registry.NormalizeName(team), registry.NormalizeName(model)
	if team == "" || model == "" {
		return registry.ErrInvalidName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clock.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teams (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		team, now,
	); err != nil {
		return fmt.Errorf("register team: %w", err)
	}

	var exists, count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(name = ?), 0), COUNT(*) FROM models WHERE team = ?`,
		model, team,
	).Scan(&exists, &count); err != nil {
		return fmt.Errorf("count models: %w", err)
	}
	if exists > 0 {
		return tx.Commit()
	}
	if count >= registry.MaxModelsPerTeam {
		return fmt.Errorf("team %q has %d models: %w", team, count, registry.ErrModelLimit)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO models (team, name, created_at) VALUES (?, ?, ?)`,
		team, model, now,
	); err != nil {
		return fmt.Errorf("register model: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}
	return nil
}

func (s *Store) CheckRegistered(ctx context.Context, team, model string) error {
	team, model = registry.NormalizeName(team), registry.NormalizeName(model)
	var teamFound, modelFound int
	err := s.db.QueryRowContext(ctx, `
SELECT
    EXISTS(SELECT 1 FROM teams WHERE name = ?),
    EXISTS(SELECT 1 FROM models WHERE team = ? AND name = ?)`,
		team, team, model,
	).Scan(&teamFound, &modelFound)
	if err != nil {
		return fmt.Errorf("check registration: %w", err)
	}
	if teamFound == 0 {
		return fmt.Errorf("team %q: %w", team, registry.ErrNotRegistered)
	}
	if modelFound == 0 {
		return fmt.Errorf("model %q for team %q: %w", model, team, registry.ErrNotRegistered)
	}
	return nil
}

// Models lists a team's models in registration order.
func (s *Store) Models(ctx context.Context, team string) ([]string, error) {
	team = registry.NormalizeName(team)
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM models WHERE team = ? ORDER BY created_at, name`, team)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
