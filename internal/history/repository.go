package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/building-data/internal/importer"
	"github.com/nerrad567/building-data/internal/infrastructure/database"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Repository stores runs in the import_runs table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a repository on a migrated database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, origin, started_at, finished_at, sources, summary, error`

// Save inserts the run. Saving an ID twice replaces the earlier row.
func (r *Repository) Save(ctx context.Context, run Run) error {
	if run.ID == uuid.Nil || run.StartedAt.IsZero() || run.FinishedAt.IsZero() {
		return fmt.Errorf("%w: id and timestamps are required", ErrInvalidRun)
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	var runErr sql.NullString
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO import_runs
			(id, origin, started_at, finished_at, status, sources, buildings, dropped, warnings, summary, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.Origin,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Status(),
		run.Sources,
		run.Summary.Imported,
		len(run.Summary.Dropped),
		len(run.Summary.Warnings),
		string(summary),
		runErr,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with the given ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM import_runs WHERE id = ?`, id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// List returns up to limit runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM import_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent successful run.
func (r *Repository) Latest(ctx context.Context) (Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM import_runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`, StatusOK)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run               Run
		id                string
		started, finished string
		summary           string
		runErr            sql.NullString
	)
	if err := s.Scan(&id, &run.Origin, &started, &finished, &run.Sources, &summary, &runErr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}

	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("run id %q: %w", id, err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("run %s started_at: %w", id, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("run %s finished_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return Run{}, fmt.Errorf("run %s summary: %w", id, err)
	}
	if run.Summary.Dropped == nil {
		run.Summary.Dropped = []importer.Drop{}
	}
	if run.Summary.Warnings == nil {
		run.Summary.Warnings = []importer.Warning{}
	}
	run.Error = runErr.String
	return run, nil
}
