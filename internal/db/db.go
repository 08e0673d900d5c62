// Package db provides PostgreSQL storage for optimizer run history.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// DefaultListLimit caps ListRuns when no limit is given
const DefaultListLimit = 50

// ErrIncompleteRun is returned when asked to store a run without all stage outputs.
var ErrIncompleteRun = errors.New("run is missing stage outputs")

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// SaveRun stores a completed run and its four stage outputs in one transaction.
// A run with a missing output is rejected before anything is written.
func (db *DB) SaveRun(ctx context.Context, result *types.RunResult) error {
	if !result.Complete() {
		return ErrIncompleteRun
	}
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}

	profileJSON, err := json.Marshal(result.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO optimizer_runs (id, target_role, model, profile, completed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		result.ID, result.Profile.TargetRole, result.Model, profileJSON, result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, stage := range types.StageNames {
		_, err = tx.Exec(ctx,
			`INSERT INTO stage_outputs (run_id, stage, output) VALUES ($1, $2, $3)`,
			result.ID, stage, result.Results[stage],
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s output: %w", stage, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, target_role, model, created_at, completed_at
		 FROM optimizer_runs ORDER BY completed_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.ID, &run.TargetRole, &run.Model, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves a run with its stage outputs. It returns nil, nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*types.RunResult, error) {
	result := &types.RunResult{ID: runID, Results: make(map[string]string, len(types.StageNames))}
	var profileJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT model, profile, completed_at FROM optimizer_runs WHERE id = $1`,
		runID,
	).Scan(&result.Model, &profileJSON, &result.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if err := json.Unmarshal(profileJSON, &result.Profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT stage, output FROM stage_outputs WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage outputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage, output string
		if err := rows.Scan(&stage, &output); err != nil {
			return nil, fmt.Errorf("failed to scan stage output: %w", err)
		}
		result.Results[stage] = output
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get stage outputs: %w", err)
	}

	return result, nil
}

// DeleteRun deletes a run and its stage outputs (via cascade)
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM optimizer_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
