package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/remote-agent-terminal/ttyclient/internal/model"
)

// AttemptRepository provides data access for journaled connection attempts.
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `id, attempt, url, state, started_at, active_at, closed_at, close_reason, reconnect_delay_ms, preview_line`

// Create inserts a new attempt into the database.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	query := `
		INSERT INTO attempts (id, attempt, url, state, started_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Attempt,
		a.URL,
		a.State,
		a.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id string) (*model.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = ?`

	a, err := scanAttempt(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return a, nil
}

// List retrieves the most recent attempts, newest first. A non-positive
// limit returns every attempt.
func (r *AttemptRepository) List(ctx context.Context, limit int) ([]*model.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts ORDER BY started_at DESC, attempt DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

// MarkActive records that an attempt connected.
func (r *AttemptRepository) MarkActive(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE attempts
		SET state = ?, active_at = ?
		WHERE id = ?
	`

	return r.update(ctx, "mark attempt active", query, model.AttemptStateActive, at.UTC(), id)
}

// MarkClosed records that an attempt ended, why, and the reconnect delay in
// force at that moment.
func (r *AttemptRepository) MarkClosed(ctx context.Context, id string, at time.Time, reason string, reconnectDelay time.Duration) error {
	query := `
		UPDATE attempts
		SET state = ?, closed_at = ?, close_reason = ?, reconnect_delay_ms = ?
		WHERE id = ?
	`

	return r.update(ctx, "mark attempt closed", query,
		model.AttemptStateClosed, at.UTC(), reason, reconnectDelay.Milliseconds(), id)
}

// UpdatePreviewLine updates the preview line of an attempt.
func (r *AttemptRepository) UpdatePreviewLine(ctx context.Context, id string, previewLine string) error {
	query := `
		UPDATE attempts
		SET preview_line = ?
		WHERE id = ?
	`

	return r.update(ctx, "update preview line", query, previewLine, id)
}

func (r *AttemptRepository) update(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrAttemptNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*model.Attempt, error) {
	a := &model.Attempt{}
	var activeAt, closedAt sql.NullTime
	var closeReason, previewLine sql.NullString
	var delayMS int64

	err := row.Scan(
		&a.ID,
		&a.Attempt,
		&a.URL,
		&a.State,
		&a.StartedAt,
		&activeAt,
		&closedAt,
		&closeReason,
		&delayMS,
		&previewLine,
	)
	if err != nil {
		return nil, err
	}

	if activeAt.Valid {
		t := activeAt.Time
		a.ActiveAt = &t
	}

	if closedAt.Valid {
		t := closedAt.Time
		a.ClosedAt = &t
	}

	if closeReason.Valid {
		a.CloseReason = closeReason.String
	}

	if previewLine.Valid {
		a.PreviewLine = previewLine.String
	}

	a.ReconnectDelay = time.Duration(delayMS) * time.Millisecond

	return a, nil
}
