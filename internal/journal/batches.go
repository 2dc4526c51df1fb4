package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Outcome is how a batch run ended.
type Outcome string

const (
	OutcomeRunning      Outcome = "running"
	OutcomeCompleted    Outcome = "completed"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeError        Outcome = "error"
	OutcomeCeiling      Outcome = "ceiling"
	OutcomeAbandoned    Outcome = "abandoned"
	OutcomeSubmitFailed Outcome = "submit_failed"
	OutcomeInterrupted  Outcome = "interrupted"
)

// Batch is one journaled run.
type Batch struct {
	ID           string
	SessionID    string
	Kind         string
	TotalTasks   int
	Outcome      Outcome
	FinalStatus  string
	Attempts     int
	ProgressText string
	ErrorMessage string
	StartedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
	Tasks        []string
}

// Duration returns how long the batch ran, or has been running.
func (b Batch) Duration(now time.Time) time.Duration {
	end := now
	if b.FinishedAt != nil {
		end = *b.FinishedAt
	}
	if end.Before(b.StartedAt) {
		return 0
	}
	return end.Sub(b.StartedAt)
}

// ErrNotFound is returned for unknown batch ids.
var ErrNotFound = errors.New("batch not found")

const batchColumns = "id, session_id, kind, total_tasks, outcome, final_status, attempts, progress_text, error_message, started_at, updated_at, finished_at"

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func nowText() string { return formatTime(time.Now()) }

// Start records a new running batch together with its tasks.
func (s *Store) Start(ctx context.Context, b Batch) error {
	now := nowText()
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, session_id, kind, total_tasks, outcome, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.SessionID, b.Kind, b.TotalTasks, OutcomeRunning, now, now,
		); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for i, task := range b.Tasks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO batch_tasks (batch_id, position, task) VALUES (?, ?, ?)`,
				b.ID, i, task,
			); err != nil {
				return fmt.Errorf("insert batch task: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Progress updates the attempt count and progress text of a running batch.
func (s *Store) Progress(ctx context.Context, id string, attempts int, text string) error {
	_, err := s.exec(ctx,
		`UPDATE batches SET attempts = ?, progress_text = ?, updated_at = ? WHERE id = ? AND outcome = ?`,
		attempts, text, nowText(), id, OutcomeRunning,
	)
	if err != nil {
		return fmt.Errorf("update batch progress: %w", err)
	}
	return nil
}

// Finish closes a batch with its outcome.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome, finalStatus, message string) error {
	now := nowText()
	_, err := s.exec(ctx,
		`UPDATE batches SET outcome = ?, final_status = ?, error_message = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		outcome, finalStatus, message, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

// Get loads a batch and its tasks.
func (s *Store) Get(ctx context.Context, id string) (Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Batch{}, fmt.Errorf("get batch: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT task FROM batch_tasks WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return Batch{}, fmt.Errorf("list batch tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var task string
		if err := rows.Scan(&task); err != nil {
			return Batch{}, err
		}
		b.Tasks = append(b.Tasks, task)
	}
	return b, rows.Err()
}

// List returns the most recent batches, newest first. An empty sessionID
// lists every session.
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + batchColumns + ` FROM batches`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkInterrupted closes batches left running by a process that exited
// without finishing them. It returns how many were closed.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	now := nowText()
	res, err := s.exec(ctx,
		`UPDATE batches SET outcome = ?, updated_at = ?, finished_at = ? WHERE outcome = ?`,
		OutcomeInterrupted, now, now, OutcomeRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted batches: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished batches started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx,
		`DELETE FROM batches WHERE outcome != ? AND started_at < ?`,
		OutcomeRunning, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune batches: %w", err)
	}
	return res.RowsAffected()
}

func scanBatch(scanner interface{ Scan(dest ...any) error }) (Batch, error) {
	var (
		b                  Batch
		outcome            string
		startedRaw, updRaw string
		finishedRaw        sql.NullString
	)
	if err := scanner.Scan(
		&b.ID, &b.SessionID, &b.Kind, &b.TotalTasks, &outcome, &b.FinalStatus,
		&b.Attempts, &b.ProgressText, &b.ErrorMessage, &startedRaw, &updRaw, &finishedRaw,
	); err != nil {
		return Batch{}, err
	}
	b.Outcome = Outcome(outcome)
	b.StartedAt = parseTime(startedRaw)
	b.UpdatedAt = parseTime(updRaw)
	if finishedRaw.Valid && finishedRaw.String != "" {
		t := parseTime(finishedRaw.String)
		b.FinishedAt = &t
	}
	return b, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
