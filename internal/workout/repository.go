package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/recoverfit/internal/ptr"
	"github.com/myrjola/recoverfit/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteRepository stores sessions together with their exercises and sets.
type sqliteRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newSQLiteRepository(db *sqlite.Database, logger *slog.Logger) *sqliteRepository {
	return &sqliteRepository{db: db, logger: logger}
}

// Create inserts a new session.
func (r *sqliteRepository) Create(ctx context.Context, sess Session) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.write(ctx, tx, sess)
	})
}

// Get loads a session with its exercises and sets.
func (r *sqliteRepository) Get(ctx context.Context, id string) (Session, error) {
	return r.load(ctx, r.db.ReadOnly, id)
}

// List returns the most recently started sessions first.
func (r *sqliteRepository) List(ctx context.Context, limit int) (_ []Session, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id
		FROM workout_sessions
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		var sess Session
		if sess, err = r.load(ctx, r.db.ReadOnly, id); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Update loads the session, applies updateFn and writes the result back in a single transaction. Nothing is written
// when updateFn reports no change. The returned session reflects the update.
func (r *sqliteRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(sess *Session) (bool, error),
) (Session, error) {
	var sess Session
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if sess, err = r.load(ctx, tx, id); err != nil {
			return err
		}
		updated, err := updateFn(&sess)
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM workout_sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return r.write(ctx, tx, sess)
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// CountCompletedSince counts the sessions completed at or after since.
func (r *sqliteRepository) CountCompletedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT count(*)
		FROM workout_sessions
		WHERE completed_at IS NOT NULL AND completed_at >= ?`, formatTimestamp(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed sessions: %w", err)
	}
	return count, nil
}

func (r *sqliteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := r.db.WithTx(ctx, fn); err != nil {
		return fmt.Errorf("session transaction: %w", err)
	}
	return nil
}

func (r *sqliteRepository) write(ctx context.Context, q querier, sess Session) error {
	var completedAt sql.NullString
	if sess.IsCompleted() {
		completedAt = sql.NullString{String: formatTimestamp(sess.CompletedAt), Valid: true}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO workout_sessions (id, name, reasoning, from_fallback, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.Reasoning, sess.FromFallback, formatTimestamp(sess.StartedAt), completedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for position, ex := range sess.Exercises {
		_, err = q.ExecContext(ctx, `
			INSERT INTO session_exercises (session_id, id, position, name, muscle_group, equipment, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, ex.ID, position, ex.Name, ex.MuscleGroup, ex.Equipment, ex.Notes)
		if err != nil {
			return fmt.Errorf("insert exercise %s: %w", ex.ID, err)
		}
		for _, set := range ex.Sets {
			_, err = q.ExecContext(ctx, `
				INSERT INTO exercise_sets (
					session_id, exercise_id, set_number, set_type, target_reps,
					weight_kg, completed_reps, completed, rest_seconds
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sess.ID, ex.ID, set.SetNumber, set.Type, set.TargetReps,
				set.WeightKg, set.CompletedReps, set.Completed, set.RestSeconds)
			if err != nil {
				return fmt.Errorf("insert set %s: %w", set.ID, err)
			}
		}
	}
	return nil
}

func (r *sqliteRepository) load(ctx context.Context, q querier, id string) (Session, error) {
	var (
		sess        Session
		startedAt   string
		completedAt sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, name, reasoning, from_fallback, started_at, completed_at
		FROM workout_sessions
		WHERE id = ?`, id).Scan(&sess.ID, &sess.Name, &sess.Reasoning, &sess.FromFallback, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("query session: %w", err)
	}
	if sess.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	if completedAt.Valid {
		if sess.CompletedAt, err = parseTimestamp(completedAt.String); err != nil {
			return Session{}, fmt.Errorf("parse completed_at: %w", err)
		}
	}

	if sess.Exercises, err = r.loadExercises(ctx, q, id); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (r *sqliteRepository) loadExercises(ctx context.Context, q querier, sessionID string) (_ []Exercise, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT e.id, e.name, e.muscle_group, e.equipment, e.notes,
		       s.set_number, s.set_type, s.target_reps, s.weight_kg, s.completed_reps, s.completed, s.rest_seconds
		FROM session_exercises e
		LEFT JOIN exercise_sets s ON s.session_id = e.session_id AND s.exercise_id = e.id
		WHERE e.session_id = ?
		ORDER BY e.position, s.set_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	exercises := []Exercise{}
	for rows.Next() {
		var (
			ex            Exercise
			setNumber     sql.NullInt64
			setType       sql.NullString
			targetReps    sql.NullInt64
			weightKg      sql.NullFloat64
			completedReps sql.NullInt64
			completed     sql.NullBool
			restSeconds   sql.NullInt64
		)
		if err = rows.Scan(&ex.ID, &ex.Name, &ex.MuscleGroup, &ex.Equipment, &ex.Notes,
			&setNumber, &setType, &targetReps, &weightKg, &completedReps, &completed, &restSeconds); err != nil {
			return nil, fmt.Errorf("scan exercise set: %w", err)
		}
		if len(exercises) == 0 || exercises[len(exercises)-1].ID != ex.ID {
			ex.Sets = []Set{}
			exercises = append(exercises, ex)
		}
		if !setNumber.Valid {
			continue
		}
		current := &exercises[len(exercises)-1]
		set := Set{
			ID:            setID(current.ID, int(setNumber.Int64)),
			SetNumber:     int(setNumber.Int64),
			Type:          SetType(setType.String),
			TargetReps:    int(targetReps.Int64),
			WeightKg:      nil,
			CompletedReps: nil,
			Completed:     completed.Bool,
			RestSeconds:   int(restSeconds.Int64),
		}
		if weightKg.Valid {
			set.WeightKg = ptr.Ref(weightKg.Float64)
		}
		if completedReps.Valid {
			set.CompletedReps = ptr.Ref(int(completedReps.Int64))
		}
		current.Sets = append(current.Sets, set)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
