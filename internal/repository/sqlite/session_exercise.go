package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// SessionExerciseRepository implements domain.SessionExerciseRepository.
type SessionExerciseRepository struct {
	db *sql.DB
}

func NewSessionExerciseRepository(db *DB) *SessionExerciseRepository {
	return &SessionExerciseRepository{db: db.SqlDB}
}

const (
	sessionExerciseColumns = `id, session_id, name, order_index, created_at`
	ownedSessions          = `SELECT id FROM gym_sessions WHERE user_id = ?`
)

func (r *SessionExerciseRepository) Create(ctx context.Context, userID string, e *domain.SessionExercise) error {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = newID()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO session_exercises (`+sessionExerciseColumns+`)
		 SELECT ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM gym_sessions WHERE id = ? AND user_id = ?)`,
		e.ID, e.SessionID, e.Name, e.OrderIndex, now,
		e.SessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert session exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	e.CreatedAt = now
	return nil
}

func (r *SessionExerciseRepository) ListBySession(ctx context.Context, userID, sessionID string) ([]domain.SessionExercise, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionExerciseColumns+` FROM session_exercises
		 WHERE session_id = ? AND session_id IN (`+ownedSessions+`)
		 ORDER BY order_index, rowid`,
		sessionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session exercises: %w", err)
	}
	defer rows.Close()

	var exercises []domain.SessionExercise
	for rows.Next() {
		var e domain.SessionExercise
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Name, &e.OrderIndex, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session exercise: %w", err)
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

func (r *SessionExerciseRepository) Rename(ctx context.Context, userID, id, name string) (*domain.SessionExercise, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE session_exercises SET name = ? WHERE id = ? AND session_id IN (`+ownedSessions+`)`,
		name, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("rename session exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}

	var e domain.SessionExercise
	err = r.db.QueryRowContext(ctx,
		`SELECT `+sessionExerciseColumns+` FROM session_exercises WHERE id = ?`, id,
	).Scan(&e.ID, &e.SessionID, &e.Name, &e.OrderIndex, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query session exercise: %w", err)
	}
	return &e, nil
}

// Delete removes an exercise and, by cascade, its sets.
func (r *SessionExerciseRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM session_exercises WHERE id = ? AND session_id IN (`+ownedSessions+`)`, id, userID)
	if err != nil {
		return fmt.Errorf("delete session exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
