package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// SessionSetRepository implements domain.SessionSetRepository.
type SessionSetRepository struct {
	db *sql.DB
}

func NewSessionSetRepository(db *DB) *SessionSetRepository {
	return &SessionSetRepository{db: db.SqlDB}
}

const (
	sessionSetColumns = `id, session_exercise_id, set_number, reps, weight, rest_seconds, created_at`
	ownedExercises    = `SELECT se.id FROM session_exercises se
		JOIN gym_sessions s ON s.id = se.session_id WHERE s.user_id = ?`
)

func (r *SessionSetRepository) Create(ctx context.Context, userID string, s *domain.SessionSet) error {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = newID()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO session_sets (`+sessionSetColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE ? IN (`+ownedExercises+`)`,
		s.ID, s.SessionExerciseID, s.SetNumber, nullable(s.Reps), nullable(s.Weight), nullable(s.RestSeconds), now,
		s.SessionExerciseID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert session set: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	s.CreatedAt = now
	return nil
}

func (r *SessionSetRepository) ListByExercises(ctx context.Context, userID string, exerciseIDs []string) ([]domain.SessionSet, error) {
	if len(exerciseIDs) == 0 {
		return nil, nil
	}
	args := append(stringArgs(exerciseIDs), userID)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionSetColumns+` FROM session_sets
		 WHERE session_exercise_id IN (`+placeholders(len(exerciseIDs))+`)
		   AND session_exercise_id IN (`+ownedExercises+`)
		 ORDER BY set_number, rowid`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query session sets: %w", err)
	}
	defer rows.Close()

	var sets []domain.SessionSet
	for rows.Next() {
		s, err := scanSessionSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session set: %w", err)
		}
		sets = append(sets, *s)
	}
	return sets, rows.Err()
}

func (r *SessionSetRepository) Update(ctx context.Context, userID, id string, patch domain.SessionSetUpdate) (*domain.SessionSet, error) {
	var a assignments
	set(&a, "reps", patch.Reps, nullable[int])
	set(&a, "weight", patch.Weight, nullable[float64])
	set(&a, "rest_seconds", patch.RestSeconds, nullable[int])

	if !a.empty() {
		result, err := r.db.ExecContext(ctx,
			`UPDATE session_sets SET `+a.clause()+`
			 WHERE id = ? AND session_exercise_id IN (`+ownedExercises+`)`,
			append(a.args, id, userID)...,
		)
		if err != nil {
			return nil, fmt.Errorf("update session set: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, domain.ErrNotFound
		}
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionSetColumns+` FROM session_sets
		 WHERE id = ? AND session_exercise_id IN (`+ownedExercises+`)`, id, userID)
	s, err := scanSessionSet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query session set: %w", err)
	}
	return s, nil
}

func (r *SessionSetRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM session_sets WHERE id = ? AND session_exercise_id IN (`+ownedExercises+`)`, id, userID)
	if err != nil {
		return fmt.Errorf("delete session set: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSessionSet(sc scanner) (*domain.SessionSet, error) {
	var (
		s      domain.SessionSet
		reps   sql.NullInt64
		weight sql.NullFloat64
		rest   sql.NullInt64
	)
	if err := sc.Scan(&s.ID, &s.SessionExerciseID, &s.SetNumber, &reps, &weight, &rest, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Reps = intPtr(reps)
	s.Weight = floatPtr(weight)
	s.RestSeconds = intPtr(rest)
	return &s, nil
}
