package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// RoutineExerciseRepository implements domain.RoutineExerciseRepository.
// Rows are reached through their routine so every statement is scoped to
// the owning user.
type RoutineExerciseRepository struct {
	db *sql.DB
}

func NewRoutineExerciseRepository(db *DB) *RoutineExerciseRepository {
	return &RoutineExerciseRepository{db: db.SqlDB}
}

const (
	routineExerciseColumns = `id, routine_id, name, sets, reps, rest_seconds, order_index, created_at`
	ownedRoutines          = `SELECT id FROM routines WHERE user_id = ?`
)

func (r *RoutineExerciseRepository) Create(ctx context.Context, userID string, e *domain.RoutineExercise) error {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = newID()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO routine_exercises (`+routineExerciseColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM routines WHERE id = ? AND user_id = ?)`,
		e.ID, e.RoutineID, e.Name, nullable(e.Sets), nullable(e.Reps), nullable(e.RestSeconds), e.OrderIndex, now,
		e.RoutineID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert routine exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	e.CreatedAt = now
	return nil
}

func (r *RoutineExerciseRepository) ListByRoutine(ctx context.Context, userID, routineID string) ([]domain.RoutineExercise, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+routineExerciseColumns+` FROM routine_exercises
		 WHERE routine_id = ? AND routine_id IN (`+ownedRoutines+`)
		 ORDER BY order_index, rowid`,
		routineID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query routine exercises: %w", err)
	}
	defer rows.Close()

	var exercises []domain.RoutineExercise
	for rows.Next() {
		e, err := scanRoutineExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine exercise: %w", err)
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

func (r *RoutineExerciseRepository) ListRoutineIDs(ctx context.Context, userID string, routineIDs []string) ([]string, error) {
	if len(routineIDs) == 0 {
		return nil, nil
	}
	args := append(stringArgs(routineIDs), userID)
	rows, err := r.db.QueryContext(ctx,
		`SELECT routine_id FROM routine_exercises
		 WHERE routine_id IN (`+placeholders(len(routineIDs))+`) AND routine_id IN (`+ownedRoutines+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query routine exercise parents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan routine id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *RoutineExerciseRepository) Update(ctx context.Context, userID, id string, patch domain.RoutineExerciseUpdate) (*domain.RoutineExercise, error) {
	var a assignments
	set(&a, "name", patch.Name, value[string])
	set(&a, "sets", patch.Sets, nullable[int])
	set(&a, "reps", patch.Reps, nullable[string])
	set(&a, "rest_seconds", patch.RestSeconds, nullable[int])

	if !a.empty() {
		result, err := r.db.ExecContext(ctx,
			`UPDATE routine_exercises SET `+a.clause()+`
			 WHERE id = ? AND routine_id IN (`+ownedRoutines+`)`,
			append(a.args, id, userID)...,
		)
		if err != nil {
			return nil, fmt.Errorf("update routine exercise: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, domain.ErrNotFound
		}
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+routineExerciseColumns+` FROM routine_exercises
		 WHERE id = ? AND routine_id IN (`+ownedRoutines+`)`, id, userID)
	e, err := scanRoutineExercise(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query routine exercise: %w", err)
	}
	return e, nil
}

// Delete removes one exercise. Remaining order indices are left as they are.
func (r *RoutineExerciseRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM routine_exercises WHERE id = ? AND routine_id IN (`+ownedRoutines+`)`, id, userID)
	if err != nil {
		return fmt.Errorf("delete routine exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanRoutineExercise(s scanner) (*domain.RoutineExercise, error) {
	var (
		e    domain.RoutineExercise
		sets sql.NullInt64
		reps sql.NullString
		rest sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.RoutineID, &e.Name, &sets, &reps, &rest, &e.OrderIndex, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Sets = intPtr(sets)
	e.Reps = stringPtr(reps)
	e.RestSeconds = intPtr(rest)
	return &e, nil
}
