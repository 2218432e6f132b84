package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// RoutineRepository implements domain.RoutineRepository using SQLite.
type RoutineRepository struct {
	db *sql.DB
}

func NewRoutineRepository(db *DB) *RoutineRepository {
	return &RoutineRepository{db: db.SqlDB}
}

const routineColumns = `id, user_id, name, focus, created_at, updated_at`

func (r *RoutineRepository) Create(ctx context.Context, routine *domain.Routine) error {
	now := time.Now().UTC()
	if routine.ID == "" {
		routine.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO routines (`+routineColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		routine.ID, routine.UserID, routine.Name, nullable(routine.Focus), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert routine: %w", err)
	}
	routine.CreatedAt = now
	routine.UpdatedAt = now
	return nil
}

func (r *RoutineRepository) GetByID(ctx context.Context, userID, id string) (*domain.Routine, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE id = ? AND user_id = ?`, id, userID)
	routine, err := scanRoutine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query routine: %w", err)
	}
	return routine, nil
}

func (r *RoutineRepository) ListByUser(ctx context.Context, userID string) ([]domain.Routine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query routines: %w", err)
	}
	defer rows.Close()

	var routines []domain.Routine
	for rows.Next() {
		routine, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, *routine)
	}
	return routines, rows.Err()
}

func (r *RoutineRepository) Update(ctx context.Context, userID, id string, patch domain.RoutineUpdate) (*domain.Routine, error) {
	var a assignments
	set(&a, "name", patch.Name, value[string])
	set(&a, "focus", patch.Focus, nullable[string])

	if !a.empty() {
		a.cols = append(a.cols, "updated_at = ?")
		a.args = append(a.args, time.Now().UTC())
		result, err := r.db.ExecContext(ctx,
			`UPDATE routines SET `+a.clause()+` WHERE id = ? AND user_id = ?`,
			append(a.args, id, userID)...,
		)
		if err != nil {
			return nil, fmt.Errorf("update routine: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, domain.ErrNotFound
		}
	}
	return r.GetByID(ctx, userID, id)
}

// Delete removes a routine; its exercises go with it via ON DELETE CASCADE.
func (r *RoutineRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routines WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoutine(s scanner) (*domain.Routine, error) {
	var (
		routine domain.Routine
		focus   sql.NullString
	)
	if err := s.Scan(&routine.ID, &routine.UserID, &routine.Name, &focus, &routine.CreatedAt, &routine.UpdatedAt); err != nil {
		return nil, err
	}
	routine.Focus = stringPtr(focus)
	return &routine, nil
}
