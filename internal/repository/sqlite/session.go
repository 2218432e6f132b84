package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// GymSessionRepository implements domain.GymSessionRepository using SQLite.
type GymSessionRepository struct {
	db *sql.DB
}

func NewGymSessionRepository(db *DB) *GymSessionRepository {
	return &GymSessionRepository{db: db.SqlDB}
}

const sessionColumns = `id, user_id, session_date, duration_minutes, workout_type, notes, created_at, updated_at`

func (r *GymSessionRepository) Create(ctx context.Context, s *domain.GymSession) error {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gym_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.SessionDate, nullable(s.DurationMinutes), nullable(s.WorkoutType), nullable(s.Notes), now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateSession
		}
		return fmt.Errorf("insert gym session: %w", err)
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (r *GymSessionRepository) GetByDate(ctx context.Context, userID, date string) (*domain.GymSession, error) {
	return r.getOne(ctx, `user_id = ? AND session_date = ?`, userID, date)
}

func (r *GymSessionRepository) Update(ctx context.Context, userID, id string, patch domain.GymSessionUpdate) (*domain.GymSession, error) {
	var a assignments
	set(&a, "duration_minutes", patch.DurationMinutes, nullable[int])
	set(&a, "workout_type", patch.WorkoutType, nullable[string])
	set(&a, "notes", patch.Notes, nullable[string])

	if !a.empty() {
		a.cols = append(a.cols, "updated_at = ?")
		a.args = append(a.args, time.Now().UTC())
		result, err := r.db.ExecContext(ctx,
			`UPDATE gym_sessions SET `+a.clause()+` WHERE id = ? AND user_id = ?`,
			append(a.args, id, userID)...,
		)
		if err != nil {
			return nil, fmt.Errorf("update gym session: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, domain.ErrNotFound
		}
	}
	return r.getOne(ctx, `id = ? AND user_id = ?`, id, userID)
}

func (r *GymSessionRepository) ListDates(ctx context.Context, userID, from, to string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_date FROM gym_sessions
		 WHERE user_id = ? AND session_date >= ? AND session_date <= ?
		 ORDER BY session_date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query session dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan session date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *GymSessionRepository) getOne(ctx context.Context, where string, args ...any) (*domain.GymSession, error) {
	var (
		s           domain.GymSession
		duration    sql.NullInt64
		workoutType sql.NullString
		notes       sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM gym_sessions WHERE `+where, args...,
	).Scan(&s.ID, &s.UserID, &s.SessionDate, &duration, &workoutType, &notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query gym session: %w", err)
	}
	s.DurationMinutes = intPtr(duration)
	s.WorkoutType = stringPtr(workoutType)
	s.Notes = stringPtr(notes)
	return &s, nil
}
