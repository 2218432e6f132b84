package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository using SQLite.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db.SqlDB}
}

func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, preferred_name, gym_start_date, weekly_goal, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, nullable(p.FullName), p.PreferredName, nullable(p.GymStartDate), nullable(p.WeeklyGoal), now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateProfile
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	p.CreatedAt = now
	return nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		p        domain.Profile
		fullName sql.NullString
		start    sql.NullString
		goal     sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, preferred_name, gym_start_date, weekly_goal, created_at
		 FROM profiles WHERE id = ?`, userID,
	).Scan(&p.ID, &fullName, &p.PreferredName, &start, &goal, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.FullName = stringPtr(fullName)
	p.GymStartDate = stringPtr(start)
	p.WeeklyGoal = intPtr(goal)
	return &p, nil
}

func (r *ProfileRepository) Update(ctx context.Context, userID string, patch domain.ProfileUpdate) (*domain.Profile, error) {
	var a assignments
	set(&a, "full_name", patch.FullName, nullable[string])
	set(&a, "preferred_name", patch.PreferredName, value[string])
	set(&a, "gym_start_date", patch.GymStartDate, nullable[string])
	set(&a, "weekly_goal", patch.WeeklyGoal, nullable[int])

	if !a.empty() {
		result, err := r.db.ExecContext(ctx,
			`UPDATE profiles SET `+a.clause()+` WHERE id = ?`,
			append(a.args, userID)...,
		)
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, domain.ErrNotFound
		}
	}
	return r.GetByUserID(ctx, userID)
}
