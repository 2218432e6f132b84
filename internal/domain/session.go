package domain

import (
	"context"
	"time"
)

// GymSession is one calendar day's workout log. A user has at most one per date.
type GymSession struct {
	ID              string
	UserID          string
	SessionDate     string // YYYY-MM-DD
	DurationMinutes *int
	WorkoutType     *string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type GymSessionUpdate struct {
	DurationMinutes Field[*int]
	WorkoutType     Field[*string]
	Notes           Field[*string]
}

// Empty reports whether the update carries no fields.
func (u GymSessionUpdate) Empty() bool {
	return !u.DurationMinutes.Set && !u.WorkoutType.Set && !u.Notes.Set
}

type GymSessionRepository interface {
	// Create returns ErrDuplicateSession if the date already has a session.
	Create(ctx context.Context, session *GymSession) error
	GetByDate(ctx context.Context, userID, date string) (*GymSession, error)
	Update(ctx context.Context, userID, id string, patch GymSessionUpdate) (*GymSession, error)
	// ListDates returns the session dates between from and to inclusive.
	ListDates(ctx context.Context, userID, from, to string) ([]string, error)
}
