package domain

import (
	"context"
	"time"
)

// SessionExercise is an exercise performed during a GymSession.
type SessionExercise struct {
	ID         string
	SessionID  string
	Name       string
	OrderIndex int
	CreatedAt  time.Time
}

// SessionSet is one set of a SessionExercise. SetNumber is 1-based.
type SessionSet struct {
	ID                string
	SessionExerciseID string
	SetNumber         int
	Reps              *int
	Weight            *float64
	RestSeconds       *int
	CreatedAt         time.Time
}

type SessionSetUpdate struct {
	Reps        Field[*int]
	Weight      Field[*float64]
	RestSeconds Field[*int]
}

type SessionExerciseRepository interface {
	Create(ctx context.Context, userID string, exercise *SessionExercise) error
	// ListBySession returns exercises ordered by order index ascending.
	ListBySession(ctx context.Context, userID, sessionID string) ([]SessionExercise, error)
	Rename(ctx context.Context, userID, id, name string) (*SessionExercise, error)
	Delete(ctx context.Context, userID, id string) error
}

type SessionSetRepository interface {
	Create(ctx context.Context, userID string, set *SessionSet) error
	// ListByExercises returns the sets of all given exercises in one query,
	// ordered by set number.
	ListByExercises(ctx context.Context, userID string, exerciseIDs []string) ([]SessionSet, error)
	Update(ctx context.Context, userID, id string, patch SessionSetUpdate) (*SessionSet, error)
	Delete(ctx context.Context, userID, id string) error
}
