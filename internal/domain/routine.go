package domain

import (
	"context"
	"time"
)

// Routine is a reusable named template of exercises.
type Routine struct {
	ID        string
	UserID    string
	Name      string
	Focus     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RoutineUpdate struct {
	Name  Field[string]
	Focus Field[*string]
}

// RoutineExercise is one entry of a routine. OrderIndex is zero-based and is
// not compacted after deletes.
type RoutineExercise struct {
	ID          string
	RoutineID   string
	Name        string
	Sets        *int
	Reps        *string // free text, e.g. "8-10"
	RestSeconds *int
	OrderIndex  int
	CreatedAt   time.Time
}

type RoutineExerciseUpdate struct {
	Name        Field[string]
	Sets        Field[*int]
	Reps        Field[*string]
	RestSeconds Field[*int]
}

type RoutineRepository interface {
	Create(ctx context.Context, routine *Routine) error
	GetByID(ctx context.Context, userID, id string) (*Routine, error)
	// ListByUser returns the user's routines, newest first.
	ListByUser(ctx context.Context, userID string) ([]Routine, error)
	Update(ctx context.Context, userID, id string, patch RoutineUpdate) (*Routine, error)
	Delete(ctx context.Context, userID, id string) error
}

type RoutineExerciseRepository interface {
	Create(ctx context.Context, userID string, exercise *RoutineExercise) error
	// ListByRoutine returns exercises ordered by order index ascending.
	ListByRoutine(ctx context.Context, userID, routineID string) ([]RoutineExercise, error)
	// ListRoutineIDs returns the parent routine id of every exercise that
	// belongs to one of the given routines, one entry per exercise.
	ListRoutineIDs(ctx context.Context, userID string, routineIDs []string) ([]string, error)
	Update(ctx context.Context, userID, id string, patch RoutineExerciseUpdate) (*RoutineExercise, error)
	Delete(ctx context.Context, userID, id string) error
}
