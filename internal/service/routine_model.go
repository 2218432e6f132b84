package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/msomdec/tempo/internal/domain"
)

// RoutineListItem is a routine with the number of exercises it holds.
type RoutineListItem struct {
	domain.Routine
	ExerciseCount int
}

// RoutineListModel is the cached list of a user's routines.
type RoutineListModel struct {
	routines  domain.RoutineRepository
	exercises domain.RoutineExerciseRepository
	userID    string

	Routines []RoutineListItem
	Err      string
}

func NewRoutineListModel(routines domain.RoutineRepository, exercises domain.RoutineExerciseRepository, userID string) *RoutineListModel {
	return &RoutineListModel{routines: routines, exercises: exercises, userID: userID}
}

// Fetch loads the routines newest first. Exercise counts come from a single
// query over all listed routines; if it fails the counts show as zero.
func (m *RoutineListModel) Fetch(ctx context.Context) {
	m.Err = ""
	routines, err := m.routines.ListByUser(ctx, m.userID)
	if err != nil {
		slog.Error("fetch routines", "error", err)
		m.Err = err.Error()
		return
	}

	ids := make([]string, len(routines))
	for i, r := range routines {
		ids[i] = r.ID
	}
	counts := make(map[string]int, len(routines))
	parents, err := m.exercises.ListRoutineIDs(ctx, m.userID, ids)
	if err != nil {
		slog.Error("fetch exercise counts", "error", err)
	}
	for _, id := range parents {
		counts[id]++
	}

	items := make([]RoutineListItem, len(routines))
	for i, r := range routines {
		items[i] = RoutineListItem{Routine: r, ExerciseCount: counts[r.ID]}
	}
	m.Routines = items
}

// Create adds a routine and reloads the list. Blank focus is stored as null.
func (m *RoutineListModel) Create(ctx context.Context, name, focus string) (*domain.Routine, Result) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fail("Please enter a routine name.")
	}

	routine := &domain.Routine{UserID: m.userID, Name: name, Focus: trimmedOrNil(&focus)}
	if err := m.routines.Create(ctx, routine); err != nil {
		slog.Error("create routine", "error", err)
		return nil, fail(err.Error())
	}
	m.Fetch(ctx)
	return routine, ok()
}

func (m *RoutineListModel) Delete(ctx context.Context, id string) Result {
	if err := m.routines.Delete(ctx, m.userID, id); err != nil {
		slog.Error("delete routine", "id", id, "error", err)
		return fail(err.Error())
	}
	m.Fetch(ctx)
	return ok()
}

// RoutineModel is the cached copy of one routine and its exercises, ordered
// by order index.
type RoutineModel struct {
	routines  domain.RoutineRepository
	exercises domain.RoutineExerciseRepository
	userID    string
	routineID string

	Routine   *domain.Routine
	Exercises []domain.RoutineExercise
	Err       string
}

func NewRoutineModel(routines domain.RoutineRepository, exercises domain.RoutineExerciseRepository, userID, routineID string) *RoutineModel {
	return &RoutineModel{routines: routines, exercises: exercises, userID: userID, routineID: routineID}
}

// NotFound reports whether the last fetch found no routine owned by the user.
func (m *RoutineModel) NotFound() bool {
	return m.Routine == nil && m.Err == ""
}

func (m *RoutineModel) Fetch(ctx context.Context) {
	m.Err = ""
	routine, err := m.routines.GetByID(ctx, m.userID, m.routineID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.Routine, m.Exercises = nil, nil
			return
		}
		slog.Error("fetch routine", "id", m.routineID, "error", err)
		m.Err = err.Error()
		return
	}

	exercises, err := m.exercises.ListByRoutine(ctx, m.userID, m.routineID)
	if err != nil {
		slog.Error("fetch routine exercises", "id", m.routineID, "error", err)
		m.Err = err.Error()
		return
	}
	m.Routine, m.Exercises = routine, exercises
}

// Update changes the routine name or focus.
func (m *RoutineModel) Update(ctx context.Context, patch domain.RoutineUpdate) Result {
	if m.Routine == nil {
		return fail("No routine")
	}
	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		if patch.Name.Value == "" {
			return fail("Please enter a routine name.")
		}
	}
	if patch.Focus.Set {
		patch.Focus.Value = trimmedOrNil(patch.Focus.Value)
	}

	updated, err := m.routines.Update(ctx, m.userID, m.Routine.ID, patch)
	if err != nil {
		slog.Error("update routine", "id", m.Routine.ID, "error", err)
		return fail(err.Error())
	}
	m.Routine = updated
	return ok()
}

// AddExercise appends an exercise with the next order index.
func (m *RoutineModel) AddExercise(ctx context.Context, exercise domain.RoutineExercise) Result {
	if m.Routine == nil {
		return fail("No routine")
	}
	exercise.Name = strings.TrimSpace(exercise.Name)
	if exercise.Name == "" {
		return fail("Please enter an exercise name.")
	}
	exercise.RoutineID = m.Routine.ID
	exercise.OrderIndex = len(m.Exercises)
	exercise.Reps = trimmedOrNil(exercise.Reps)

	if err := m.exercises.Create(ctx, m.userID, &exercise); err != nil {
		slog.Error("add routine exercise", "routine", m.Routine.ID, "error", err)
		return fail(err.Error())
	}
	m.Exercises = append(m.Exercises, exercise)
	return ok()
}

func (m *RoutineModel) UpdateExercise(ctx context.Context, id string, patch domain.RoutineExerciseUpdate) Result {
	if m.Routine == nil {
		return fail("No routine")
	}
	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		if patch.Name.Value == "" {
			return fail("Please enter an exercise name.")
		}
	}

	updated, err := m.exercises.Update(ctx, m.userID, id, patch)
	if err != nil {
		slog.Error("update routine exercise", "id", id, "error", err)
		return fail(err.Error())
	}
	for i := range m.Exercises {
		if m.Exercises[i].ID == id {
			m.Exercises[i] = *updated
		}
	}
	return ok()
}

// DeleteExercise removes an exercise. Remaining order indices are left as
// they are.
func (m *RoutineModel) DeleteExercise(ctx context.Context, id string) Result {
	if m.Routine == nil {
		return fail("No routine")
	}
	if err := m.exercises.Delete(ctx, m.userID, id); err != nil {
		slog.Error("delete routine exercise", "id", id, "error", err)
		return fail(err.Error())
	}
	m.Exercises = slices.DeleteFunc(m.Exercises, func(e domain.RoutineExercise) bool { return e.ID == id })
	return ok()
}

// Exercise returns the cached exercise with the given id.
func (m *RoutineModel) Exercise(id string) (domain.RoutineExercise, bool) {
	i := slices.IndexFunc(m.Exercises, func(e domain.RoutineExercise) bool { return e.ID == id })
	if i < 0 {
		return domain.RoutineExercise{}, false
	}
	return m.Exercises[i], true
}
