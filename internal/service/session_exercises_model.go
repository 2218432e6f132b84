package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/msomdec/tempo/internal/domain"
)

// DefaultCopiedSets is the number of sets created for a copied routine
// exercise that does not specify one.
const DefaultCopiedSets = 3

// LoggedExercise is a session exercise with its sets ordered by set number.
type LoggedExercise struct {
	domain.SessionExercise
	Sets []domain.SessionSet
}

// SessionExercisesModel is the cached exercise log of one gym session. A
// model without a session id rejects every mutation; Bind attaches it once
// the session row exists.
type SessionExercisesModel struct {
	exercises domain.SessionExerciseRepository
	sets      domain.SessionSetRepository
	userID    string
	sessionID string

	Exercises []LoggedExercise
	Err       string
}

func NewSessionExercisesModel(exercises domain.SessionExerciseRepository, sets domain.SessionSetRepository, userID, sessionID string) *SessionExercisesModel {
	return &SessionExercisesModel{exercises: exercises, sets: sets, userID: userID, sessionID: sessionID}
}

// Bind sets the session the model writes to.
func (m *SessionExercisesModel) Bind(sessionID string) {
	m.sessionID = sessionID
}

func (m *SessionExercisesModel) SessionID() string {
	return m.sessionID
}

// Fetch loads the exercises and then the sets of all of them in one query.
func (m *SessionExercisesModel) Fetch(ctx context.Context) {
	m.Err = ""
	if m.sessionID == "" {
		m.Exercises = nil
		return
	}

	exercises, err := m.exercises.ListBySession(ctx, m.userID, m.sessionID)
	if err != nil {
		slog.Error("fetch session exercises", "session", m.sessionID, "error", err)
		m.Err = err.Error()
		return
	}
	if len(exercises) == 0 {
		m.Exercises = nil
		return
	}

	ids := make([]string, len(exercises))
	for i, e := range exercises {
		ids[i] = e.ID
	}
	sets, err := m.sets.ListByExercises(ctx, m.userID, ids)
	if err != nil {
		slog.Error("fetch session sets", "session", m.sessionID, "error", err)
		m.Err = err.Error()
		return
	}

	byExercise := make(map[string][]domain.SessionSet, len(exercises))
	for _, s := range sets {
		byExercise[s.SessionExerciseID] = append(byExercise[s.SessionExerciseID], s)
	}
	logged := make([]LoggedExercise, len(exercises))
	for i, e := range exercises {
		logged[i] = LoggedExercise{SessionExercise: e, Sets: byExercise[e.ID]}
	}
	m.Exercises = logged
}

// AddExercise appends an exercise with no sets.
func (m *SessionExercisesModel) AddExercise(ctx context.Context, name string) Result {
	if m.sessionID == "" {
		return fail("No session")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fail("Please enter an exercise name.")
	}

	exercise := domain.SessionExercise{SessionID: m.sessionID, Name: name, OrderIndex: len(m.Exercises)}
	if err := m.exercises.Create(ctx, m.userID, &exercise); err != nil {
		slog.Error("add session exercise", "session", m.sessionID, "error", err)
		return fail(err.Error())
	}
	m.Exercises = append(m.Exercises, LoggedExercise{SessionExercise: exercise})
	return ok()
}

// UpdateExercise renames an exercise.
func (m *SessionExercisesModel) UpdateExercise(ctx context.Context, id, name string) Result {
	if m.sessionID == "" {
		return fail("No session")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fail("Please enter an exercise name.")
	}

	updated, err := m.exercises.Rename(ctx, m.userID, id, name)
	if err != nil {
		slog.Error("rename session exercise", "id", id, "error", err)
		return fail(err.Error())
	}
	if i := m.indexOf(id); i >= 0 {
		m.Exercises[i].SessionExercise = *updated
	}
	return ok()
}

// AddSet appends a set to an exercise. A zero SetNumber becomes the next
// number after the exercise's current sets.
func (m *SessionExercisesModel) AddSet(ctx context.Context, exerciseID string, set domain.SessionSet) Result {
	if m.sessionID == "" {
		return fail("No session")
	}
	i := m.indexOf(exerciseID)
	if set.SetNumber == 0 && i >= 0 {
		set.SetNumber = len(m.Exercises[i].Sets) + 1
	}
	if set.SetNumber == 0 {
		set.SetNumber = 1
	}
	set.SessionExerciseID = exerciseID

	if err := m.sets.Create(ctx, m.userID, &set); err != nil {
		slog.Error("add session set", "exercise", exerciseID, "error", err)
		return fail(err.Error())
	}
	if i >= 0 {
		m.Exercises[i].Sets = append(m.Exercises[i].Sets, set)
	}
	return ok()
}

// UpdateSet writes the fields present in patch and merges the stored row.
func (m *SessionExercisesModel) UpdateSet(ctx context.Context, id string, patch domain.SessionSetUpdate) Result {
	if m.sessionID == "" {
		return fail("No session")
	}
	updated, err := m.sets.Update(ctx, m.userID, id, patch)
	if err != nil {
		slog.Error("update session set", "id", id, "error", err)
		return fail(err.Error())
	}
	for i := range m.Exercises {
		for j := range m.Exercises[i].Sets {
			if m.Exercises[i].Sets[j].ID == id {
				m.Exercises[i].Sets[j] = *updated
			}
		}
	}
	return ok()
}

// DeleteExercise removes an exercise together with its sets.
func (m *SessionExercisesModel) DeleteExercise(ctx context.Context, id string) Result {
	if m.sessionID == "" {
		return fail("No session")
	}
	if err := m.exercises.Delete(ctx, m.userID, id); err != nil {
		slog.Error("delete session exercise", "id", id, "error", err)
		return fail(err.Error())
	}
	m.Exercises = slices.DeleteFunc(m.Exercises, func(e LoggedExercise) bool { return e.ID == id })
	return ok()
}

func (m *SessionExercisesModel) DeleteSet(ctx context.Context, id string) Result {
	if m.sessionID == "" {
		return fail("No session")
	}
	if err := m.sets.Delete(ctx, m.userID, id); err != nil {
		slog.Error("delete session set", "id", id, "error", err)
		return fail(err.Error())
	}
	for i := range m.Exercises {
		m.Exercises[i].Sets = slices.DeleteFunc(m.Exercises[i].Sets, func(s domain.SessionSet) bool { return s.ID == id })
	}
	return ok()
}

// CopyRoutine logs a routine's exercises into the session. Exercises are
// written first, then each gets its planned number of empty sets carrying
// the routine's rest time. The two steps are not atomic: if a set insert
// fails the error is logged and the exercises stay without their sets.
func (m *SessionExercisesModel) CopyRoutine(ctx context.Context, routine []domain.RoutineExercise) Result {
	if m.sessionID == "" {
		return fail("No session")
	}
	if len(routine) == 0 {
		return ok()
	}

	base := len(m.Exercises)
	created := make([]domain.SessionExercise, 0, len(routine))
	for i, re := range routine {
		e := domain.SessionExercise{SessionID: m.sessionID, Name: re.Name, OrderIndex: base + i}
		if err := m.exercises.Create(ctx, m.userID, &e); err != nil {
			slog.Error("copy routine exercise", "session", m.sessionID, "error", err)
			m.Fetch(ctx)
			return fail(err.Error())
		}
		created = append(created, e)
	}

sets:
	for i, e := range created {
		n := DefaultCopiedSets
		if s := routine[i].Sets; s != nil && *s > 0 {
			n = *s
		}
		for num := 1; num <= n; num++ {
			set := domain.SessionSet{
				SessionExerciseID: e.ID,
				SetNumber:         num,
				RestSeconds:       routine[i].RestSeconds,
			}
			if err := m.sets.Create(ctx, m.userID, &set); err != nil {
				slog.Error("copy routine sets", "session", m.sessionID, "error", err)
				break sets
			}
		}
	}

	m.Fetch(ctx)
	return ok()
}

// SetCount returns the number of sets logged across all exercises.
func (m *SessionExercisesModel) SetCount() int {
	n := 0
	for _, e := range m.Exercises {
		n += len(e.Sets)
	}
	return n
}

func (m *SessionExercisesModel) indexOf(id string) int {
	return slices.IndexFunc(m.Exercises, func(e LoggedExercise) bool { return e.ID == id })
}
