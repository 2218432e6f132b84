package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/tempo/internal/calendar"
	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/live"
	"github.com/msomdec/tempo/internal/service"
	"github.com/msomdec/tempo/internal/view"
)

const sessionScreenKind = "session"

// SessionHandler serves the day page: the session fields, its exercises and
// their sets.
type SessionHandler struct {
	sessions         domain.GymSessionRepository
	routines         domain.RoutineRepository
	routineExercises domain.RoutineExerciseRepository
	exercises        domain.SessionExerciseRepository
	sets             domain.SessionSetRepository
	screens          *live.Registry
	now              func() time.Time
}

func NewSessionHandler(deps Deps) *SessionHandler {
	return &SessionHandler{
		sessions:         deps.Sessions,
		routines:         deps.Routines,
		routineExercises: deps.RoutineExercises,
		exercises:        deps.SessionExercises,
		sets:             deps.SessionSets,
		screens:          deps.Screens,
		now:              deps.Now,
	}
}

// sessionScreen is the state of an open day page.
type sessionScreen struct {
	id        string
	session   *service.SessionModel
	exercises *service.SessionExercisesModel
	routines  []domain.Routine
	fields    *fieldSet
}

// HandleView opens the day page for a date.
// GET /session/{date}
func (h *SessionHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	date, err := calendar.ParseISODate(r.PathValue("date"), now.Location())
	if err != nil {
		notFound(w, r)
		return
	}
	user := UserFromContext(r.Context())
	iso := calendar.FormatISODate(date)

	st := &sessionScreen{
		session:   service.NewSessionModel(h.sessions, user.ID, iso),
		exercises: service.NewSessionExercisesModel(h.exercises, h.sets, user.ID, ""),
	}
	st.session.Fetch(r.Context())
	if st.session.Found() {
		st.exercises.Bind(st.session.Session.ID)
		st.exercises.Fetch(r.Context())
	}
	list := service.NewRoutineListModel(h.routines, h.routineExercises, user.ID)
	list.Fetch(r.Context())
	for _, item := range list.Routines {
		st.routines = append(st.routines, item.Routine)
	}

	screen := h.screens.Open(user.ID, sessionScreenKind, st)
	st.id = screen.ID
	st.fields = newFieldSet(screen)

	var html string
	err = screen.Do(r.Context(), func(ctx context.Context) {
		st.syncFields()
		html = render(ctx, view.SessionPage(view.SessionData{
			Layout:    layout(r, calendar.FormatDateShort(date), navFor(iso, now)),
			Screen:    screen.ID,
			Date:      iso,
			Heading:   calendar.FormatDayHeading(date),
			Day:       calendar.DayOfYear(date),
			TotalDays: calendar.DaysInYear(date.Year()),
			IsToday:   iso == calendar.FormatISODate(now),
			Session:   st.session.Session,
			Exercises: st.exercisesData(),
		}))
	})
	if err != nil {
		h.screens.Close(screen.ID)
		slog.Error("open session screen", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func navFor(date string, now time.Time) string {
	if date == calendar.FormatISODate(now) {
		return "today"
	}
	return ""
}

func (st *sessionScreen) exercisesData() view.ExercisesData {
	return view.ExercisesData{
		Screen:    st.id,
		Date:      st.session.Date(),
		Exercises: st.exercises.Exercises,
		Routines:  st.routines,
		Error:     st.exercises.Err,
	}
}

// syncFields watches the session fields and one field per exercise name and
// set column.
func (st *sessionScreen) syncFields() {
	want := map[string]field{
		"duration":    {saved: "", apply: st.saveDuration},
		"workouttype": {saved: "", apply: st.saveWorkoutType},
		"notes":       {saved: "", apply: st.saveNotes},
	}
	if s := st.session.Session; s != nil {
		want["duration"] = field{saved: intString(s.DurationMinutes), apply: st.saveDuration}
		want["workouttype"] = field{saved: deref(s.WorkoutType), apply: st.saveWorkoutType}
		want["notes"] = field{saved: deref(s.Notes), apply: st.saveNotes}
	}

	for _, e := range st.exercises.Exercises {
		id := e.ID
		want[view.ExerciseNameKey(id)] = field{saved: e.Name, apply: func(ctx context.Context, v string) error {
			return resultErr(st.exercises.UpdateExercise(ctx, id, v))
		}}
		for _, set := range e.Sets {
			setID := set.ID
			want[view.SetRepsKey(setID)] = field{saved: intString(set.Reps), apply: func(ctx context.Context, v string) error {
				reps, err := optionalInt(v, "Reps")
				if err != nil {
					return err
				}
				return resultErr(st.exercises.UpdateSet(ctx, setID, domain.SessionSetUpdate{Reps: domain.NewField(reps)}))
			}}
			want[view.SetWeightKey(setID)] = field{saved: floatString(set.Weight), apply: func(ctx context.Context, v string) error {
				weight, err := optionalFloat(v, "Weight")
				if err != nil {
					return err
				}
				return resultErr(st.exercises.UpdateSet(ctx, setID, domain.SessionSetUpdate{Weight: domain.NewField(weight)}))
			}}
			want[view.SetRestKey(setID)] = field{saved: intString(set.RestSeconds), apply: func(ctx context.Context, v string) error {
				rest, err := optionalInt(v, "Rest")
				if err != nil {
					return err
				}
				return resultErr(st.exercises.UpdateSet(ctx, setID, domain.SessionSetUpdate{RestSeconds: domain.NewField(rest)}))
			}}
		}
	}
	st.fields.sync(want)
}

// save writes patch, creating the day's session on the first edit.
func (st *sessionScreen) save(ctx context.Context, patch domain.GymSessionUpdate) error {
	if err := resultErr(st.session.Save(ctx, patch)); err != nil {
		return err
	}
	if st.exercises.SessionID() == "" {
		st.exercises.Bind(st.session.Session.ID)
	}
	return nil
}

func (st *sessionScreen) saveDuration(ctx context.Context, v string) error {
	minutes, err := optionalInt(v, "Duration")
	if err != nil {
		return err
	}
	return st.save(ctx, domain.GymSessionUpdate{DurationMinutes: domain.NewField(minutes)})
}

func (st *sessionScreen) saveWorkoutType(ctx context.Context, v string) error {
	return st.save(ctx, domain.GymSessionUpdate{WorkoutType: domain.NewField(optionalString(v))})
}

func (st *sessionScreen) saveNotes(ctx context.Context, v string) error {
	var notes *string
	if v != "" {
		notes = &v
	}
	return st.save(ctx, domain.GymSessionUpdate{Notes: domain.NewField(notes)})
}

func (st *sessionScreen) fragments(_ context.Context, key string) []templ.Component {
	if key != "notes" {
		return nil
	}
	var notes string
	if st.session.Session != nil {
		notes = deref(st.session.Session.Notes)
	}
	return []templ.Component{view.NotesPreview(notes)}
}

// ensureSession creates the day's session before the first exercise is
// logged.
func (st *sessionScreen) ensureSession(ctx context.Context) service.Result {
	if !st.session.Found() {
		if res := st.session.Create(ctx); !res.Success {
			return res
		}
	}
	if st.exercises.SessionID() == "" {
		st.exercises.Bind(st.session.Session.ID)
	}
	return service.Result{Success: true}
}

// HandleAddExercise logs a new exercise named by the newexercise signal.
// POST /live/{screen}/exercises
func (h *SessionHandler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	signals := map[string]any{}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	name := signalString(signals["newexercise"])

	h.mutate(w, r, func(ctx context.Context, st *sessionScreen) service.Result {
		if res := st.ensureSession(ctx); !res.Success {
			return res
		}
		return st.exercises.AddExercise(ctx, name)
	}, map[string]any{"newexercise": ""})
}

// HandleDeleteExercise removes an exercise and its sets.
// POST /live/{screen}/exercises/{id}/delete
func (h *SessionHandler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mutate(w, r, func(ctx context.Context, st *sessionScreen) service.Result {
		return st.exercises.DeleteExercise(ctx, id)
	}, nil)
}

// HandleAddSet adds an empty set to an exercise.
// POST /live/{screen}/exercises/{id}/sets
func (h *SessionHandler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mutate(w, r, func(ctx context.Context, st *sessionScreen) service.Result {
		return st.exercises.AddSet(ctx, id, domain.SessionSet{})
	}, nil)
}

// HandleDeleteSet removes a set.
// POST /live/{screen}/sets/{id}/delete
func (h *SessionHandler) HandleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mutate(w, r, func(ctx context.Context, st *sessionScreen) service.Result {
		return st.exercises.DeleteSet(ctx, id)
	}, nil)
}

// HandleCopyRoutine logs every exercise of a routine with its planned sets.
// POST /live/{screen}/copy/{routineId}
func (h *SessionHandler) HandleCopyRoutine(w http.ResponseWriter, r *http.Request) {
	routineID := r.PathValue("routineId")
	user := UserFromContext(r.Context())

	h.mutate(w, r, func(ctx context.Context, st *sessionScreen) service.Result {
		if _, err := h.routines.GetByID(ctx, user.ID, routineID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return service.Result{Error: "Routine not found."}
			}
			slog.Error("get routine", "id", routineID, "error", err)
			return service.Result{Error: err.Error()}
		}
		exercises, err := h.routineExercises.ListByRoutine(ctx, user.ID, routineID)
		if err != nil {
			slog.Error("list routine exercises", "id", routineID, "error", err)
			return service.Result{Error: err.Error()}
		}
		if res := st.ensureSession(ctx); !res.Success {
			return res
		}
		return st.exercises.CopyRoutine(ctx, exercises)
	}, nil)
}

// mutate runs fn on the session screen, re-syncs the watched fields and
// patches the exercises section. clear holds signals reset on success.
func (h *SessionHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, st *sessionScreen) service.Result, clear map[string]any) {
	screen, ok := findScreen(w, r, h.screens, sessionScreenKind)
	if !ok {
		return
	}
	st := screen.State.(*sessionScreen)

	var (
		res  service.Result
		html string
	)
	err := screen.Do(r.Context(), func(ctx context.Context) {
		res = fn(ctx, st)
		st.syncFields()
		data := st.exercisesData()
		if !res.Success {
			data.Error = res.Error
		}
		html = render(ctx, view.ExercisesFragment(data))
	})
	if err != nil {
		if errors.Is(err, live.ErrClosed) {
			reload(w, r)
			return
		}
		slog.Debug("session action", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElements(html); err != nil {
		slog.Debug("patch exercises", "error", err)
		return
	}
	if res.Success && clear != nil {
		if err := sse.MarshalAndPatchSignals(clear); err != nil {
			slog.Debug("patch signals", "error", err)
		}
	}
}
