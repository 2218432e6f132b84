package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/live"
	"github.com/msomdec/tempo/internal/service"
	"github.com/msomdec/tempo/internal/view"
)

const routineScreenKind = "routine"

// RoutineHandler serves the routine list and the routine editor.
type RoutineHandler struct {
	routines  domain.RoutineRepository
	exercises domain.RoutineExerciseRepository
	screens   *live.Registry
}

func NewRoutineHandler(deps Deps) *RoutineHandler {
	return &RoutineHandler{
		routines:  deps.Routines,
		exercises: deps.RoutineExercises,
		screens:   deps.Screens,
	}
}

// HandleList renders the user's routines, newest first.
// GET /routines
func (h *RoutineHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	model := service.NewRoutineListModel(h.routines, h.exercises, user.ID)
	model.Fetch(r.Context())

	page(w, r, http.StatusOK, view.RoutinesPage(view.RoutinesData{
		Layout: layout(r, "Routines", "routines"),
		Items:  model.Routines,
		Error:  model.Err,
	}))
}

// HandleCreate creates a routine and opens it.
// POST /routines
func (h *RoutineHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	user := UserFromContext(r.Context())
	name, focus := r.FormValue("name"), r.FormValue("focus")

	model := service.NewRoutineListModel(h.routines, h.exercises, user.ID)
	routine, res := model.Create(r.Context(), name, focus)
	if !res.Success {
		model.Fetch(r.Context())
		page(w, r, http.StatusUnprocessableEntity, view.RoutinesPage(view.RoutinesData{
			Layout: layout(r, "Routines", "routines"),
			Items:  model.Routines,
			Name:   name,
			Focus:  focus,
			Error:  res.Error,
		}))
		return
	}
	redirect(w, r, "/routines/"+routine.ID)
}

// HandleDelete deletes a routine with its exercises.
// POST /routines/{id}/delete
func (h *RoutineHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	model := service.NewRoutineListModel(h.routines, h.exercises, user.ID)
	if res := model.Delete(r.Context(), r.PathValue("id")); !res.Success {
		model.Fetch(r.Context())
		page(w, r, http.StatusUnprocessableEntity, view.RoutinesPage(view.RoutinesData{
			Layout: layout(r, "Routines", "routines"),
			Items:  model.Routines,
			Error:  res.Error,
		}))
		return
	}
	redirect(w, r, "/routines")
}

// routineScreen is the state of an open routine editor.
type routineScreen struct {
	id     string
	model  *service.RoutineModel
	fields *fieldSet
}

// HandleView opens the routine editor.
// GET /routines/{id}
func (h *RoutineHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	model := service.NewRoutineModel(h.routines, h.exercises, user.ID, r.PathValue("id"))
	model.Fetch(r.Context())
	if model.NotFound() {
		notFound(w, r)
		return
	}
	if model.Routine == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	st := &routineScreen{model: model}
	screen := h.screens.Open(user.ID, routineScreenKind, st)
	st.id = screen.ID
	st.fields = newFieldSet(screen)

	var html string
	err := screen.Do(r.Context(), func(ctx context.Context) {
		st.syncFields()
		html = render(ctx, view.RoutinePage(view.RoutineData{
			Layout:    layout(r, model.Routine.Name, "routines"),
			Screen:    screen.ID,
			Routine:   *model.Routine,
			Exercises: st.exercisesData(),
		}))
	})
	if err != nil {
		h.screens.Close(screen.ID)
		slog.Error("open routine screen", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (st *routineScreen) exercisesData() view.RoutineExercisesData {
	return view.RoutineExercisesData{
		Screen:    st.id,
		RoutineID: st.model.Routine.ID,
		Exercises: st.model.Exercises,
		Error:     st.model.Err,
	}
}

func (st *routineScreen) syncFields() {
	m := st.model
	want := map[string]field{
		"name": {saved: m.Routine.Name, apply: func(ctx context.Context, v string) error {
			return resultErr(m.Update(ctx, domain.RoutineUpdate{Name: domain.NewField(v)}))
		}},
		"focus": {saved: deref(m.Routine.Focus), apply: func(ctx context.Context, v string) error {
			return resultErr(m.Update(ctx, domain.RoutineUpdate{Focus: domain.NewField(&v)}))
		}},
	}

	for _, e := range m.Exercises {
		id := e.ID
		want[view.RoutineExerciseKey(id, "name")] = field{saved: e.Name, apply: func(ctx context.Context, v string) error {
			return resultErr(m.UpdateExercise(ctx, id, domain.RoutineExerciseUpdate{Name: domain.NewField(v)}))
		}}
		want[view.RoutineExerciseKey(id, "sets")] = field{saved: intString(e.Sets), apply: func(ctx context.Context, v string) error {
			sets, err := optionalInt(v, "Sets")
			if err != nil {
				return err
			}
			return resultErr(m.UpdateExercise(ctx, id, domain.RoutineExerciseUpdate{Sets: domain.NewField(sets)}))
		}}
		want[view.RoutineExerciseKey(id, "reps")] = field{saved: deref(e.Reps), apply: func(ctx context.Context, v string) error {
			return resultErr(m.UpdateExercise(ctx, id, domain.RoutineExerciseUpdate{Reps: domain.NewField(optionalString(v))}))
		}}
		want[view.RoutineExerciseKey(id, "rest")] = field{saved: intString(e.RestSeconds), apply: func(ctx context.Context, v string) error {
			rest, err := optionalInt(v, "Rest")
			if err != nil {
				return err
			}
			return resultErr(m.UpdateExercise(ctx, id, domain.RoutineExerciseUpdate{RestSeconds: domain.NewField(rest)}))
		}}
	}
	st.fields.sync(want)
}

func (st *routineScreen) fragments(context.Context, string) []templ.Component {
	return nil
}

// HandleAddExercise appends an exercise named by the newexercise signal.
// POST /live/{screen}/routine-exercises
func (h *RoutineHandler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	signals := map[string]any{}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	name := signalString(signals["newexercise"])

	h.mutate(w, r, func(ctx context.Context, m *service.RoutineModel) service.Result {
		return m.AddExercise(ctx, domain.RoutineExercise{Name: name})
	}, map[string]any{"newexercise": ""})
}

// HandleDeleteExercise removes an exercise from the routine.
// POST /live/{screen}/routine-exercises/{id}/delete
func (h *RoutineHandler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mutate(w, r, func(ctx context.Context, m *service.RoutineModel) service.Result {
		return m.DeleteExercise(ctx, id)
	}, nil)
}

func (h *RoutineHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, m *service.RoutineModel) service.Result, clear map[string]any) {
	screen, ok := findScreen(w, r, h.screens, routineScreenKind)
	if !ok {
		return
	}
	st := screen.State.(*routineScreen)

	var (
		res  service.Result
		html string
	)
	err := screen.Do(r.Context(), func(ctx context.Context) {
		res = fn(ctx, st.model)
		st.syncFields()
		data := st.exercisesData()
		if !res.Success {
			data.Error = res.Error
		}
		html = render(ctx, view.RoutineExercisesFragment(data))
	})
	if err != nil {
		if errors.Is(err, live.ErrClosed) {
			reload(w, r)
			return
		}
		slog.Debug("routine action", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElements(html); err != nil {
		slog.Debug("patch routine exercises", "error", err)
		return
	}
	if res.Success && clear != nil {
		if err := sse.MarshalAndPatchSignals(clear); err != nil {
			slog.Debug("patch signals", "error", err)
		}
	}
}
