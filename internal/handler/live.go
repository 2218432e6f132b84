package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/tempo/internal/live"
	"github.com/msomdec/tempo/internal/service"
	"github.com/msomdec/tempo/internal/view"
)

// screenState is what a live screen holds for its page.
type screenState interface {
	// fragments returns the parts of the page to re-render after key was
	// saved. It runs on the screen loop.
	fragments(ctx context.Context, key string) []templ.Component
}

// LiveHandler receives field edits of open editor pages and streams the
// autosave outcomes back.
type LiveHandler struct {
	screens *live.Registry
}

func NewLiveHandler(screens *live.Registry) *LiveHandler {
	return &LiveHandler{screens: screens}
}

// HandleSignals records the edited fields of a page. Each field saves itself
// once it has been left alone for the autosave delay.
// POST /live/{screen}
func (h *LiveHandler) HandleSignals(w http.ResponseWriter, r *http.Request) {
	screen, ok := findScreen(w, r, h.screens, "")
	if !ok {
		return
	}
	signals := map[string]any{}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	for key, v := range signals {
		screen.Set(key, signalString(v))
	}

	sse := datastar.NewSSE(w, r)
	if screen.Pending() > 0 {
		patch(sse, view.SaveStatus("Saving…", false))
	}
}

// HandleStream holds the page's event stream open and patches the save
// status as writes land. The screen closes when the stream ends; edits still
// inside the autosave delay are dropped.
// GET /live/{screen}
func (h *LiveHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		redirect(w, r, service.AuthPath)
		return
	}
	screen, ok := h.screens.Attach(r.PathValue("screen"), user.ID)
	if !ok {
		reload(w, r)
		return
	}
	defer h.screens.Close(screen.ID)

	sse := datastar.NewSSE(w, r)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-screen.Done():
			return
		case u := <-screen.Updates():
			if err := h.patchUpdate(r.Context(), sse, screen, u); err != nil {
				slog.Debug("live stream", "screen", screen.ID, "error", err)
				return
			}
		}
	}
}

func (h *LiveHandler) patchUpdate(ctx context.Context, sse *datastar.ServerSentEventGenerator, screen *live.Screen, u live.Update) error {
	status := view.SaveStatus("Saved", false)
	switch {
	case u.Err != nil:
		status = view.SaveStatus(u.Err.Error(), true)
	case screen.Pending() > 0:
		status = view.SaveStatus("Saving…", false)
	}
	if err := sse.PatchElementTempl(status); err != nil {
		return err
	}
	if u.Err != nil {
		return nil
	}

	st, ok := screen.State.(screenState)
	if !ok {
		return nil
	}
	var fragments []string
	err := screen.Do(ctx, func(ctx context.Context) {
		for _, c := range st.fragments(ctx, u.Key) {
			html, err := view.String(ctx, c)
			if err != nil {
				slog.Error("render fragment", "screen", screen.Kind, "error", err)
				continue
			}
			fragments = append(fragments, html)
		}
	})
	if err != nil {
		return err
	}
	for _, html := range fragments {
		if err := sse.PatchElements(html); err != nil {
			return err
		}
	}
	return nil
}

// findScreen looks up the screen of a live request owned by the signed-in
// user. A stale page whose screen is gone is reloaded. kind, when set, must
// match the screen's kind.
func findScreen(w http.ResponseWriter, r *http.Request, screens *live.Registry, kind string) (*live.Screen, bool) {
	user := UserFromContext(r.Context())
	if user == nil {
		redirect(w, r, service.AuthPath)
		return nil, false
	}
	screen, ok := screens.Get(r.PathValue("screen"), user.ID)
	if !ok {
		reload(w, r)
		return nil, false
	}
	if kind != "" && screen.Kind != kind {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, false
	}
	return screen, true
}

func reload(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	if err := sse.ExecuteScript("window.location.reload()"); err != nil {
		slog.Debug("reload page", "error", err)
	}
}

func patch(sse *datastar.ServerSentEventGenerator, c templ.Component) {
	if err := sse.PatchElementTempl(c); err != nil {
		slog.Debug("patch elements", "error", err)
	}
}

// render renders a component on the screen loop for sending afterwards.
func render(ctx context.Context, c templ.Component) string {
	html, err := view.String(ctx, c)
	if err != nil {
		slog.Error("render fragment", "error", err)
	}
	return html
}

// field is one autosaved input of a screen.
type field struct {
	saved string
	apply live.Applier
}

// fieldSet keeps a screen watching exactly the fields its rows currently
// have. It must only be used on the screen loop.
type fieldSet struct {
	screen  *live.Screen
	watched map[string]bool
}

func newFieldSet(screen *live.Screen) *fieldSet {
	return &fieldSet{screen: screen, watched: map[string]bool{}}
}

func (f *fieldSet) sync(want map[string]field) {
	for key := range f.watched {
		if _, ok := want[key]; !ok {
			f.screen.Unwatch(key)
			delete(f.watched, key)
		}
	}
	for key, fl := range want {
		if !f.watched[key] {
			f.screen.Watch(key, fl.saved, fl.apply)
			f.watched[key] = true
		}
	}
}

// fieldError is a failed autosave as shown next to the page's save status.
type fieldError string

func (e fieldError) Error() string { return string(e) }

func resultErr(res service.Result) error {
	if res.Success {
		return nil
	}
	return fieldError(res.Error)
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// optionalInt parses a non-negative whole number; blank is nil.
func optionalInt(v, name string) (*int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fieldError(name + " must be a whole number.")
	}
	return &n, nil
}

func optionalFloat(v, name string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil, fieldError(name + " must be a number.")
	}
	return &f, nil
}
