package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/gorilla/csrf"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/tempo/internal/view"
)

// page renders a full HTML page.
func page(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render page", "path", r.URL.Path, "error", err)
	}
}

func layout(r *http.Request, title, nav string) view.Layout {
	return view.Layout{
		Title:     title,
		CSRFToken: csrf.Token(r),
		Nav:       nav,
		SignedIn:  UserFromContext(r.Context()) != nil,
	}
}

// redirect sends the browser to url, through the event stream when the
// request came from datastar.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isDatastar(r) {
		sse := datastar.NewSSE(w, r)
		if err := sse.Redirect(url); err != nil {
			slog.Debug("redirect", "error", err)
		}
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	page(w, r, http.StatusNotFound, view.NotFoundPage(layout(r, "", "")))
}

// signalString flattens a datastar signal value. Number inputs may arrive as
// JSON numbers.
func signalString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
