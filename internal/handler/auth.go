package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/msomdec/tempo/internal/metrics"
	"github.com/msomdec/tempo/internal/service"
	"github.com/msomdec/tempo/internal/view"
)

// AuthHandler handles sign-in, sign-up, emailed links and sign-out.
type AuthHandler struct {
	metrics *metrics.Manager
	secure  bool
	now     func() time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(m *metrics.Manager, secure bool, now func() time.Time) *AuthHandler {
	return &AuthHandler{metrics: m, secure: secure, now: now}
}

// HandleAuthPage renders the auth page, or sends a signed-in user on.
// First-time visitors arriving without a target see onboarding first.
// GET /auth?mode=sign-in|sign-up|magic-link&from=/path
func (h *AuthHandler) HandleAuthPage(w http.ResponseWriter, r *http.Request) {
	store := AuthFromContext(r.Context())
	from := r.URL.Query().Get("from")

	st := store.State()
	if st.User != nil {
		redirect(w, r, service.AfterSignIn(st, from, h.now()))
		return
	}
	if from == "" && !onboarded(r) {
		redirect(w, r, onboardingPath)
		return
	}

	page(w, r, http.StatusOK, view.AuthPage(view.AuthData{
		Layout: layout(r, "Sign in", ""),
		Mode:   r.URL.Query().Get("mode"),
		From:   from,
	}))
}

// HandleSignIn signs in with email and password.
// POST /auth/sign-in
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	h.passwordAuth(w, r, view.AuthModeSignIn, "password", AuthFromContext(r.Context()).SignIn)
}

// HandleSignUp creates an account and signs it in.
// POST /auth/sign-up
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	h.passwordAuth(w, r, view.AuthModeSignUp, "sign_up", AuthFromContext(r.Context()).SignUp)
}

func (h *AuthHandler) passwordAuth(w http.ResponseWriter, r *http.Request, mode, method string, call func(ctx context.Context, email, password string) service.Result) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	from := r.FormValue("from")

	res := call(r.Context(), email, r.FormValue("password"))
	h.metrics.AuthAttempt(method, res.Success)
	if !res.Success {
		h.renderError(w, r, mode, email, from, res.Error)
		return
	}

	setAuthCookie(w, clientFromContext(r.Context()).Token(), h.secure)
	redirect(w, r, service.AfterSignIn(AuthFromContext(r.Context()).State(), from, h.now()))
}

// HandleMagicLink emails a one-time sign-in link.
// POST /auth/magic-link
func (h *AuthHandler) HandleMagicLink(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	from := service.SafeRedirect(r.FormValue("from"), "")

	res := AuthFromContext(r.Context()).SignInWithMagicLink(r.Context(), email, from)
	if !res.Success {
		h.renderError(w, r, view.AuthModeMagicLink, email, from, res.Error)
		return
	}

	page(w, r, http.StatusOK, view.CheckEmailPage(view.CheckEmailData{
		Layout: layout(r, "Check your email", ""),
		Email:  email,
	}))
}

// HandleVerify completes an emailed sign-in link.
// GET /auth/verify?token=...&from=/path
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	store := AuthFromContext(r.Context())
	from := r.URL.Query().Get("from")

	res := store.VerifyMagicLink(r.Context(), r.URL.Query().Get("token"))
	h.metrics.AuthAttempt("magic_link", res.Success)
	if !res.Success {
		h.renderError(w, r, view.AuthModeMagicLink, "", from, res.Error)
		return
	}

	setAuthCookie(w, clientFromContext(r.Context()).Token(), h.secure)
	redirect(w, r, service.AfterSignIn(store.State(), from, h.now()))
}

// HandleSignOut clears the session and the auth cookie.
// POST /auth/sign-out
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	AuthFromContext(r.Context()).SignOut(r.Context())
	setAuthCookie(w, "", h.secure)
	redirect(w, r, service.AuthPath)
}

func (h *AuthHandler) renderError(w http.ResponseWriter, r *http.Request, mode, email, from, msg string) {
	page(w, r, http.StatusUnprocessableEntity, view.AuthPage(view.AuthData{
		Layout: layout(r, "Sign in", ""),
		Mode:   mode,
		Email:  email,
		From:   from,
		Error:  msg,
	}))
}
