package handler

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/live"
	"github.com/msomdec/tempo/internal/metrics"
	"github.com/msomdec/tempo/internal/service"
)

// Deps is everything the handlers need.
type Deps struct {
	Auth             *service.AuthService
	Profiles         domain.ProfileRepository
	Sessions         domain.GymSessionRepository
	Routines         domain.RoutineRepository
	RoutineExercises domain.RoutineExerciseRepository
	SessionExercises domain.SessionExerciseRepository
	SessionSets      domain.SessionSetRepository

	Screens  *live.Registry
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer

	CookieSecure   bool
	CSRFKey        []byte
	TrustedOrigins []string
	// Now is the clock deciding "today". Defaults to time.Now.
	Now func() time.Time
}

// New returns the application's HTTP handler with its middleware applied.
func New(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)

	return Chain(mux,
		CSRF(deps.CSRFKey, deps.CookieSecure, deps.TrustedOrigins),
		Recover(deps.Metrics),
		SecurityHeaders,
		RequestMetrics(deps.Metrics),
	)
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, deps Deps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	withAuth := LoadAuth(deps.Auth, deps.Profiles, deps.CookieSecure, deps.Now)
	app := func(h http.HandlerFunc) http.Handler { return withAuth(h) }
	// Pages that need a signed-in user with a profile.
	member := func(h http.HandlerFunc) http.Handler { return withAuth(RequireUser(true, h)) }

	mux.HandleFunc("GET /healthz", HandleHealthz)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", HandleMetrics(deps.Gatherer))
	}

	authHandler := NewAuthHandler(deps.Metrics, deps.CookieSecure, deps.Now)
	mux.Handle("GET /auth", app(authHandler.HandleAuthPage))
	mux.Handle("POST /auth/sign-in", app(authHandler.HandleSignIn))
	mux.Handle("POST /auth/sign-up", app(authHandler.HandleSignUp))
	mux.Handle("POST /auth/magic-link", app(authHandler.HandleMagicLink))
	mux.Handle("GET /auth/verify", app(authHandler.HandleVerify))
	mux.Handle("POST /auth/sign-out", app(authHandler.HandleSignOut))

	homeHandler := NewHomeHandler(deps.Sessions, deps.Now)
	mux.Handle("GET /{$}", app(homeHandler.HandleRoot))
	mux.Handle("GET /profile-setup", app(homeHandler.HandleProfileSetupPage))
	mux.Handle("POST /profile-setup", app(homeHandler.HandleProfileSetup))
	mux.Handle("GET /onboarding", app(homeHandler.HandleOnboarding))
	mux.Handle("POST /onboarding", app(homeHandler.HandleOnboardingComplete))
	mux.Handle("GET /year", member(homeHandler.HandleYear))

	sessionHandler := NewSessionHandler(deps)
	mux.Handle("GET /session/{date}", member(sessionHandler.HandleView))

	routineHandler := NewRoutineHandler(deps)
	mux.Handle("GET /routines", member(routineHandler.HandleList))
	mux.Handle("POST /routines", member(routineHandler.HandleCreate))
	mux.Handle("POST /routines/{id}/delete", member(routineHandler.HandleDelete))
	mux.Handle("GET /routines/{id}", member(routineHandler.HandleView))

	// Live screens: field edits, the event stream and row actions of the
	// session and routine editors.
	liveHandler := NewLiveHandler(deps.Screens)
	mux.Handle("GET /live/{screen}", app(liveHandler.HandleStream))
	mux.Handle("POST /live/{screen}", app(liveHandler.HandleSignals))
	mux.Handle("POST /live/{screen}/exercises", app(sessionHandler.HandleAddExercise))
	mux.Handle("POST /live/{screen}/exercises/{id}/delete", app(sessionHandler.HandleDeleteExercise))
	mux.Handle("POST /live/{screen}/exercises/{id}/sets", app(sessionHandler.HandleAddSet))
	mux.Handle("POST /live/{screen}/sets/{id}/delete", app(sessionHandler.HandleDeleteSet))
	mux.Handle("POST /live/{screen}/copy/{routineId}", app(sessionHandler.HandleCopyRoutine))
	mux.Handle("POST /live/{screen}/routine-exercises", app(routineHandler.HandleAddExercise))
	mux.Handle("POST /live/{screen}/routine-exercises/{id}/delete", app(routineHandler.HandleDeleteExercise))

	mux.Handle("/", app(notFound))
}
