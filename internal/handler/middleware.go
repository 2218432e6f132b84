package handler

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/metrics"
	"github.com/msomdec/tempo/internal/service"
)

type contextKey string

const authContextKey contextKey = "auth"

const authCookieName = "auth_token"

// requestAuth is the auth state of one request: the browser's token client
// and the store built on it.
type requestAuth struct {
	client *service.TokenClient
	store  *service.AuthStore
}

// AuthFromContext returns the auth store of the request. It is nil outside
// LoadAuth.
func AuthFromContext(ctx context.Context) *service.AuthStore {
	ra, _ := ctx.Value(authContextKey).(*requestAuth)
	if ra == nil {
		return nil
	}
	return ra.store
}

// UserFromContext returns the signed-in user or nil.
func UserFromContext(ctx context.Context) *domain.User {
	store := AuthFromContext(ctx)
	if store == nil {
		return nil
	}
	return store.State().User
}

func clientFromContext(ctx context.Context) *service.TokenClient {
	ra, _ := ctx.Value(authContextKey).(*requestAuth)
	if ra == nil {
		return nil
	}
	return ra.client
}

// LoadAuth builds the request's auth store from the auth_token cookie and
// initializes it. A token past half its lifetime is refreshed and the new
// cookie written; an invalid one is cleared.
func LoadAuth(auth *service.AuthService, profiles domain.ProfileRepository, secure bool, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(authCookieName); err == nil {
				token = cookie.Value
			}

			client := service.NewTokenClient(auth, token)
			store := service.NewAuthStore(client, profiles)
			defer store.Close()

			store.Initialize(r.Context())
			client.RefreshIfStale(r.Context(), now())
			if token != "" && client.Token() != token {
				setAuthCookie(w, client.Token(), secure)
			}

			ctx := context.WithValue(r.Context(), authContextKey, &requestAuth{client: client, store: store})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setAuthCookie stores token in the auth cookie, or expires the cookie when
// token is empty.
func setAuthCookie(w http.ResponseWriter, token string, secure bool) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

// RequireUser guards a page. Signed-out users go to the auth page with the
// attempted location remembered; users without a profile go to profile setup
// when requireProfile is set.
func RequireUser(requireProfile bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := AuthFromContext(r.Context())
		if store == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		d := service.Guard(store.State(), requireProfile, r.URL.RequestURI())
		if d.Loading {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		if d.Redirect != "" {
			redirect(w, r, d.Redirect)
			return
		}
		next(w, r)
	}
}

// SecurityHeaders adds OWASP recommended headers. Datastar evaluates its
// attribute expressions, so scripts need 'unsafe-eval'.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-eval' https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// CSRF protects form posts. Datastar requests carry a custom header that a
// cross-site form cannot send and are exempt, as are safe methods handled by
// csrf itself. Without secure cookies the request is treated as plain HTTP so
// the referer check does not reject it.
func CSRF(authKey []byte, secure bool, trustedOrigins []string) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(trustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("csrf rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "Forbidden", http.StatusForbidden)
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isDatastar(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func isDatastar(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Datastar-Request"), "true")
}

// RequestMetrics counts and times requests.
func RequestMetrics(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.GaugeRequests.Inc()
			defer func(begin time.Time) {
				m.GaugeRequests.Dec()
				m.HistRequestDuration.Observe(time.Since(begin).Seconds())
			}(time.Now())

			resp := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(resp, r)

			m.CounterRequests.WithLabelValues(r.Method, strconv.Itoa(resp.statusCode)).Inc()
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Flush keeps event streams working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Recover turns a handler panic into a 500 and counts it.
func Recover(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					slog.Error("panic serving request", "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
					m.CounterHandlerPanics.Inc()
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares in order, the first being innermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
