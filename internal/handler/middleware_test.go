package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/msomdec/tempo/internal/handler"
	"github.com/msomdec/tempo/internal/metrics"
)

func TestSecurityHeaders(t *testing.T) {
	h := handler.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Fatalf("%s: expected %q, got %q", name, want, got)
		}
	}
	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "https://cdn.jsdelivr.net") || !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Fatalf("unexpected CSP %q", csp)
	}
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.NewTestManager()
	h := handler.RequestMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	if got := testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "418")); got != 3 {
		t.Fatalf("expected 3 requests counted as 418, got %v", got)
	}
	if got := testutil.ToFloat64(m.GaugeRequests); got != 0 {
		t.Fatalf("expected no requests in flight, got %v", got)
	}
}

func TestRecover(t *testing.T) {
	m := metrics.NewTestManager()
	h := handler.Recover(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := testutil.ToFloat64(m.CounterHandlerPanics); got != 1 {
		t.Fatalf("expected one panic counted, got %v", got)
	}
}

func TestCSRF(t *testing.T) {
	var reached int
	h := handler.CSRF(testCSRFKey, false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/routines", strings.NewReader("name=Legs")))
	if w.Code != http.StatusForbidden {
		t.Fatalf("form post without token: expected 403, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/live/abc", strings.NewReader("{}"))
	req.Header.Set("Datastar-Request", "true")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("datastar request: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/routines", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("safe method: expected 200, got %d", w.Code)
	}

	if reached != 2 {
		t.Fatalf("expected the handler to run twice, got %d", reached)
	}
}

func TestLoadAuth_ClearsInvalidCookie(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuthService(t, db, &outbox{})

	var signedIn bool
	h := handler.LoadAuth(auth, db.Profiles(), false, time.Now)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signedIn = handler.UserFromContext(r.Context()) != nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "not-a-token"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if signedIn {
		t.Fatal("expected no user for an invalid token")
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "auth_token" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected the auth cookie to be cleared, got %v", cookies)
	}
}

func TestLoadAuth_NoCookie(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuthService(t, db, &outbox{})

	h := handler.LoadAuth(auth, db.Profiles(), false, time.Now)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler.AuthFromContext(r.Context()) == nil {
			t.Error("expected an auth store on the request")
		}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(w.Result().Cookies()) != 0 {
		t.Fatalf("expected no cookies, got %v", w.Result().Cookies())
	}
}
