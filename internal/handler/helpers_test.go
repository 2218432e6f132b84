package handler_test

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/handler"
	"github.com/msomdec/tempo/internal/live"
	"github.com/msomdec/tempo/internal/mail"
	"github.com/msomdec/tempo/internal/metrics"
	"github.com/msomdec/tempo/internal/repository/sqlite"
	"github.com/msomdec/tempo/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

var testCSRFKey = []byte("0123456789abcdef0123456789abcdef")

// testNow is the fixed "today" of the handler tests: day 69 of 2026.
var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.Local)

const today = "2026-03-10"

// outbox records sent mail.
type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return "test-id", nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

func (o *outbox) last(t *testing.T) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		t.Fatal("no mail sent")
	}
	return o.msgs[len(o.msgs)-1]
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuthService(t *testing.T, db *sqlite.DB, box mail.Sender) *service.AuthService {
	t.Helper()
	auth := service.NewAuthService(db.Users(), db.MagicLinks(), box, service.AuthConfig{
		JWTSecret:  testJWTSecret,
		BcryptCost: 4,
		BaseURL:    "http://localhost:8080",
	})
	t.Cleanup(auth.Close)
	return auth
}

// testApp is the full handler stack behind an httptest server and a
// browser-like client that keeps cookies and does not follow redirects.
type testApp struct {
	srv     *httptest.Server
	client  *http.Client
	db      *sqlite.DB
	mail    *outbox
	screens *live.Registry
	metrics *metrics.Manager
	reg     *prometheus.Registry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := newTestDB(t)
	box := &outbox{}
	m, reg := metrics.NewTestManagerAndRegistry()
	screens := live.NewRegistry(10*time.Millisecond, live.WithObserver(m))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		screens.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	h := handler.New(handler.Deps{
		Auth:             newTestAuthService(t, db, box),
		Profiles:         db.Profiles(),
		Sessions:         db.Sessions(),
		Routines:         db.Routines(),
		RoutineExercises: db.RoutineExercises(),
		SessionExercises: db.SessionExercises(),
		SessionSets:      db.SessionSets(),
		Screens:          screens,
		Metrics:          m,
		Gatherer:         reg,
		CookieSecure:     false,
		CSRFKey:          testCSRFKey,
		Now:              func() time.Time { return testNow },
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // don't follow redirects automatically
		},
	}

	return &testApp{srv: srv, client: client, db: db, mail: box, screens: screens, metrics: m, reg: reg}
}

type response struct {
	status   int
	location string
	body     string
}

func (a *testApp) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (a *testApp) get(t *testing.T, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return a.do(t, req)
}

var csrfPattern = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]*)"`)

// csrfToken reads a form token from a page that always renders a form.
func (a *testApp) csrfToken(t *testing.T) string {
	t.Helper()
	resp := a.get(t, "/onboarding?step=2")
	m := csrfPattern.FindStringSubmatch(resp.body)
	if m == nil {
		t.Fatalf("no csrf token in page:\n%s", resp.body)
	}
	return html.UnescapeString(m[1])
}

// postForm submits a form the way the browser does, token included.
func (a *testApp) postForm(t *testing.T, path string, values url.Values) response {
	t.Helper()
	if values == nil {
		values = url.Values{}
	}
	values.Set("gorilla.csrf.Token", a.csrfToken(t))
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+path, strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

// action posts signals the way datastar does.
func (a *testApp) action(t *testing.T, path string, signals map[string]string) response {
	t.Helper()
	if signals == nil {
		signals = map[string]string{}
	}
	body, err := json.Marshal(signals)
	if err != nil {
		t.Fatalf("marshal signals: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+path, strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")
	return a.do(t, req)
}

// signUp creates an account and a profile named Alex, leaving the client
// signed in.
func (a *testApp) signUp(t *testing.T, email string) *domain.User {
	t.Helper()
	resp := a.postForm(t, "/auth/sign-up", url.Values{"email": {email}, "password": {"password123"}})
	if resp.status != http.StatusSeeOther || resp.location != "/profile-setup" {
		t.Fatalf("sign up: got %d %q, body:\n%s", resp.status, resp.location, resp.body)
	}
	resp = a.postForm(t, "/profile-setup", url.Values{"preferred_name": {"Alex"}})
	if resp.status != http.StatusSeeOther {
		t.Fatalf("profile setup: got %d, body:\n%s", resp.status, resp.body)
	}

	user, err := a.db.Users().GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	return user
}

var screenPattern = regexp.MustCompile(`/live/([0-9a-f-]{36})`)

func screenID(t *testing.T, page string) string {
	t.Helper()
	m := screenPattern.FindStringSubmatch(page)
	if m == nil {
		t.Fatalf("no live screen in page:\n%s", page)
	}
	return m[1]
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
