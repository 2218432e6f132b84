package service_test

import (
	"context"
	"net/url"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/mail"
	"github.com/msomdec/tempo/internal/repository/sqlite"
	"github.com/msomdec/tempo/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

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

func (o *outbox) last(t *testing.T) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		t.Fatal("no mail sent")
	}
	return o.msgs[len(o.msgs)-1]
}

var linkPattern = regexp.MustCompile(`\((http[^)]+)\)`)

// tokenFrom extracts the sign-in token from a magic link email.
func tokenFrom(t *testing.T, msg mail.Message) string {
	t.Helper()
	m := linkPattern.FindStringSubmatch(msg.Body)
	if m == nil {
		t.Fatalf("no link in body %q", msg.Body)
	}
	u, err := url.Parse(m[1])
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	return u.Query().Get("token")
}

func newTestAuthService(t *testing.T, db *sqlite.DB) (*service.AuthService, *outbox) {
	t.Helper()
	box := &outbox{}
	auth := service.NewAuthService(db.Users(), db.MagicLinks(), box, service.AuthConfig{
		JWTSecret:  testJWTSecret,
		BcryptCost: 4,
		BaseURL:    "http://localhost:8080",
	})
	t.Cleanup(auth.Close)
	return auth, box
}

// signedInUser creates an account and returns it with its session.
func signedInUser(t *testing.T, auth *service.AuthService, email string) *service.Session {
	t.Helper()
	session, err := auth.SignUp(context.Background(), email, "password123")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	return session
}

func newTestProfile(t *testing.T, db *sqlite.DB, userID, name string) {
	t.Helper()
	if err := db.Profiles().Create(context.Background(), &domain.Profile{ID: userID, PreferredName: name}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
}
