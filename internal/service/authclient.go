package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// AuthEvent is a change of authentication state pushed to listeners.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener receives auth events. session is nil for EventSignedOut.
type AuthListener func(ctx context.Context, event AuthEvent, session *Session)

// AuthClient is the client side of the auth service as seen by one browser.
type AuthClient interface {
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignInWithOtp(ctx context.Context, email, redirectTo string) error
	VerifyOtp(ctx context.Context, token string) (*Session, error)
	SignOut(ctx context.Context) error
	RefreshSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn AuthListener) (unsubscribe func())
}

// TokenClient is an AuthClient holding one browser's access token. Listeners
// are called synchronously on the goroutine that caused the event.
type TokenClient struct {
	auth *AuthService

	mu        sync.Mutex
	token     string
	session   *Session
	listeners map[int]AuthListener
	nextID    int
}

// NewTokenClient returns a client for the given access token, which may be empty.
func NewTokenClient(auth *AuthService, token string) *TokenClient {
	return &TokenClient{
		auth:      auth,
		token:     token,
		listeners: make(map[int]AuthListener),
	}
}

// Token returns the current access token, empty when signed out.
func (c *TokenClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// GetSession returns the current session or nil when there is none. An
// invalid or expired token is dropped and reported as no session.
func (c *TokenClient) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	token, session := c.token, c.session
	c.mu.Unlock()

	if session != nil {
		return session, nil
	}
	if token == "" {
		return nil, nil
	}

	session, err := c.auth.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.setSession(nil)
			return nil, nil
		}
		return nil, err
	}
	c.setSession(session)
	return session, nil
}

func (c *TokenClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	session, err := c.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setSession(session)
	c.emit(ctx, EventSignedIn, session)
	return session, nil
}

func (c *TokenClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	session, err := c.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setSession(session)
	c.emit(ctx, EventSignedIn, session)
	return session, nil
}

func (c *TokenClient) SignInWithOtp(ctx context.Context, email, redirectTo string) error {
	return c.auth.SendMagicLink(ctx, email, redirectTo)
}

func (c *TokenClient) VerifyOtp(ctx context.Context, token string) (*Session, error) {
	session, err := c.auth.VerifyMagicLink(ctx, token)
	if err != nil {
		return nil, err
	}
	c.setSession(session)
	c.emit(ctx, EventSignedIn, session)
	return session, nil
}

// SignOut forgets the token. Tokens are stateless, so there is nothing to revoke.
func (c *TokenClient) SignOut(ctx context.Context) error {
	c.setSession(nil)
	c.emit(ctx, EventSignedOut, nil)
	return nil
}

func (c *TokenClient) RefreshSession(ctx context.Context) (*Session, error) {
	current, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrUnauthorized
	}
	session, err := c.auth.Refresh(ctx, current)
	if err != nil {
		return nil, err
	}
	c.setSession(session)
	c.emit(ctx, EventTokenRefreshed, session)
	return session, nil
}

// RefreshIfStale refreshes the session once more than half its lifetime has passed.
func (c *TokenClient) RefreshIfStale(ctx context.Context, now time.Time) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil || !session.NeedsRefresh(now) {
		return
	}
	if _, err := c.RefreshSession(ctx); err != nil {
		slog.Warn("refresh session", "error", err)
	}
}

func (c *TokenClient) OnAuthStateChange(fn AuthListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *TokenClient) setSession(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = session
	c.token = ""
	if session != nil {
		c.token = session.AccessToken
	}
}

func (c *TokenClient) emit(ctx context.Context, event AuthEvent, session *Session) {
	c.mu.Lock()
	listeners := make([]AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, event, session)
	}
}
