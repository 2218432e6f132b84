package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/mail"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	MagicLinkTTL    = 15 * time.Minute
)

// Session is an authenticated session: a signed access token and its user.
type Session struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	User        *domain.User
}

// NeedsRefresh reports whether more than half of the token lifetime has passed.
func (s *Session) NeedsRefresh(now time.Time) bool {
	half := s.ExpiresAt.Sub(s.IssuedAt) / 2
	return now.After(s.IssuedAt.Add(half))
}

// AuthConfig holds the settings of the auth service.
type AuthConfig struct {
	JWTSecret  string
	BcryptCost int
	// BaseURL is the public origin used to build emailed sign-in links.
	BaseURL  string
	TokenTTL time.Duration
}

// AuthService is the authentication backend: password accounts, signed
// session tokens and emailed one-time sign-in links.
type AuthService struct {
	users      domain.UserRepository
	links      domain.MagicLinkRepository
	mailer     mail.Sender
	limiter    *TokenBucket
	jwtSecret  []byte
	bcryptCost int
	baseURL    string
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewAuthService creates a new AuthService. Magic link requests are limited
// to three per email address per ten minutes.
func NewAuthService(users domain.UserRepository, links domain.MagicLinkRepository, mailer mail.Sender, cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		users:      users,
		links:      links,
		mailer:     mailer,
		limiter:    NewTokenBucket(3.0/600, 3),
		jwtSecret:  []byte(cfg.JWTSecret),
		bcryptCost: cfg.BcryptCost,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokenTTL:   ttl,
		now:        time.Now,
	}
}

// SignUp creates a password account and signs it in. Accounts are confirmed
// on creation.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if v := ValidateEmail(email); !v.Valid {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if v := ValidatePassword(password); !v.Valid {
		return nil, fmt.Errorf("%w: password too short", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// SignInWithPassword verifies credentials and returns a new session.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	// Accounts created through a magic link have no password.
	if user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

// SendMagicLink emails a one-time sign-in link, creating the account if it
// does not exist. redirectTo is carried through the link as the page to open
// after sign-in.
func (s *AuthService) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	email = strings.TrimSpace(email)
	if v := ValidateEmail(email); !v.Valid {
		return fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if !s.limiter.Allow(strings.ToLower(email)) {
		return domain.ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		user = &domain.User{Email: email}
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		return fmt.Errorf("find or create user: %w", err)
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	link := &domain.MagicLink{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(MagicLinkTTL),
	}
	if err := s.links.Create(ctx, link); err != nil {
		return fmt.Errorf("store magic link: %w", err)
	}

	q := url.Values{"token": {token}}
	if redirectTo != "" {
		q.Set("from", redirectTo)
	}
	if _, err := s.mailer.Send(ctx, mail.MagicLinkMessage(user.Email, s.baseURL+"/auth/verify?"+q.Encode())); err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}
	return nil
}

// VerifyMagicLink consumes an emailed token and returns a session for its user.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (*Session, error) {
	link, err := s.links.Consume(ctx, hashToken(token), s.now())
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, link.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.issue(user)
}

// GetSession resolves an access token to its session. An invalid or expired
// token yields ErrUnauthorized.
func (s *AuthService) GetSession(ctx context.Context, tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, domain.ErrUnauthorized
	}
	iat, err := token.Claims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, domain.ErrUnauthorized
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &Session{
		AccessToken: tokenString,
		IssuedAt:    iat.Time,
		ExpiresAt:   exp.Time,
		User:        user,
	}, nil
}

// Refresh issues a new token for the session's user.
func (s *AuthService) Refresh(ctx context.Context, session *Session) (*Session, error) {
	user, err := s.users.GetByID(ctx, session.User.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	now := s.now()
	exp := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{
		AccessToken: signed,
		IssuedAt:    time.Unix(now.Unix(), 0),
		ExpiresAt:   time.Unix(exp.Unix(), 0),
		User:        user,
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Close stops the magic link rate limiter.
func (s *AuthService) Close() {
	s.limiter.Stop()
}
