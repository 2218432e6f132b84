package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/msomdec/tempo/internal/domain"
)

// AuthStatus is the position of an AuthStore in its state machine.
type AuthStatus int

const (
	StatusUninitialized AuthStatus = iota
	StatusInitializing
	StatusUnauthenticated
	StatusAuthenticatedNoProfile
	StatusAuthenticatedWithProfile
)

func (s AuthStatus) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticatedNoProfile:
		return "authenticated-no-profile"
	case StatusAuthenticatedWithProfile:
		return "authenticated-with-profile"
	}
	return "uninitialized"
}

// AuthState is a snapshot of an AuthStore.
type AuthState struct {
	User          *domain.User
	Session       *Session
	Profile       *domain.Profile
	IsLoading     bool
	IsInitialized bool
	Status        AuthStatus
}

// CreateProfileInput carries the profile setup form. Blank optional fields
// are stored as null.
type CreateProfileInput struct {
	FullName      *string
	PreferredName string
	GymStartDate  *string
	WeeklyGoal    *int
}

// AuthStore is the single source of truth for who is signed in. It follows
// the auth client's state change events from creation until Close.
type AuthStore struct {
	client   AuthClient
	profiles domain.ProfileRepository

	mu           sync.Mutex
	user         *domain.User
	session      *Session
	profile      *domain.Profile
	isLoading    bool
	initialized  bool
	initializing bool
	mounted      bool
	unsubscribe  func()
}

// NewAuthStore creates a store subscribed to client. It reports loading until
// Initialize completes.
func NewAuthStore(client AuthClient, profiles domain.ProfileRepository) *AuthStore {
	s := &AuthStore{
		client:    client,
		profiles:  profiles,
		isLoading: true,
		mounted:   true,
	}
	s.unsubscribe = client.OnAuthStateChange(s.handleEvent)
	return s
}

// Initialize loads the existing session and its profile. Only the first call
// has any effect.
func (s *AuthStore) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized || s.initializing {
		s.mu.Unlock()
		return
	}
	s.initializing = true
	s.mu.Unlock()

	session, err := s.client.GetSession(ctx)
	if err != nil {
		slog.Error("initialize auth", "error", err)
		s.update(func() {
			s.isLoading = false
			s.initialized = true
			s.initializing = false
		})
		return
	}

	var profile *domain.Profile
	if session != nil && session.User != nil {
		profile = s.fetchProfile(ctx, session.User.ID)
	}

	s.update(func() {
		if session != nil && session.User != nil {
			s.user, s.session, s.profile = session.User, session, profile
		} else {
			s.user, s.session, s.profile = nil, nil, nil
		}
		s.isLoading = false
		s.initialized = true
		s.initializing = false
	})
}

// State returns a snapshot of the store.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := AuthState{
		User:          s.user,
		Session:       s.session,
		Profile:       s.profile,
		IsLoading:     s.isLoading,
		IsInitialized: s.initialized,
	}
	switch {
	case s.initializing:
		st.Status = StatusInitializing
	case !s.initialized:
		st.Status = StatusUninitialized
	case s.user == nil:
		st.Status = StatusUnauthenticated
	case s.profile == nil:
		st.Status = StatusAuthenticatedNoProfile
	default:
		st.Status = StatusAuthenticatedWithProfile
	}
	return st
}

func (s *AuthStore) SignIn(ctx context.Context, email, password string) Result {
	return s.passwordAuth(ctx, email, password, s.client.SignInWithPassword)
}

func (s *AuthStore) SignUp(ctx context.Context, email, password string) Result {
	return s.passwordAuth(ctx, email, password, s.client.SignUp)
}

func (s *AuthStore) passwordAuth(ctx context.Context, email, password string, call func(context.Context, string, string) (*Session, error)) Result {
	if v := ValidateEmail(email); !v.Valid {
		return fail(v.Error)
	}
	if v := ValidatePassword(password); !v.Valid {
		return fail(v.Error)
	}

	s.setLoading(true)
	if _, err := call(ctx, email, password); err != nil {
		s.setLoading(false)
		return fail(AuthErrorMessage(err.Error()))
	}
	return ok()
}

// SignInWithMagicLink requests an emailed sign-in link. Loading is cleared
// whatever the outcome.
func (s *AuthStore) SignInWithMagicLink(ctx context.Context, email, redirectTo string) Result {
	if v := ValidateEmail(email); !v.Valid {
		return fail(v.Error)
	}

	s.setLoading(true)
	err := s.client.SignInWithOtp(ctx, email, redirectTo)
	s.setLoading(false)

	if err != nil {
		if !errors.Is(err, domain.ErrRateLimited) {
			slog.Error("send magic link", "error", err)
		}
		return fail(AuthErrorMessage(err.Error()))
	}
	return ok()
}

// VerifyMagicLink completes an emailed sign-in.
func (s *AuthStore) VerifyMagicLink(ctx context.Context, token string) Result {
	s.setLoading(true)
	if _, err := s.client.VerifyOtp(ctx, token); err != nil {
		s.setLoading(false)
		if errors.Is(err, domain.ErrLinkExpired) {
			return fail("That sign-in link has expired. Please request a new one.")
		}
		slog.Error("verify magic link", "error", err)
		return fail(AuthErrorMessage(err.Error()))
	}
	return ok()
}

// SignOut clears the user, session and profile even if the client call fails.
func (s *AuthStore) SignOut(ctx context.Context) {
	s.setLoading(true)
	if err := s.client.SignOut(ctx); err != nil {
		slog.Error("sign out", "error", err)
	}
	s.update(func() {
		s.user, s.session, s.profile = nil, nil, nil
		s.isLoading = false
	})
}

func (s *AuthStore) CreateProfile(ctx context.Context, in CreateProfileInput) Result {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	if user == nil {
		return fail("You must be signed in to create a profile.")
	}
	preferred := strings.TrimSpace(in.PreferredName)
	if preferred == "" {
		return fail("Please enter a preferred name.")
	}

	goal := in.WeeklyGoal
	if goal != nil && *goal == 0 {
		goal = nil
	}
	if v := ValidateWeeklyGoal(goal); !v.Valid {
		return fail(v.Error)
	}

	profile := &domain.Profile{
		ID:            user.ID,
		FullName:      trimmedOrNil(in.FullName),
		PreferredName: preferred,
		GymStartDate:  trimmedOrNil(in.GymStartDate),
		WeeklyGoal:    goal,
	}

	s.setLoading(true)
	if err := s.profiles.Create(ctx, profile); err != nil {
		s.setLoading(false)
		if errors.Is(err, domain.ErrDuplicateProfile) {
			return fail("Profile already exists.")
		}
		slog.Error("create profile", "error", err)
		return fail("Could not create profile. Please try again.")
	}

	s.update(func() {
		s.profile = profile
		s.isLoading = false
	})
	return ok()
}

// UpdateProfile changes fields of the active profile.
func (s *AuthStore) UpdateProfile(ctx context.Context, patch domain.ProfileUpdate) Result {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	if user == nil {
		return fail("You must be signed in to update your profile.")
	}
	if patch.PreferredName.Set && strings.TrimSpace(patch.PreferredName.Value) == "" {
		return fail("Please enter a preferred name.")
	}
	if patch.WeeklyGoal.Set {
		if v := ValidateWeeklyGoal(patch.WeeklyGoal.Value); !v.Valid {
			return fail(v.Error)
		}
	}

	profile, err := s.profiles.Update(ctx, user.ID, patch)
	if err != nil {
		slog.Error("update profile", "error", err)
		return fail("Could not update profile. Please try again.")
	}
	s.update(func() { s.profile = profile })
	return ok()
}

// RefreshProfile reloads the profile of the signed-in user.
func (s *AuthStore) RefreshProfile(ctx context.Context) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	if user == nil {
		return
	}
	profile := s.fetchProfile(ctx, user.ID)
	s.update(func() { s.profile = profile })
}

// Close unsubscribes from the client. Events and results arriving later are
// ignored.
func (s *AuthStore) Close() {
	s.mu.Lock()
	s.mounted = false
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *AuthStore) handleEvent(ctx context.Context, event AuthEvent, session *Session) {
	if !s.isMounted() {
		return
	}

	switch event {
	case EventSignedIn:
		if session == nil || session.User == nil {
			return
		}
		profile := s.fetchProfile(ctx, session.User.ID)
		s.update(func() {
			s.user, s.session, s.profile = session.User, session, profile
			s.isLoading = false
		})
	case EventSignedOut:
		s.update(func() {
			s.user, s.session, s.profile = nil, nil, nil
			s.isLoading = false
		})
	case EventTokenRefreshed:
		if session == nil {
			return
		}
		s.update(func() { s.session = session })
	}
}

// fetchProfile treats a missing profile as the normal state of a new user.
// Other errors are logged and treated the same so the UI is not blocked.
func (s *AuthStore) fetchProfile(ctx context.Context, userID string) *domain.Profile {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("fetch profile", "error", err)
		}
		return nil
	}
	return profile
}

func (s *AuthStore) isMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// update applies fn under the lock unless the store has been closed.
func (s *AuthStore) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	fn()
}

func (s *AuthStore) setLoading(v bool) {
	s.update(func() { s.isLoading = v })
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
