package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/service"
)

// fakeClient is an AuthClient that records calls and returns canned results.
type fakeClient struct {
	session   *service.Session
	signInErr error
	otpErr    error
	calls     []string
	listeners []service.AuthListener
}

func (f *fakeClient) GetSession(context.Context) (*service.Session, error) {
	f.calls = append(f.calls, "GetSession")
	return f.session, nil
}

func (f *fakeClient) SignInWithPassword(ctx context.Context, _, _ string) (*service.Session, error) {
	f.calls = append(f.calls, "SignInWithPassword")
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeClient) SignUp(ctx context.Context, email, password string) (*service.Session, error) {
	f.calls = append(f.calls, "SignUp")
	return f.SignInWithPassword(ctx, email, password)
}

func (f *fakeClient) SignInWithOtp(context.Context, string, string) error {
	f.calls = append(f.calls, "SignInWithOtp")
	return f.otpErr
}

func (f *fakeClient) VerifyOtp(context.Context, string) (*service.Session, error) {
	f.calls = append(f.calls, "VerifyOtp")
	return f.session, nil
}

func (f *fakeClient) SignOut(ctx context.Context) error {
	f.calls = append(f.calls, "SignOut")
	f.emit(ctx, service.EventSignedOut, nil)
	return errors.New("network down")
}

func (f *fakeClient) RefreshSession(context.Context) (*service.Session, error) {
	return f.session, nil
}

func (f *fakeClient) OnAuthStateChange(fn service.AuthListener) func() {
	f.listeners = append(f.listeners, fn)
	i := len(f.listeners) - 1
	return func() { f.listeners[i] = nil }
}

func (f *fakeClient) emit(ctx context.Context, event service.AuthEvent, session *service.Session) {
	for _, fn := range f.listeners {
		if fn != nil {
			fn(ctx, event, session)
		}
	}
}

func TestAuthStore_StartsLoading(t *testing.T) {
	store := service.NewAuthStore(&fakeClient{}, newTestDB(t).Profiles())
	defer store.Close()

	st := store.State()
	assert.True(t, st.IsLoading)
	assert.False(t, st.IsInitialized)
	assert.Equal(t, service.StatusUninitialized, st.Status)
}

func TestAuthStore_Initialize_NoSession(t *testing.T) {
	client := &fakeClient{}
	store := service.NewAuthStore(client, newTestDB(t).Profiles())
	defer store.Close()

	store.Initialize(context.Background())
	store.Initialize(context.Background())

	st := store.State()
	assert.Equal(t, service.StatusUnauthenticated, st.Status)
	assert.False(t, st.IsLoading)
	assert.Equal(t, []string{"GetSession"}, client.calls, "initialize runs once")
}

func TestAuthStore_Initialize_ProfileStates(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)
	session := signedInUser(t, auth, "init@example.com")

	store := service.NewAuthStore(&fakeClient{session: session}, db.Profiles())
	defer store.Close()
	store.Initialize(context.Background())
	assert.Equal(t, service.StatusAuthenticatedNoProfile, store.State().Status)

	newTestProfile(t, db, session.User.ID, "Init")
	store.RefreshProfile(context.Background())
	st := store.State()
	assert.Equal(t, service.StatusAuthenticatedWithProfile, st.Status)
	assert.Equal(t, "Init", st.Profile.PreferredName)
}

func TestAuthStore_SignIn_ValidatesLocally(t *testing.T) {
	client := &fakeClient{}
	store := service.NewAuthStore(client, newTestDB(t).Profiles())
	defer store.Close()

	res := store.SignIn(context.Background(), "not-an-email", "password123")
	assert.False(t, res.Success)
	assert.Equal(t, "Please enter a valid email address.", res.Error)

	res = store.SignIn(context.Background(), "a@example.com", "short")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "8")

	assert.Empty(t, client.calls, "no client call on invalid input")
}

func TestAuthStore_SignIn_MapsErrors(t *testing.T) {
	client := &fakeClient{signInErr: domain.ErrInvalidCredentials}
	store := service.NewAuthStore(client, newTestDB(t).Profiles())
	defer store.Close()
	store.Initialize(context.Background())

	res := store.SignIn(context.Background(), "a@example.com", "password123")
	assert.False(t, res.Success)
	assert.Equal(t, "That email or password doesn't look right.", res.Error)
	assert.False(t, store.State().IsLoading)
}

func TestAuthStore_SignIn_EventSetsUser(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)
	signedInUser(t, auth, "event@example.com")

	client := service.NewTokenClient(auth, "")
	store := service.NewAuthStore(client, db.Profiles())
	defer store.Close()
	store.Initialize(context.Background())

	res := store.SignIn(context.Background(), "event@example.com", "password123")
	require.True(t, res.Success, res.Error)

	st := store.State()
	require.NotNil(t, st.User)
	assert.Equal(t, "event@example.com", st.User.Email)
	assert.False(t, st.IsLoading)
	assert.Equal(t, service.StatusAuthenticatedNoProfile, st.Status)
	assert.NotEmpty(t, client.Token())
}

func TestAuthStore_MagicLink_AlwaysResetsLoading(t *testing.T) {
	client := &fakeClient{otpErr: domain.ErrRateLimited}
	store := service.NewAuthStore(client, newTestDB(t).Profiles())
	defer store.Close()
	store.Initialize(context.Background())

	res := store.SignInWithMagicLink(context.Background(), "a@example.com", "")
	assert.False(t, res.Success)
	assert.False(t, store.State().IsLoading)

	client.otpErr = nil
	res = store.SignInWithMagicLink(context.Background(), "a@example.com", "")
	assert.True(t, res.Success)
	assert.False(t, store.State().IsLoading)
}

func TestAuthStore_SignOut_ClearsEvenOnError(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)
	session := signedInUser(t, auth, "out@example.com")
	newTestProfile(t, db, session.User.ID, "Out")

	store := service.NewAuthStore(&fakeClient{session: session}, db.Profiles())
	defer store.Close()
	store.Initialize(context.Background())
	require.Equal(t, service.StatusAuthenticatedWithProfile, store.State().Status)

	store.SignOut(context.Background())
	st := store.State()
	assert.Nil(t, st.User)
	assert.Nil(t, st.Session)
	assert.Nil(t, st.Profile)
	assert.Equal(t, service.StatusUnauthenticated, st.Status)
}

func TestAuthStore_CreateProfile(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)
	session := signedInUser(t, auth, "alex@example.com")

	store := service.NewAuthStore(&fakeClient{session: session}, db.Profiles())
	defer store.Close()
	ctx := context.Background()

	res := store.CreateProfile(ctx, service.CreateProfileInput{PreferredName: "Alex"})
	assert.Equal(t, "You must be signed in to create a profile.", res.Error)

	store.Initialize(ctx)

	res = store.CreateProfile(ctx, service.CreateProfileInput{PreferredName: "   "})
	assert.Equal(t, "Please enter a preferred name.", res.Error)

	res = store.CreateProfile(ctx, service.CreateProfileInput{PreferredName: "Alex", WeeklyGoal: domain.Ptr(8)})
	assert.Equal(t, "Weekly goal must be between 1 and 7 days.", res.Error)
	_, err := db.Profiles().GetByUserID(ctx, session.User.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	blank := "  "
	res = store.CreateProfile(ctx, service.CreateProfileInput{
		PreferredName: "  Alex ",
		FullName:      &blank,
		WeeklyGoal:    domain.Ptr(0),
	})
	require.True(t, res.Success, res.Error)

	stored, err := db.Profiles().GetByUserID(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alex", stored.PreferredName)
	assert.Nil(t, stored.FullName)
	assert.Nil(t, stored.WeeklyGoal)
	assert.Equal(t, service.StatusAuthenticatedWithProfile, store.State().Status)

	res = store.CreateProfile(ctx, service.CreateProfileInput{PreferredName: "Alex"})
	assert.Equal(t, "Profile already exists.", res.Error)
}

func TestAuthStore_UpdateProfile(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)
	session := signedInUser(t, auth, "update@example.com")
	newTestProfile(t, db, session.User.ID, "Alex")

	store := service.NewAuthStore(&fakeClient{session: session}, db.Profiles())
	defer store.Close()
	ctx := context.Background()

	res := store.UpdateProfile(ctx, domain.ProfileUpdate{PreferredName: domain.NewField("Sam")})
	assert.Equal(t, "You must be signed in to update your profile.", res.Error)

	store.Initialize(ctx)

	res = store.UpdateProfile(ctx, domain.ProfileUpdate{PreferredName: domain.NewField(" ")})
	assert.Equal(t, "Please enter a preferred name.", res.Error)

	res = store.UpdateProfile(ctx, domain.ProfileUpdate{WeeklyGoal: domain.NewField(domain.Ptr(0))})
	assert.Equal(t, "Weekly goal must be between 1 and 7 days.", res.Error)

	res = store.UpdateProfile(ctx, domain.ProfileUpdate{
		PreferredName: domain.NewField("Sam"),
		WeeklyGoal:    domain.NewField(domain.Ptr(4)),
	})
	require.True(t, res.Success, res.Error)

	st := store.State()
	require.NotNil(t, st.Profile)
	assert.Equal(t, "Sam", st.Profile.PreferredName)
	require.NotNil(t, st.Profile.WeeklyGoal)
	assert.Equal(t, 4, *st.Profile.WeeklyGoal)

	// Another client changed the row; a refresh picks it up.
	_, err := db.Profiles().Update(ctx, session.User.ID, domain.ProfileUpdate{PreferredName: domain.NewField("Jo")})
	require.NoError(t, err)
	store.RefreshProfile(ctx)
	assert.Equal(t, "Jo", store.State().Profile.PreferredName)
}

func TestAuthStore_Events(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)
	session := signedInUser(t, auth, "events@example.com")
	newTestProfile(t, db, session.User.ID, "Ev")

	client := &fakeClient{}
	store := service.NewAuthStore(client, db.Profiles())
	store.Initialize(context.Background())
	ctx := context.Background()

	client.emit(ctx, service.EventSignedIn, session)
	st := store.State()
	assert.Equal(t, service.StatusAuthenticatedWithProfile, st.Status)
	assert.Equal(t, "Ev", st.Profile.PreferredName)

	refreshed := *session
	refreshed.AccessToken = "new-token"
	client.emit(ctx, service.EventTokenRefreshed, &refreshed)
	assert.Equal(t, "new-token", store.State().Session.AccessToken)

	client.emit(ctx, service.EventSignedOut, nil)
	assert.Equal(t, service.StatusUnauthenticated, store.State().Status)

	store.Close()
	client.emit(ctx, service.EventSignedIn, session)
	assert.Nil(t, store.State().User, "events after close are ignored")
}

func TestTokenClient_InvalidTokenIsNoSession(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)

	client := service.NewTokenClient(auth, "not-a-jwt")
	session, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, client.Token())
}

func TestTokenClient_RefreshEmitsEvent(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newTestAuthService(t, db)
	issued := signedInUser(t, auth, "tr@example.com")

	client := service.NewTokenClient(auth, issued.AccessToken)
	var events []service.AuthEvent
	unsubscribe := client.OnAuthStateChange(func(_ context.Context, e service.AuthEvent, _ *service.Session) {
		events = append(events, e)
	})
	defer unsubscribe()

	_, err := client.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []service.AuthEvent{service.EventTokenRefreshed}, events)
}
