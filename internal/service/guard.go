package service

import (
	"net/url"
	"strings"
	"time"

	"github.com/msomdec/tempo/internal/calendar"
)

const (
	AuthPath         = "/auth"
	ProfileSetupPath = "/profile-setup"
)

// Decision is the outcome of a route guard.
type Decision struct {
	// Loading is set while the auth state is still being resolved.
	Loading bool
	// Redirect is the location to send the user to; empty means allow.
	Redirect string
}

func (d Decision) Allowed() bool {
	return !d.Loading && d.Redirect == ""
}

// Guard decides whether a protected route may render. from is the attempted
// location, remembered so sign-in can return to it.
func Guard(st AuthState, requireProfile bool, from string) Decision {
	if !st.IsInitialized || st.IsLoading {
		return Decision{Loading: true}
	}
	if st.User == nil {
		return Decision{Redirect: SignInRedirect(from)}
	}
	if requireProfile && st.Profile == nil {
		return Decision{Redirect: ProfileSetupPath}
	}
	return Decision{}
}

// RootRedirect is where "/" leads for the given state. Today is taken from
// now in its own location.
func RootRedirect(st AuthState, now time.Time) Decision {
	if !st.IsInitialized || st.IsLoading {
		return Decision{Loading: true}
	}
	switch {
	case st.User == nil:
		return Decision{Redirect: AuthPath}
	case st.Profile == nil:
		return Decision{Redirect: ProfileSetupPath}
	}
	return Decision{Redirect: TodayPath(now)}
}

// ProfileSetupRedirect keeps signed-out users and users who already have a
// profile away from the setup page.
func ProfileSetupRedirect(st AuthState, now time.Time) Decision {
	if !st.IsInitialized || st.IsLoading {
		return Decision{Loading: true}
	}
	switch {
	case st.User == nil:
		return Decision{Redirect: AuthPath}
	case st.Profile != nil:
		return Decision{Redirect: TodayPath(now)}
	}
	return Decision{}
}

// AfterSignIn is where a signed-in user lands from the auth page.
func AfterSignIn(st AuthState, from string, now time.Time) string {
	if st.Profile == nil {
		return ProfileSetupPath
	}
	return SafeRedirect(from, TodayPath(now))
}

// TodayPath is the session page for now's calendar date.
func TodayPath(now time.Time) string {
	return SessionPath(calendar.FormatISODate(now))
}

func SessionPath(date string) string {
	return "/session/" + date
}

// SignInRedirect builds the auth page URL remembering from.
func SignInRedirect(from string) string {
	if from == "" || from == "/" || !isLocalPath(from) {
		return AuthPath
	}
	return AuthPath + "?" + url.Values{"from": {from}}.Encode()
}

// SafeRedirect returns target when it is a local path and fallback otherwise.
func SafeRedirect(target, fallback string) string {
	if target == "" || !isLocalPath(target) || target == AuthPath || strings.HasPrefix(target, AuthPath+"?") {
		return fallback
	}
	return target
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}
