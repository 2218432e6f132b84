package service_test

import (
	"testing"
	"time"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/service"
)

func TestGuard(t *testing.T) {
	user := &domain.User{ID: "u1"}
	profile := &domain.Profile{ID: "u1", PreferredName: "Alex"}

	tests := []struct {
		name           string
		state          service.AuthState
		requireProfile bool
		want           service.Decision
	}{
		{"loading until initialized", service.AuthState{IsLoading: true}, true, service.Decision{Loading: true}},
		{"loading while busy", service.AuthState{IsInitialized: true, IsLoading: true, User: user}, true, service.Decision{Loading: true}},
		{"signed out", service.AuthState{IsInitialized: true}, true, service.Decision{Redirect: "/auth?from=%2Froutines"}},
		{"no profile", service.AuthState{IsInitialized: true, User: user}, true, service.Decision{Redirect: "/profile-setup"}},
		{"no profile allowed", service.AuthState{IsInitialized: true, User: user}, false, service.Decision{}},
		{"complete", service.AuthState{IsInitialized: true, User: user, Profile: profile}, true, service.Decision{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.Guard(tt.state, tt.requireProfile, "/routines")
			if got != tt.want {
				t.Fatalf("Guard() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRootRedirect(t *testing.T) {
	user := &domain.User{ID: "u1"}
	profile := &domain.Profile{ID: "u1"}
	now := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("local", -5*3600))

	tests := []struct {
		state service.AuthState
		want  string
	}{
		{service.AuthState{IsInitialized: true}, "/auth"},
		{service.AuthState{IsInitialized: true, User: user}, "/profile-setup"},
		{service.AuthState{IsInitialized: true, User: user, Profile: profile}, "/session/2026-03-04"},
	}
	for _, tt := range tests {
		if got := service.RootRedirect(tt.state, now).Redirect; got != tt.want {
			t.Errorf("RootRedirect() = %q, want %q", got, tt.want)
		}
	}
}

func TestProfileSetupRedirect(t *testing.T) {
	user := &domain.User{ID: "u1"}
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	if got := service.ProfileSetupRedirect(service.AuthState{IsInitialized: true}, now).Redirect; got != "/auth" {
		t.Fatalf("signed out: got %q", got)
	}
	if d := service.ProfileSetupRedirect(service.AuthState{IsInitialized: true, User: user}, now); !d.Allowed() {
		t.Fatalf("no profile should be allowed, got %+v", d)
	}
	withProfile := service.AuthState{IsInitialized: true, User: user, Profile: &domain.Profile{}}
	if got := service.ProfileSetupRedirect(withProfile, now).Redirect; got != "/session/2026-01-02" {
		t.Fatalf("with profile: got %q", got)
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := map[string]string{
		"":                    "/fallback",
		"/routines":           "/routines",
		"//evil.example.com":  "/fallback",
		"https://example.com": "/fallback",
		`/\evil.example.com`:  "/fallback",
		"/auth?from=%2F":      "/fallback",
	}
	for in, want := range tests {
		if got := service.SafeRedirect(in, "/fallback"); got != want {
			t.Errorf("SafeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAfterSignIn(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	st := service.AuthState{IsInitialized: true, User: &domain.User{}}

	if got := service.AfterSignIn(st, "/routines", now); got != "/profile-setup" {
		t.Fatalf("without profile got %q", got)
	}
	st.Profile = &domain.Profile{}
	if got := service.AfterSignIn(st, "/routines", now); got != "/routines" {
		t.Fatalf("with from got %q", got)
	}
	if got := service.AfterSignIn(st, "", now); got != "/session/2026-06-01" {
		t.Fatalf("without from got %q", got)
	}
}
