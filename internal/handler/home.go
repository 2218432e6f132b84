package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/service"
	"github.com/msomdec/tempo/internal/view"
)

const (
	onboardingCookieName = "tempo-onboarding-complete"
	onboardingPath       = "/onboarding"
)

// HomeHandler serves the entry routes: the root redirect, onboarding,
// profile setup and the year overview.
type HomeHandler struct {
	sessions domain.GymSessionRepository
	now      func() time.Time
}

func NewHomeHandler(sessions domain.GymSessionRepository, now func() time.Time) *HomeHandler {
	return &HomeHandler{sessions: sessions, now: now}
}

// HandleRoot sends the visitor to the auth page, profile setup or today's
// session depending on their auth state.
// GET /
func (h *HomeHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	d := service.RootRedirect(AuthFromContext(r.Context()).State(), h.now())
	if d.Loading {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	redirect(w, r, d.Redirect)
}

func onboarded(r *http.Request) bool {
	c, err := r.Cookie(onboardingCookieName)
	return err == nil && c.Value == "true"
}

// HandleOnboarding renders one onboarding step.
// GET /onboarding?step=N
func (h *HomeHandler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	step, _ := strconv.Atoi(r.URL.Query().Get("step"))
	page(w, r, http.StatusOK, view.OnboardingPage(view.OnboardingData{
		Layout: layout(r, "Welcome", ""),
		Step:   step,
	}))
}

// HandleOnboardingComplete remembers that onboarding was seen and continues
// to wherever the root sends the visitor.
// POST /onboarding
func (h *HomeHandler) HandleOnboardingComplete(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     onboardingCookieName,
		Value:    "true",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   365 * 24 * 60 * 60,
	})
	redirect(w, r, "/")
}

// HandleProfileSetupPage renders the profile form.
// GET /profile-setup
func (h *HomeHandler) HandleProfileSetupPage(w http.ResponseWriter, r *http.Request) {
	d := service.ProfileSetupRedirect(AuthFromContext(r.Context()).State(), h.now())
	if d.Redirect != "" {
		redirect(w, r, d.Redirect)
		return
	}
	page(w, r, http.StatusOK, view.ProfileSetupPage(view.ProfileSetupData{
		Layout: layout(r, "Profile", ""),
	}))
}

// HandleProfileSetup creates the profile of the signed-in user.
// POST /profile-setup
func (h *HomeHandler) HandleProfileSetup(w http.ResponseWriter, r *http.Request) {
	store := AuthFromContext(r.Context())
	d := service.ProfileSetupRedirect(store.State(), h.now())
	if d.Redirect != "" {
		redirect(w, r, d.Redirect)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := view.ProfileSetupData{
		Layout:        layout(r, "Profile", ""),
		FullName:      r.FormValue("full_name"),
		PreferredName: r.FormValue("preferred_name"),
		GymStartDate:  r.FormValue("gym_start_date"),
		WeeklyGoal:    r.FormValue("weekly_goal"),
	}
	in := service.CreateProfileInput{
		FullName:      &form.FullName,
		PreferredName: form.PreferredName,
		GymStartDate:  &form.GymStartDate,
	}
	if goal, err := strconv.Atoi(strings.TrimSpace(form.WeeklyGoal)); err == nil {
		in.WeeklyGoal = &goal
	}

	res := store.CreateProfile(r.Context(), in)
	if !res.Success {
		form.Error = res.Error
		page(w, r, http.StatusUnprocessableEntity, view.ProfileSetupPage(form))
		return
	}
	redirect(w, r, service.TodayPath(h.now()))
}

// HandleYear renders the attendance overview of the current year.
// GET /year?view=bar|grid
func (h *HomeHandler) HandleYear(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	model := service.NewAttendanceModel(h.sessions, user.ID, h.now())
	model.Fetch(r.Context())

	page(w, r, http.StatusOK, view.YearPage(view.YearData{
		Layout:   layout(r, strconv.Itoa(model.Year()), "year"),
		Year:     model.Year(),
		View:     r.URL.Query().Get("view"),
		Stats:    model.Stats(),
		Cells:    model.Cells(),
		Segments: model.Segments(),
	}))
}
