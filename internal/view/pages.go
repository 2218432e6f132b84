package view

import (
	"strings"

	"github.com/a-h/templ"

	"github.com/msomdec/tempo/internal/domain"
	"github.com/msomdec/tempo/internal/service"
)

// Layout carries what every full page needs.
type Layout struct {
	Title     string
	CSRFToken string
	Nav       string
	SignedIn  bool
}

const (
	AuthModeSignIn    = "sign-in"
	AuthModeSignUp    = "sign-up"
	AuthModeMagicLink = "magic-link"
)

type AuthData struct {
	Layout
	Mode  string
	Email string
	From  string
	Error string
}

func AuthPage(d AuthData) templ.Component {
	if d.Mode == "" {
		d.Mode = AuthModeSignIn
	}
	return render("auth", d)
}

type CheckEmailData struct {
	Layout
	Email string
}

func CheckEmailPage(d CheckEmailData) templ.Component {
	return render("check-email", d)
}

type ProfileSetupData struct {
	Layout
	FullName      string
	PreferredName string
	GymStartDate  string
	WeeklyGoal    string
	Error         string
}

func ProfileSetupPage(d ProfileSetupData) templ.Component {
	return render("profile-setup", d)
}

// SessionData is the day page. Screen is the live screen the page's fields
// autosave through.
type SessionData struct {
	Layout
	Screen    string
	Date      string
	Heading   string
	Day       int
	TotalDays int
	IsToday   bool
	Session   *domain.GymSession
	Exercises ExercisesData
}

// Signals returns the initial values of the session fields.
func (d SessionData) Signals() string {
	s := map[string]string{"duration": "", "workouttype": "", "notes": "", "newexercise": ""}
	if d.Session != nil {
		s["duration"] = num(d.Session.DurationMinutes)
		s["workouttype"] = str(d.Session.WorkoutType)
		s["notes"] = str(d.Session.Notes)
	}
	return Signals(s)
}

// Notes returns the saved notes, empty when there is no session.
func (d SessionData) Notes() string {
	if d.Session == nil {
		return ""
	}
	return str(d.Session.Notes)
}

func SessionPage(d SessionData) templ.Component {
	return render("session", d)
}

// ExercisesData is the #exercises fragment of the day page.
type ExercisesData struct {
	Screen    string
	Date      string
	Exercises []service.LoggedExercise
	Routines  []domain.Routine
	Error     string
}

func (d ExercisesData) Signals() string {
	s := map[string]string{}
	for _, e := range d.Exercises {
		s[ExerciseNameKey(e.ID)] = e.Name
		for _, set := range e.Sets {
			s[SetRepsKey(set.ID)] = num(set.Reps)
			s[SetWeightKey(set.ID)] = float(set.Weight)
			s[SetRestKey(set.ID)] = num(set.RestSeconds)
		}
	}
	return Signals(s)
}

func ExercisesFragment(d ExercisesData) templ.Component {
	return render("exercises", d)
}

// SaveStatus renders the #save-status indicator.
func SaveStatus(text string, failed bool) templ.Component {
	return render("save-status", struct {
		Text   string
		Failed bool
	}{text, failed})
}

// NotesPreview renders the #notes-preview fragment.
func NotesPreview(notes string) templ.Component {
	return render("notes-preview", notes)
}

type RoutinesData struct {
	Layout
	Items []service.RoutineListItem
	Name  string
	Focus string
	Error string
}

func RoutinesPage(d RoutinesData) templ.Component {
	return render("routines", d)
}

// RoutineData is the routine editor page.
type RoutineData struct {
	Layout
	Screen    string
	Routine   domain.Routine
	Exercises RoutineExercisesData
}

func (d RoutineData) Signals() string {
	return Signals(map[string]string{
		"name":        d.Routine.Name,
		"focus":       str(d.Routine.Focus),
		"newexercise": "",
	})
}

func RoutinePage(d RoutineData) templ.Component {
	return render("routine", d)
}

// RoutineExercisesData is the #routine-exercises fragment.
type RoutineExercisesData struct {
	Screen    string
	RoutineID string
	Exercises []domain.RoutineExercise
	Error     string
}

func (d RoutineExercisesData) Signals() string {
	s := map[string]string{}
	for _, e := range d.Exercises {
		s[RoutineExerciseKey(e.ID, "name")] = e.Name
		s[RoutineExerciseKey(e.ID, "sets")] = num(e.Sets)
		s[RoutineExerciseKey(e.ID, "reps")] = str(e.Reps)
		s[RoutineExerciseKey(e.ID, "rest")] = num(e.RestSeconds)
	}
	return Signals(s)
}

func RoutineExercisesFragment(d RoutineExercisesData) templ.Component {
	return render("routine-exercises", d)
}

const (
	YearViewBar  = "bar"
	YearViewGrid = "grid"
)

type YearData struct {
	Layout
	Year     int
	View     string
	Stats    service.AttendanceStats
	Cells    []service.DayCell
	Segments []service.BarSegment
}

func YearPage(d YearData) templ.Component {
	if d.View != YearViewGrid {
		d.View = YearViewBar
	}
	return render("year", d)
}

// OnboardingStep is one screen of the first-run walkthrough.
type OnboardingStep struct {
	Title    string
	Subtitle string
	Button   string
}

var OnboardingSteps = []OnboardingStep{
	{"Less rush. Less stress. More room for what matters.", "For health, discipline, and self-respect", "Wait…"},
	{"Consistency turns effort into progress you can see.", "Awareness changes how discipline feels. Every day you show up is one you can see.", "Next"},
	{"Give time the value it deserves and make the most out of it", "", "Get started"},
}

type OnboardingData struct {
	Layout
	Step int
}

func (d OnboardingData) Current() OnboardingStep {
	return OnboardingSteps[d.Step]
}

func (d OnboardingData) Last() bool {
	return d.Step == len(OnboardingSteps)-1
}

func (d OnboardingData) Next() int {
	return d.Step + 1
}

func (d OnboardingData) Dots() []bool {
	dots := make([]bool, len(OnboardingSteps))
	dots[d.Step] = true
	return dots
}

// OnboardingPage renders step d.Step, clamped to the available steps.
func OnboardingPage(d OnboardingData) templ.Component {
	d.Step = max(0, min(d.Step, len(OnboardingSteps)-1))
	return render("onboarding", d)
}

func NotFoundPage(l Layout) templ.Component {
	if l.Title == "" {
		l.Title = "Not found"
	}
	return render("not-found", l)
}

// Signal keys are lowercase alphanumerics so they survive datastar's
// attribute name casing.

func idKey(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

func ExerciseNameKey(id string) string { return "ex" + idKey(id) + "name" }
func SetRepsKey(id string) string      { return "set" + idKey(id) + "reps" }
func SetWeightKey(id string) string    { return "set" + idKey(id) + "weight" }
func SetRestKey(id string) string      { return "set" + idKey(id) + "rest" }

// RoutineExerciseKey is the signal for one column of a routine exercise.
func RoutineExerciseKey(id, column string) string {
	return "re" + idKey(id) + column
}
