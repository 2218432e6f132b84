package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// PasswordMinLength is the shortest password accepted at sign-in and sign-up.
const PasswordMinLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validation is the outcome of a local input check. Error is empty when Valid.
type Validation struct {
	Valid bool
	Error string
}

func ValidatePassword(password string) Validation {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return Validation{Error: fmt.Sprintf("Password needs at least %d characters.", PasswordMinLength)}
	}
	return Validation{Valid: true}
}

func ValidateEmail(email string) Validation {
	if email == "" || !emailPattern.MatchString(email) {
		return Validation{Error: "Please enter a valid email address."}
	}
	return Validation{Valid: true}
}

// Weekly goals count gym days per week.
const (
	MinWeeklyGoal = 1
	MaxWeeklyGoal = 7
)

// ValidateWeeklyGoal accepts no goal or a goal of MinWeeklyGoal to
// MaxWeeklyGoal days.
func ValidateWeeklyGoal(goal *int) Validation {
	if goal != nil && (*goal < MinWeeklyGoal || *goal > MaxWeeklyGoal) {
		return Validation{Error: fmt.Sprintf("Weekly goal must be between %d and %d days.", MinWeeklyGoal, MaxWeeklyGoal)}
	}
	return Validation{Valid: true}
}

// authMessages is checked in order; the first entry with a matching phrase wins.
var authMessages = []struct {
	phrases []string
	message string
}{
	{[]string{"invalid login credentials", "invalid credentials"}, "That email or password doesn't look right."},
	{[]string{"email not confirmed"}, "Please check your email and confirm your account first."},
	{[]string{"user already registered", "already exists", "already been registered"}, "This email is already in use."},
	{[]string{"email rate limit exceeded", "rate limit"}, "Too many attempts. Please wait a moment and try again."},
	{[]string{"network", "fetch"}, "Connection issue. Please check your internet and try again."},
	{[]string{"password"}, fmt.Sprintf("Password needs at least %d characters.", PasswordMinLength)},
	{[]string{"email"}, "Please enter a valid email address."},
}

const genericAuthMessage = "Something went wrong. Please try again."

// AuthErrorMessage maps a raw auth service error to text shown to the user.
// Matching is a case-insensitive substring search.
func AuthErrorMessage(raw string) string {
	lower := strings.ToLower(raw)
	for _, m := range authMessages {
		for _, p := range m.phrases {
			if strings.Contains(lower, p) {
				return m.message
			}
		}
	}
	return genericAuthMessage
}
