package domain

import (
	"context"
	"time"
)

// Profile holds the personal details a user enters once after sign-up.
// ID is the owning user's id.
type Profile struct {
	ID            string
	FullName      *string
	PreferredName string
	GymStartDate  *string // YYYY-MM-DD
	WeeklyGoal    *int    // 1..7
	CreatedAt     time.Time
}

// ProfileUpdate lists the profile fields to change.
type ProfileUpdate struct {
	FullName      Field[*string]
	PreferredName Field[string]
	GymStartDate  Field[*string]
	WeeklyGoal    Field[*int]
}

type ProfileRepository interface {
	// Create returns ErrDuplicateProfile when the user already has one.
	Create(ctx context.Context, profile *Profile) error
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, userID string, patch ProfileUpdate) (*Profile, error)
}
