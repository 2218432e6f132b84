package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/tempo/internal/domain"
)

func TestSessionExerciseAndSets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := newTestUser(t, db, "sets@example.com")

	session := &domain.GymSession{UserID: userID, SessionDate: "2026-03-04"}
	if err := db.Sessions().Create(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	exercises := db.SessionExercises()
	bench := &domain.SessionExercise{SessionID: session.ID, Name: "Bench", OrderIndex: 0}
	squat := &domain.SessionExercise{SessionID: session.ID, Name: "Squat", OrderIndex: 1}
	for _, e := range []*domain.SessionExercise{bench, squat} {
		if err := exercises.Create(ctx, userID, e); err != nil {
			t.Fatalf("create exercise: %v", err)
		}
	}

	sets := db.SessionSets()
	for i := 3; i >= 1; i-- {
		s := &domain.SessionSet{SessionExerciseID: bench.ID, SetNumber: i, RestSeconds: domain.Ptr(90)}
		if err := sets.Create(ctx, userID, s); err != nil {
			t.Fatalf("create set: %v", err)
		}
	}
	if err := sets.Create(ctx, userID, &domain.SessionSet{SessionExerciseID: squat.ID, SetNumber: 1}); err != nil {
		t.Fatalf("create set: %v", err)
	}

	all, err := sets.ListByExercises(ctx, userID, []string{bench.ID, squat.ID})
	if err != nil {
		t.Fatalf("ListByExercises: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 sets, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].SetNumber < all[i-1].SetNumber {
			t.Fatalf("sets not ordered by set number: %+v", all)
		}
	}

	updated, err := sets.Update(ctx, userID, all[0].ID, domain.SessionSetUpdate{
		Reps:   domain.NewField(domain.Ptr(8)),
		Weight: domain.NewField(domain.Ptr(62.5)),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *updated.Reps != 8 || *updated.Weight != 62.5 {
		t.Fatalf("unexpected set: %+v", updated)
	}

	renamed, err := exercises.Rename(ctx, userID, squat.ID, "Front squat")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Name != "Front squat" {
		t.Fatalf("expected rename, got %s", renamed.Name)
	}

	if err := exercises.Delete(ctx, userID, bench.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	left, err := sets.ListByExercises(ctx, userID, []string{bench.ID, squat.ID})
	if err != nil {
		t.Fatalf("ListByExercises: %v", err)
	}
	if len(left) != 1 {
		t.Fatalf("expected bench sets to cascade, %d sets remain", len(left))
	}

	other := newTestUser(t, db, "other@example.com")
	if err := sets.Delete(ctx, other, left[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting another user's set, got %v", err)
	}
	if err := sets.Delete(ctx, userID, left[0].ID); err != nil {
		t.Fatalf("Delete set: %v", err)
	}
}
