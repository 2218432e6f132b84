package migrations_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/msomdec/tempo/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

func TestRunMigrations(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	for _, table := range []string{"users", "magic_links", "profiles", "gym_sessions", "routines", "routine_exercises", "session_exercises", "session_sets"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// A session row must reference an existing user.
	_, err = db.ExecContext(ctx,
		"INSERT INTO gym_sessions (id, user_id, session_date) VALUES (?, ?, ?)",
		"s1", "no-such-user", "2026-01-01",
	)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second migration run: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 migration recorded, got %d", count)
	}
}
