package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/tempo/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and hands out the repositories built on it.
type DB struct {
	SqlDB *sql.DB
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Cascading deletes of routine and session children depend on this.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// A single connection keeps the pragmas above in effect for every query.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

func (d *DB) Users() *UserRepository                       { return NewUserRepository(d) }
func (d *DB) MagicLinks() *MagicLinkRepository             { return NewMagicLinkRepository(d) }
func (d *DB) Profiles() *ProfileRepository                 { return NewProfileRepository(d) }
func (d *DB) Sessions() *GymSessionRepository              { return NewGymSessionRepository(d) }
func (d *DB) Routines() *RoutineRepository                 { return NewRoutineRepository(d) }
func (d *DB) RoutineExercises() *RoutineExerciseRepository { return NewRoutineExerciseRepository(d) }
func (d *DB) SessionExercises() *SessionExerciseRepository { return NewSessionExerciseRepository(d) }
func (d *DB) SessionSets() *SessionSetRepository           { return NewSessionSetRepository(d) }
