package sqlite

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/msomdec/tempo/internal/domain"
)

func newID() string {
	return uuid.New().String()
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "unique constraint")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func value[T any](v T) any {
	return v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

// assignments collects the SET clause of a partial update.
type assignments struct {
	cols []string
	args []any
}

// set adds col when the field is present in the patch.
func set[T any](a *assignments, col string, f domain.Field[T], conv func(T) any) {
	if !f.Set {
		return
	}
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, conv(f.Value))
}

func (a *assignments) empty() bool {
	return len(a.cols) == 0
}

func (a *assignments) clause() string {
	return strings.Join(a.cols, ", ")
}
