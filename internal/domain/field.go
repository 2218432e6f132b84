package domain

// Field is one optional member of a partial update. A zero Field is absent
// and leaves the stored column alone; a set Field writes Value, including nil.
type Field[T any] struct {
	Value T
	Set   bool
}

// NewField returns a Field that is present with the given value.
func NewField[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
