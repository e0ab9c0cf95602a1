package types

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state JSON value: absent, explicit null, or a value.
// The zero Field is absent. UnmarshalJSON only runs for keys present in the
// input, which is what separates absent from null.
type Field[T any] struct {
	Set   bool // key was present
	Null  bool // key was present with a null value
	Value T
}

// Some returns a Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field that is present and explicitly null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// Present reports whether the field carries a non-null value.
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}

// IsZero reports whether the field is absent, so that omitzero drops it.
func (f Field[T]) IsZero() bool {
	return !f.Set
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON implements json.Marshaler. Absent and null both encode as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
