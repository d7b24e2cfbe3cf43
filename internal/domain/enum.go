package domain

import "strings"

// Enum is a closed set of string values backing one enumerated task column.
// The first value is the column default.
type Enum[T ~string] struct {
	name   string
	values []T
	index  map[string]T
}

// NewEnum builds a closed set. It fails on an empty set, empty members,
// members containing the token separator, or duplicates.
func NewEnum[T ~string](name string, values ...T) (*Enum[T], error) {
	if len(values) == 0 {
		return nil, &ValidationError{Field: name, Reason: "enum has no members"}
	}

	index := make(map[string]T, len(values))
	for _, v := range values {
		s := string(v)
		if s == "" {
			return nil, &ValidationError{Field: name, Reason: "enum member is empty"}
		}
		if strings.Contains(s, TokenSeparator) {
			return nil, &ValidationError{Field: name, Value: s, Reason: "enum member contains token separator"}
		}
		if _, dup := index[s]; dup {
			return nil, &ValidationError{Field: name, Value: s, Reason: "duplicate enum member"}
		}
		index[s] = v
	}

	return &Enum[T]{name: name, values: values, index: index}, nil
}

// MustEnum is NewEnum for package-level schema declarations.
func MustEnum[T ~string](name string, values ...T) *Enum[T] {
	e, err := NewEnum(name, values...)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the column the enum belongs to.
func (e *Enum[T]) Name() string { return e.name }

// Default returns the first declared member.
func (e *Enum[T]) Default() T { return e.values[0] }

// Values returns a copy of the members in declaration order.
func (e *Enum[T]) Values() []T {
	out := make([]T, len(e.values))
	copy(out, e.values)
	return out
}

// Strings returns the members as plain strings.
func (e *Enum[T]) Strings() []string {
	out := make([]string, len(e.values))
	for i, v := range e.values {
		out[i] = string(v)
	}
	return out
}

// Contains reports whether s is a member.
func (e *Enum[T]) Contains(s string) bool {
	_, ok := e.index[s]
	return ok
}

// Parse returns the member equal to s.
func (e *Enum[T]) Parse(s string) (T, error) {
	v, ok := e.index[s]
	if !ok {
		var zero T
		return zero, &ValidationError{
			Field:  e.name,
			Value:  s,
			Reason: "must be one of " + strings.Join(e.Strings(), ", "),
		}
	}
	return v, nil
}
