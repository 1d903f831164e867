package enums

import (
	"fmt"
	"slices"
)

// set is the closed list of values an enum accepts, in declaration order.
type set[T ~string] []T

func (s set[T]) has(v T) bool { return slices.Contains(s, v) }

func (s set[T]) parse(raw, kind string) (T, error) {
	if v := T(raw); s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
