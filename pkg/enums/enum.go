package enums

import (
	"fmt"
	"slices"
)

func oneOf[T ~string](value T, allowed []T) bool {
	return slices.Contains(allowed, value)
}

func parse[T ~string](raw, label string, allowed []T) (T, error) {
	if value := T(raw); oneOf(value, allowed) {
		return value, nil
	}
	return "", fmt.Errorf("invalid %s %q", label, raw)
}
