package utils

import "log"

// Must aborts startup on a non-nil error.
func Must(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

// MustValue is Must for constructors returning a value.
func MustValue[T any](v T, e error) T {
	Must(e)
	return v
}
