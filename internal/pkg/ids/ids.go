// Package ids generates and checks the identifiers used for users and
// feedback records.
package ids

import "github.com/google/uuid"

// New returns a time-ordered UUIDv7, so ids sort like creation times. It
// falls back to a random UUID if the clock source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Valid reports whether s is a well-formed identifier.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
