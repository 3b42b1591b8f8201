package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new random identifier for requests and tokens
func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether s has the canonical form GenerateID produces.
// Client-supplied ids that fail this check are replaced.
func ValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
