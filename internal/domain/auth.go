package domain

import "time"

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	SubjectID int64
	ExpiresAt time.Time
}
