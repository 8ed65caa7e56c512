package domain

import "time"

type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// NewUser carries the caller-supplied attributes of a user that has not been
// written yet.
type NewUser struct {
	Name  string
	Email string
}
