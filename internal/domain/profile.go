package domain

import "time"

type Profile struct {
	ID        int64
	UserID    int64
	Bio       string
	CreatedAt time.Time
}

type NewProfile struct {
	UserID int64
	Bio    string
}
