package domain

import "time"

// User is the domain entity for a user account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity returns the caller identity carried by sessions for this user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Username, Email: u.Email}
}
