package domain

import "time"

// User represents a storefront account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicProfile is the part of a User that may leave the service.
type PublicProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Profile projects the user to its public fields.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}
}

// Session is the result of a successful registration or login.
type Session struct {
	Token string        `json:"token"`
	User  PublicProfile `json:"user"`
}
