package auth

import "time"

// DefaultImage is the avatar assigned to accounts without one.
const DefaultImage = "https://upload.wikimedia.org/wikipedia/commons/2/2c/Default_pfp.svg"

// User is the domain representation of an account.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Image        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary is the public slice of a user shown next to connections, chats and
// agreements.
type Summary struct {
	ID       string
	Username string
	Email    string
	Image    string
}

// Summary returns the public view of u.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username, Email: u.Email, Image: u.Image}
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
