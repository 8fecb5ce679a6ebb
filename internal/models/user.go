package models

import (
	"net/url"
	"time"
)

// OnlineWindow is how recently a user must have been seen to count as online.
const OnlineWindow = 5 * time.Minute

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// User represents a user in the messenger
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never send to client
	AvatarURL    string    `json:"avatar_url"`
	Status       string    `json:"status"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsOnline reports whether the user was seen within OnlineWindow of now.
func (u *User) IsOnline(now time.Time) bool {
	return now.Sub(u.LastSeen) < OnlineWindow
}

// Public strips the user down to the fields returned by register and login.
func (u *User) Public() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Status:    u.Status,
	}
}

// AvatarURLFor derives the avatar of a user from the username.
func AvatarURLFor(username string) string {
	return avatarBaseURL + url.QueryEscape(username)
}

// RegisterRequest is the body of the auth "register" action
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of the auth "login" action
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is what we return to the client
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Status    string `json:"status"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// VerifyResponse is returned by the auth "verify" action
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// UserSearchResult is one entry of the username directory search
type UserSearchResult struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Status    string `json:"status"`
	Online    bool   `json:"online"`
}

type UserSearchResponse struct {
	Users []*UserSearchResult `json:"users"`
}
