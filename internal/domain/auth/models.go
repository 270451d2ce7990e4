package auth

import "time"

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	AvailableLeave int       `json:"availableLeave"`
	CreatedAt      time.Time `json:"createdAt"`
	PasswordHash   string    `json:"-"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

type Profile struct {
	User
	PendingRequests int `json:"pendingRequests"`
}

// Identity is what the transport layer learns about the caller from a token.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
