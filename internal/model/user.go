package model

import "time"

// Roles recognised by the API.  Registration always yields a participant;
// administrators are provisioned out of band.
const (
	RoleAdmin       = "ADMIN"
	RoleParticipant = "PARTICIPANT"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash never leaves the server.
type User struct {
	ID           uint64    `json:"id"`        // users.id
	Email        string    `json:"email"`     // users.email
	PasswordHash string    `json:"-"`         // users.password_hash
	FirstName    string    `json:"firstName"` // users.first_name
	LastName     string    `json:"lastName"`  // users.last_name
	Role         string    `json:"role"`      // users.role
	CreatedAt    time.Time `json:"createdAt"` // users.created_at
	UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserSummary is the slice of a user embedded in reservation listings.
type UserSummary struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
