package model

import "time"

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User is the persisted credential record. PasswordHash and the reset-token
// fields are internal state and never serialized; handlers expose users
// through PublicUser only.
type User struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	PasswordHash        string     `json:"-"`
	PasswordChangedAt   *time.Time `json:"-"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	Active              bool       `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PasswordChangedAfter reports whether the stored credential was rotated
// after the given token issue time. A user that never rotated always
// returns false.
func (u User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}

// PublicUser is the client-visible projection of a User.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// SessionClaims is the verified content of a session token. Tokens carry
// only the subject id and timestamps; role and profile data are re-resolved
// from the store on every request.
type SessionClaims struct {
	SubjectID string
	IssuedAt  time.Time
}

// AuthResult is returned by every flow that ends in a signed-in session.
type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}
