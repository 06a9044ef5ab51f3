package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side session row. Only the SHA-256 hash of the opaque
// session token is stored; deleting the row revokes access immediately even
// if an unexpired JWT is still in the wild, because the auth middleware
// re-checks the row on every request.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	UserAgent string    `gorm:"size:512" json:"user_agent"`
	IPAddress string    `gorm:"size:64" json:"ip_address"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a credential record for a user. ProviderID "credential" carries
// the bcrypt password hash; other providers would leave it nil.
type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_user_provider" json:"user_id"`
	ProviderID   string    `gorm:"size:50;not null;uniqueIndex:idx_accounts_user_provider" json:"provider_id"`
	PasswordHash *string   `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProviderCredential is the ProviderID for password accounts.
const ProviderCredential = "credential"

// Verification is a one-time token keyed by an identifier (the email at
// issue time). Used for email verification and password resets.
type Verification struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Identifier string    `gorm:"size:255;not null;index" json:"identifier"`
	TokenHash  string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Kind       string    `gorm:"size:32;not null" json:"kind"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Verification kinds.
const (
	VerificationEmail         = "email_verify"
	VerificationPasswordReset = "password_reset"
)
