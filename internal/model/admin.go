package model

import "time"

// RoleAdmin is the only role allowed on the admin surface.
const RoleAdmin = "ADMIN"

// Admin represents an operator account as stored in the `admins` table.
//
// Fields:
//
//	ID           – primary key identifier.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash.
//	Role         – role name checked by the role middleware.
//	IsActive     – inactive accounts cannot log in.
//	CreatedAt    – creation timestamp.
type Admin struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the opaque token is stored.
type RefreshToken struct {
	ID        uint64
	AdminID   uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
