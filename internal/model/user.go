package model

import "time"

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column. The json tags are omitted
// here because these structs are used by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID                – primary key identifier of the user.
//  Email             – unique email address (stored lowercase).
//  Username          – unique public name, shown on shared sheets.
//  PasswordHash      – bcrypt hashed password.
//  ActiveCharacterID – the character currently open in the editor, if any.
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type User struct {
	ID                uint64     // users.id
	Email             string     // users.email
	Username          string     // users.username
	PasswordHash      string     // users.password_hash
	ActiveCharacterID *uint64    // users.active_character_id (nullable)
	CreatedAt         time.Time  // users.created_at
	UpdatedAt         time.Time  // users.updated_at
}

// PasswordReset models a row in the `password_resets` table. At most one
// outstanding reset exists per user; requesting a new one replaces the
// previous row. Tokens are single use and expire after one hour.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token (unique).
//  Token     – random hex token mailed to the user.
//  ExpiresAt – expiration timestamp.
//  CreatedAt – timestamp of creation.
type PasswordReset struct {
	ID        uint64    // password_resets.id
	UserID    uint64    // password_resets.user_id
	Token     string    // password_resets.token
	ExpiresAt time.Time // password_resets.expires_at
	CreatedAt time.Time // password_resets.created_at
}
