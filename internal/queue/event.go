// Package queue defines message payloads exchanged over the message broker.
package queue

// ResetQueueName is the durable queue carrying password reset mail jobs.
const ResetQueueName = "mail.password_reset"

// SaveQueueName is the durable queue carrying save audit events.
const SaveQueueName = "character.saved"

// PasswordResetRequestedEvent is published when a user asks for a password
// reset. The mail consumer turns it into an outbound email; the raw token
// is included because the mail body needs it. The actual mail provider is
// external to this service.
type PasswordResetRequestedEvent struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Token       string `json:"token"`
	ExpiresAt   string `json:"expires_at"`
	RequestedAt string `json:"requested_at"`
}

// CharacterSavedEvent is published after a character document update has
// been persisted. Consumers can log, notify, or feed analytics without
// querying the primary database.
type CharacterSavedEvent struct {
	CharacterID uint64 `json:"character_id"`
	UserID      uint64 `json:"user_id"`
	Name        string `json:"name"`
	SaveType    string `json:"save_type"`
	SavedAt     string `json:"saved_at"`
}
