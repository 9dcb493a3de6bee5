package domain

import "time"

// AccountRegisteredEvent notifies downstream consumers about a new account.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	CCCD         string
	Username     string
	Confirmed    bool
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordResetEvent announces a completed password reset.
type PasswordResetEvent struct {
	EventID   string
	AccountID string
	ResetAt   time.Time
	Method    string
	IPAddress *string
	Metadata  map[string]any
}

// AccountBlockedEvent announces a permanent block decision.
type AccountBlockedEvent struct {
	EventID   string
	AccountID string
	BlockedAt time.Time
	Trigger   string
	Metadata  map[string]any
}
