package domain

import "time"

// Account mirrors the persisted representation in the accounts table.
// The escalation fields (failure counters, final-chance flag, block fields,
// reset token pair) are mutated exclusively by the login and recovery flows.
type Account struct {
	ID                 string
	CCCD               string
	Username           string
	FullName           string
	MobileNumber       *string
	BankNumber         *string
	BankName           *string
	ReferenceID        *string
	PasswordHash       string
	RecoveryStringHash *string
	OTPCode            *string

	LoginFailureCount    int
	RecoveryFailureCount int
	InFinalChance        bool
	TempBlockedUntil     *time.Time
	Blocked              bool

	ResetToken          *string
	ResetTokenExpiresAt *time.Time

	Confirmed    bool
	RegisteredAt time.Time
	LastLogin    *time.Time

	// Version guards read-modify-write sequences against lost updates.
	Version int64
}

// IsTempBlocked reports whether the account is inside an active temporary block window.
func (a Account) IsTempBlocked(now time.Time) bool {
	return a.TempBlockedUntil != nil && now.Before(*a.TempBlockedUntil)
}

// TempBlockRemainingMinutes returns the remaining block window rounded up to whole minutes.
func (a Account) TempBlockRemainingMinutes(now time.Time) int {
	if a.TempBlockedUntil == nil {
		return 0
	}
	remaining := a.TempBlockedUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	minutes := int(remaining / time.Minute)
	if remaining%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// HasValidResetToken reports whether the stored reset token exists and has not expired.
func (a Account) HasValidResetToken(now time.Time) bool {
	return a.ResetToken != nil && a.ResetTokenExpiresAt != nil && now.Before(*a.ResetTokenExpiresAt)
}

// Sanitized returns a copy safe to return to API callers.
func (a Account) Sanitized() Account {
	out := a
	out.PasswordHash = ""
	out.RecoveryStringHash = nil
	out.OTPCode = nil
	out.ResetToken = nil
	out.ResetTokenExpiresAt = nil
	return out
}

// AuditEntry records a single recovery/reset/OTP event for the audit trail.
type AuditEntry struct {
	ID        string
	Action    string
	AccountID *string
	Details   map[string]any
	SourceIP  string
	UserAgent string
	CreatedAt time.Time
}

// QRSessionStatus enumerates the lifecycle of a QR login session.
type QRSessionStatus string

const (
	QRSessionPending       QRSessionStatus = "pending"
	QRSessionAuthenticated QRSessionStatus = "authenticated"
)

// QRSession is the ephemeral QR login handshake state held in the TTL cache.
type QRSession struct {
	ID        string          `json:"id"`
	Status    QRSessionStatus `json:"status"`
	CCCD      string          `json:"cccd,omitempty"`
	Token     string          `json:"token,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the session passed its expiry.
func (s QRSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
