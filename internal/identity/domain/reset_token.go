package domain

import "time"

// ResetTokenTTL is the fixed validity window of a password-reset token.
const ResetTokenTTL = 30 * time.Minute

// PasswordResetToken is a single-use credential for the self-service password
// reset flow. There is no stored "expired" state: any read comparing the
// current time against ExpiresAt treats a stale row as invalid, and stale
// rows linger until a reset attempt touches them.
type PasswordResetToken struct {
	ID        string
	Token     string // random opaque value, unique
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the token is no longer valid at the given time.
func (t PasswordResetToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
