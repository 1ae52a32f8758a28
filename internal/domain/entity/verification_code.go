package entity

import "time"

// Verification code purposes.
const (
	PurposeEmailVerify   = "email_verify"
	PurposePasswordReset = "password_reset"
)

// VerificationCode stores a salted hash of a one-time code issued to a user.
// The plaintext code only ever travels in the email; it is never persisted.
// A row is deleted when the code is consumed, so presence == still live.
type VerificationCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Purpose   string    `gorm:"size:20;not null;default:'email_verify'" json:"purpose"`
	CodeHash  string    `gorm:"size:64;not null" json:"-"`
	CodeSalt  string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (VerificationCode) TableName() string {
	return "verification_codes"
}

func (v *VerificationCode) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
