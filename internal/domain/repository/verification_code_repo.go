package repository

import (
	"time"

	"github.com/yourusername/accounts-api/internal/domain/entity"
)

// VerificationCodeRepository persists one-time verification codes.
type VerificationCodeRepository interface {
	Create(code *entity.VerificationCode) error
	GetLatestByUser(userID uint, purpose string) (*entity.VerificationCode, error)
	// ConsumeByID deletes the code row iff it still exists and has not expired
	// at the given instant. Returns true when exactly one row was removed, so
	// concurrent consumption attempts yield at most one winner.
	ConsumeByID(id uint, now time.Time) (bool, error)
	DeleteByUser(userID uint, purpose string) error
	DeleteExpired(cutoff time.Time) (int64, error)
}
