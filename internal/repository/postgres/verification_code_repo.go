package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/accounts-api/internal/domain/entity"
	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
)

type VerificationCodeRepo struct {
	db *gorm.DB
}

func NewVerificationCodeRepo(db *gorm.DB) *VerificationCodeRepo {
	return &VerificationCodeRepo{db: db}
}

func (r *VerificationCodeRepo) Create(code *entity.VerificationCode) error {
	return r.db.Create(code).Error
}

func (r *VerificationCodeRepo) GetLatestByUser(userID uint, purpose string) (*entity.VerificationCode, error) {
	var code entity.VerificationCode
	err := r.db.
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest verification code: %w", err)
	}
	return &code, nil
}

// ConsumeByID deletes the code in a single conditional statement. The
// expires_at guard keeps an expired row from being consumed, and
// RowsAffected tells us whether this caller won the race: two concurrent
// consumers of the same code see at most one RowsAffected == 1.
func (r *VerificationCodeRepo) ConsumeByID(id uint, now time.Time) (bool, error) {
	result := r.db.
		Where("id = ? AND expires_at > ?", id, now).
		Delete(&entity.VerificationCode{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume verification code: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteByUser removes all codes of the given purpose for a user. Called
// before issuing a new code so only the most recent one is ever live.
func (r *VerificationCodeRepo) DeleteByUser(userID uint, purpose string) error {
	return r.db.
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&entity.VerificationCode{}).Error
}

// DeleteExpired clears codes whose expiry is before the cutoff.
func (r *VerificationCodeRepo) DeleteExpired(cutoff time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", cutoff).Delete(&entity.VerificationCode{})
	return result.RowsAffected, result.Error
}
