package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/yourusername/accounts-api/internal/domain/entity"
	"github.com/yourusername/accounts-api/internal/domain/repository"
	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
)

// codeBytes random bytes hex-encoded give the fixed 6-character code.
const codeBytes = 3

// VerificationService issues and consumes one-time codes. Codes are stored
// as salted sha256 hashes; the plaintext exists only in the outbound email.
type VerificationService struct {
	codes repository.VerificationCodeRepository
	ttl   time.Duration
}

func NewVerificationService(codes repository.VerificationCodeRepository, ttl time.Duration) (*VerificationService, error) {
	if codes == nil {
		return nil, fmt.Errorf("verification code repository is required for VerificationService")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &VerificationService{codes: codes, ttl: ttl}, nil
}

// Issue generates a fresh code for the user and purpose, superseding any
// earlier one: old rows are deleted first so only the newest code is live.
// Returns the plaintext code for delivery.
func (s *VerificationService) Issue(userID uint, purpose string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	salt, err := generateSalt()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification salt: %w", err)
	}

	if err := s.codes.DeleteByUser(userID, purpose); err != nil {
		return "", fmt.Errorf("failed to supersede previous codes: %w", err)
	}

	record := &entity.VerificationCode{
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  hashCode(code, salt),
		CodeSalt:  salt,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.codes.Create(record); err != nil {
		return "", fmt.Errorf("failed to create verification record: %w", err)
	}

	return code, nil
}

// Consume validates and burns a code. Wrong code, expired code, unknown
// code, and a lost consumption race all come back as the same
// ErrInvalidVerificationCode so a caller cannot probe which it was.
// The final delete is conditional on the row still existing and being
// unexpired, which makes concurrent consumption at-most-once.
func (s *VerificationService) Consume(userID uint, purpose, code string) error {
	if code == "" {
		return ErrInvalidVerificationCode
	}

	record, err := s.codes.GetLatestByUser(userID, purpose)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return ErrInvalidVerificationCode
		}
		return err
	}

	now := time.Now()
	if record.IsExpired(now) {
		return ErrInvalidVerificationCode
	}

	expected := hashCode(code, record.CodeSalt)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(record.CodeHash)) != 1 {
		return ErrInvalidVerificationCode
	}

	consumed, err := s.codes.ConsumeByID(record.ID, now)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidVerificationCode
	}
	return nil
}

// CleanupExpired removes stale code rows; called periodically from main.
func (s *VerificationService) CleanupExpired() (int64, error) {
	return s.codes.DeleteExpired(time.Now())
}

func generateCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func generateSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashCode(code, salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
