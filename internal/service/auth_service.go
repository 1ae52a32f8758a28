package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/accounts-api/internal/domain/entity"
	"github.com/yourusername/accounts-api/internal/domain/repository"
	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
	"github.com/yourusername/accounts-api/pkg/auth"
	"github.com/yourusername/accounts-api/pkg/hash"
)

const emailDispatchTimeout = 30 * time.Second

// AuthService orchestrates the register → verify → login → profile flow.
type AuthService struct {
	userRepo     repository.UserRepository
	verification *VerificationService
	emailService EmailService
	jwtService   *auth.JWTService
	hasher       *hash.PasswordHasher

	requireVerifiedToLogin bool
}

// ProfileUpdate carries the optional fields of a profile change.
type ProfileUpdate struct {
	Email    string
	Password string
}

// NewAuthService creates the auth workflow service and validates its wiring.
func NewAuthService(
	userRepo repository.UserRepository,
	verification *VerificationService,
	emailService EmailService,
	jwtService *auth.JWTService,
	hasher *hash.PasswordHasher,
	requireVerifiedToLogin bool,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if verification == nil {
		return nil, fmt.Errorf("VerificationService is required for AuthService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	if hasher == nil {
		return nil, fmt.Errorf("PasswordHasher is required for AuthService")
	}

	return &AuthService{
		userRepo:               userRepo,
		verification:           verification,
		emailService:           emailService,
		jwtService:             jwtService,
		hasher:                 hasher,
		requireVerifiedToLogin: requireVerifiedToLogin,
	}, nil
}

// Register creates an unverified account and dispatches a verification code.
// Email delivery is best-effort: by the time it runs the registration has
// already committed, so a send failure is logged and swallowed.
func (s *AuthService) Register(email, password string) error {
	email = normalizeEmail(email)

	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return fmt.Errorf("%w: user with this email already exists", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check email existence: %w", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Email:    email,
		Password: hashed,
	}
	if err := s.userRepo.Create(user); err != nil {
		// The unique index closes the check-then-insert race; a concurrent
		// duplicate surfaces here as ErrConflict.
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: user with this email already exists", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	code, err := s.verification.Issue(user.ID, entity.PurposeEmailVerify)
	if err != nil {
		// The account exists; the user can request a fresh code later.
		log.Printf("[AuthService] Failed to issue verification code for user ID=%d: %v", user.ID, err)
		return nil
	}

	s.dispatchEmail(user, code, entity.PurposeEmailVerify)

	log.Printf("[AuthService] User ID=%d registered, verification code dispatched", user.ID)
	return nil
}

// VerifyEmail consumes a verification code and, on success, marks the
// account verified and returns a session token.
func (s *AuthService) VerifyEmail(email, code string) (string, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.verification.Consume(user.ID, entity.PurposeEmailVerify, code); err != nil {
		return "", err
	}

	if !user.IsVerified {
		if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{"is_verified": true}); err != nil {
			return "", fmt.Errorf("failed to mark user verified: %w", err)
		}
	}

	token, err := s.jwtService.GenerateToken(user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate token after verification: %w", err)
	}

	log.Printf("[AuthService] User ID=%d verified email", user.ID)
	return token, nil
}

// Login authenticates by email and password and returns a session token.
// Unknown email and wrong password produce the identical error so callers
// cannot probe which accounts exist.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.authenticate(email, password)
	if err != nil {
		return "", err
	}

	if s.requireVerifiedToLogin && !user.IsVerified {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, ErrEmailNotVerified)
	}

	token, err := s.jwtService.GenerateToken(user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[AuthService] User ID=%d logged in", user.ID)
	return token, nil
}

// GetProfile returns the account behind a token subject. NotFound covers the
// case where the account vanished between token issuance and use.
func (s *AuthService) GetProfile(email string) (*entity.User, error) {
	return s.userRepo.GetByEmail(normalizeEmail(email))
}

// UpdateProfile applies an email and/or password change. An email change to
// one held by a different account fails with Conflict and leaves both
// accounts untouched.
func (s *AuthService) UpdateProfile(email string, update ProfileUpdate) (*entity.User, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if update.Email != "" {
		newEmail := normalizeEmail(update.Email)
		if newEmail != user.Email {
			existing, err := s.userRepo.GetByEmail(newEmail)
			if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("failed to check email availability: %w", err)
			}
			if existing != nil && existing.ID != user.ID {
				return nil, fmt.Errorf("%w: email already taken", apperrors.ErrConflict)
			}
			updates["email"] = newEmail
		}
	}

	if update.Password != "" {
		hashed, err := s.hasher.Hash(update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updates["password"] = hashed
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(user.ID, updates); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: email already taken", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.userRepo.GetByID(user.ID)
}

// ForgotPassword issues a password reset code if the account exists. The
// response is the same either way so the endpoint cannot be used to
// enumerate accounts.
func (s *AuthService) ForgotPassword(email string) error {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[AuthService] Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	code, err := s.verification.Issue(user.ID, entity.PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("failed to issue password reset code: %w", err)
	}

	s.dispatchEmail(user, code, entity.PurposePasswordReset)
	return nil
}

// ResetPassword consumes a reset code and re-hashes the new password.
func (s *AuthService) ResetPassword(email, code, newPassword string) error {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Same answer as a bad code; no account-existence leakage.
			return ErrInvalidVerificationCode
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.verification.Consume(user.ID, entity.PurposePasswordReset, code); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{"password": hashed}); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	log.Printf("[AuthService] Password reset for user ID=%d", user.ID)
	return nil
}

// authenticate checks credentials without issuing tokens.
func (s *AuthService) authenticate(email, password string) (*entity.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.hasher.Verify(password, user.Password) {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	return user, nil
}

// dispatchEmail sends the code in the background. The surrounding operation
// has already committed, so delivery failure must not unwind it.
func (s *AuthService) dispatchEmail(user *entity.User, code, purpose string) {
	idempotencyKey := uuid.NewString()
	email := user.Email
	userID := user.ID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailDispatchTimeout)
		defer cancel()

		var err error
		switch purpose {
		case entity.PurposePasswordReset:
			err = s.emailService.SendPasswordResetCode(ctx, email, code, idempotencyKey)
		default:
			err = s.emailService.SendVerificationCode(ctx, email, code, idempotencyKey)
		}
		if err != nil {
			log.Printf("[AuthService] Failed to send %s email for user ID=%d: %v", purpose, userID, err)
		}
	}()
}

// normalizeEmail trims whitespace and lowercases the address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
