package service

import "errors"

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	ErrEmailNotVerified        = errors.New("email_not_verified")
	ErrInvalidVerificationCode = errors.New("invalid_verification_code")
	ErrAdminAccountProtected   = errors.New("admin_account_protected")
)
