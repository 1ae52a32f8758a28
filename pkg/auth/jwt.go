package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
)

const tokenIssuer = "accounts-api"

// SessionClaims are the claims carried by a session token. Subject holds the
// account email; validity is decided by signature and expiry alone, so the
// service keeps no per-session state.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// JWTService issues and validates signed session tokens. The signing key and
// TTL are process-wide configuration loaded once at startup; rotating the key
// invalidates all outstanding tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTService creates the token service and validates its configuration.
func NewJWTService(secret string, ttl time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &JWTService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateToken creates a signed HS256 token for the given subject with an
// absolute expiry of now + configured TTL.
func (s *JWTService) GenerateToken(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject cannot be empty")
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns its subject. Expiry is
// reported as apperrors.ErrExpiredToken; every other failure (bad signature,
// malformed token, missing subject) comes back as ErrUnauthorized so callers
// cannot distinguish why a forged token was rejected.
func (s *JWTService) ParseToken(tokenString string) (string, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return "", apperrors.ErrExpiredToken
		}
		return "", fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}

	return claims.Subject, nil
}
