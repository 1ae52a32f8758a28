package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/accounts-api/internal/domain/entity"
	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
	"github.com/yourusername/accounts-api/pkg/auth"
	"github.com/yourusername/accounts-api/pkg/hash"
)

// ============================================================================
// Mocks
// ============================================================================

// MockUserRepository implements repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateFields(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteAllNonAdmin() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) List(limit, offset int) ([]entity.User, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockVerificationCodeRepository implements repository.VerificationCodeRepository
type MockVerificationCodeRepository struct {
	mock.Mock
}

func (m *MockVerificationCodeRepository) Create(code *entity.VerificationCode) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) GetLatestByUser(userID uint, purpose string) (*entity.VerificationCode, error) {
	args := m.Called(userID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VerificationCode), args.Error(1)
}

func (m *MockVerificationCodeRepository) ConsumeByID(id uint, now time.Time) (bool, error) {
	args := m.Called(id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockVerificationCodeRepository) DeleteByUser(userID uint, purpose string) error {
	args := m.Called(userID, purpose)
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) DeleteExpired(cutoff time.Time) (int64, error) {
	args := m.Called(cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// recordingEmailService captures sends so async dispatch can be asserted.
type recordingEmailService struct {
	sent chan string
}

func newRecordingEmailService() *recordingEmailService {
	return &recordingEmailService{sent: make(chan string, 4)}
}

func (s *recordingEmailService) SendVerificationCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	s.sent <- "verify:" + toEmail
	return nil
}

func (s *recordingEmailService) SendPasswordResetCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	s.sent <- "reset:" + toEmail
	return nil
}

func (s *recordingEmailService) waitForSend(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-s.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected an email dispatch, got none")
		return ""
	}
}

// ============================================================================
// Helpers
// ============================================================================

type authFixture struct {
	userRepo *MockUserRepository
	codeRepo *MockVerificationCodeRepository
	email    *recordingEmailService
	hasher   *hash.PasswordHasher
	jwt      *auth.JWTService
	svc      *AuthService
}

func newAuthFixture(t *testing.T, requireVerified bool) *authFixture {
	t.Helper()

	userRepo := new(MockUserRepository)
	codeRepo := new(MockVerificationCodeRepository)
	email := newRecordingEmailService()
	hasher := hash.NewPasswordHasher()

	jwtService, err := auth.NewJWTService("test-secret-key", 30*time.Minute)
	require.NoError(t, err)

	verification, err := NewVerificationService(codeRepo, 15*time.Minute)
	require.NoError(t, err)

	svc, err := NewAuthService(userRepo, verification, email, jwtService, hasher, requireVerified)
	require.NoError(t, err)

	return &authFixture{
		userRepo: userRepo,
		codeRepo: codeRepo,
		email:    email,
		hasher:   hasher,
		jwt:      jwtService,
		svc:      svc,
	}
}

func (f *authFixture) storedUser(t *testing.T, id uint, email, password string, verified bool) *entity.User {
	t.Helper()
	hashed, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return &entity.User{
		ID:         id,
		Email:      email,
		Password:   hashed,
		IsVerified: verified,
	}
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t, false)

	f.userRepo.On("GetByEmail", "new@test.com").Return(nil, apperrors.ErrNotFound)
	f.userRepo.On("Create", mock.MatchedBy(func(u *entity.User) bool {
		return u.Email == "new@test.com" && !u.IsVerified && !u.IsAdmin && u.Password != "password123"
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.User).ID = 7
	}).Return(nil)
	f.codeRepo.On("DeleteByUser", uint(7), entity.PurposeEmailVerify).Return(nil)
	f.codeRepo.On("Create", mock.AnythingOfType("*entity.VerificationCode")).Return(nil)

	err := f.svc.Register("New@Test.com ", "password123")

	require.NoError(t, err)
	assert.Equal(t, "verify:new@test.com", f.email.waitForSend(t))
	f.userRepo.AssertExpectations(t)
	f.codeRepo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, false)

	existing := f.storedUser(t, 1, "taken@test.com", "whatever", true)
	f.userRepo.On("GetByEmail", "taken@test.com").Return(existing, nil)

	err := f.svc.Register("taken@test.com", "password123")

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	f.userRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestRegister_ConcurrentDuplicateSurfacesAsConflict(t *testing.T) {
	f := newAuthFixture(t, false)

	// The pre-check misses, the unique index catches the race on insert.
	f.userRepo.On("GetByEmail", "race@test.com").Return(nil, apperrors.ErrNotFound)
	f.userRepo.On("Create", mock.Anything).Return(apperrors.ErrConflict)

	err := f.svc.Register("race@test.com", "password123")

	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRegister_CodeIssueFailureDoesNotFailRegistration(t *testing.T) {
	f := newAuthFixture(t, false)

	f.userRepo.On("GetByEmail", "new@test.com").Return(nil, apperrors.ErrNotFound)
	f.userRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.User).ID = 7
	}).Return(nil)
	f.codeRepo.On("DeleteByUser", uint(7), entity.PurposeEmailVerify).Return(assert.AnError)

	err := f.svc.Register("new@test.com", "password123")

	assert.NoError(t, err)
}

// ============================================================================
// VerifyEmail
// ============================================================================

func TestVerifyEmail_Success(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 3, "user@test.com", "password123", false)
	code := "a1b2c3"
	salt := "somesalt"
	record := &entity.VerificationCode{
		ID:        11,
		UserID:    3,
		Purpose:   entity.PurposeEmailVerify,
		CodeHash:  hashCode(code, salt),
		CodeSalt:  salt,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)
	f.codeRepo.On("GetLatestByUser", uint(3), entity.PurposeEmailVerify).Return(record, nil)
	f.codeRepo.On("ConsumeByID", uint(11), mock.AnythingOfType("time.Time")).Return(true, nil)
	f.userRepo.On("UpdateFields", uint(3), map[string]interface{}{"is_verified": true}).Return(nil)

	token, err := f.svc.VerifyEmail("user@test.com", code)

	require.NoError(t, err)
	subject, err := f.jwt.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@test.com", subject)
	f.userRepo.AssertExpectations(t)
}

func TestVerifyEmail_WrongCode(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 3, "user@test.com", "password123", false)
	salt := "somesalt"
	record := &entity.VerificationCode{
		ID:        11,
		UserID:    3,
		Purpose:   entity.PurposeEmailVerify,
		CodeHash:  hashCode("a1b2c3", salt),
		CodeSalt:  salt,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)
	f.codeRepo.On("GetLatestByUser", uint(3), entity.PurposeEmailVerify).Return(record, nil)

	_, err := f.svc.VerifyEmail("user@test.com", "ffffff")

	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	f.userRepo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything)
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 3, "user@test.com", "password123", false)
	salt := "somesalt"
	record := &entity.VerificationCode{
		ID:        11,
		UserID:    3,
		Purpose:   entity.PurposeEmailVerify,
		CodeHash:  hashCode("a1b2c3", salt),
		CodeSalt:  salt,
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	}

	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)
	f.codeRepo.On("GetLatestByUser", uint(3), entity.PurposeEmailVerify).Return(record, nil)

	_, err := f.svc.VerifyEmail("user@test.com", "a1b2c3")

	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	f.codeRepo.AssertNotCalled(t, "ConsumeByID", mock.Anything, mock.Anything)
}

func TestVerifyEmail_LostConsumptionRace(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 3, "user@test.com", "password123", false)
	salt := "somesalt"
	record := &entity.VerificationCode{
		ID:        11,
		UserID:    3,
		Purpose:   entity.PurposeEmailVerify,
		CodeHash:  hashCode("a1b2c3", salt),
		CodeSalt:  salt,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)
	f.codeRepo.On("GetLatestByUser", uint(3), entity.PurposeEmailVerify).Return(record, nil)
	// Another request consumed the row first.
	f.codeRepo.On("ConsumeByID", uint(11), mock.AnythingOfType("time.Time")).Return(false, nil)

	_, err := f.svc.VerifyEmail("user@test.com", "a1b2c3")

	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	f.userRepo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything)
}

func TestVerifyEmail_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t, false)

	f.userRepo.On("GetByEmail", "nobody@test.com").Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.VerifyEmail("nobody@test.com", "a1b2c3")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 5, "user@test.com", "password123", true)
	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)

	token, err := f.svc.Login("user@test.com", "password123")

	require.NoError(t, err)
	subject, err := f.jwt.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@test.com", subject)
}

func TestLogin_IdenticalErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 5, "user@test.com", "password123", true)
	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)
	f.userRepo.On("GetByEmail", "nobody@test.com").Return(nil, apperrors.ErrNotFound)

	_, errWrongPassword := f.svc.Login("user@test.com", "wrong-password")
	_, errUnknownEmail := f.svc.Login("nobody@test.com", "password123")

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownEmail)
	assert.ErrorIs(t, errWrongPassword, apperrors.ErrUnauthorized)
	assert.ErrorIs(t, errUnknownEmail, apperrors.ErrUnauthorized)
	// Error text must not reveal which case occurred.
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestLogin_UnverifiedBlockedWhenRequired(t *testing.T) {
	f := newAuthFixture(t, true)

	user := f.storedUser(t, 5, "user@test.com", "password123", false)
	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)

	_, err := f.svc.Login("user@test.com", "password123")

	assert.ErrorIs(t, err, ErrEmailNotVerified)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogin_UnverifiedAllowedByDefault(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 5, "user@test.com", "password123", false)
	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)

	token, err := f.svc.Login("user@test.com", "password123")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

// ============================================================================
// UpdateProfile
// ============================================================================

func TestUpdateProfile_EmailTakenByOtherAccount(t *testing.T) {
	f := newAuthFixture(t, false)

	me := f.storedUser(t, 5, "me@test.com", "password123", true)
	other := f.storedUser(t, 9, "other@test.com", "password123", true)

	f.userRepo.On("GetByEmail", "me@test.com").Return(me, nil)
	f.userRepo.On("GetByEmail", "other@test.com").Return(other, nil)

	_, err := f.svc.UpdateProfile("me@test.com", ProfileUpdate{Email: "other@test.com"})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	f.userRepo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything)
}

func TestUpdateProfile_PasswordChangeRehashes(t *testing.T) {
	f := newAuthFixture(t, false)

	me := f.storedUser(t, 5, "me@test.com", "old-password", true)
	f.userRepo.On("GetByEmail", "me@test.com").Return(me, nil)
	f.userRepo.On("UpdateFields", uint(5), mock.MatchedBy(func(updates map[string]interface{}) bool {
		hashed, ok := updates["password"].(string)
		return ok && hashed != "new-password" && f.hasher.Verify("new-password", hashed)
	})).Return(nil)
	f.userRepo.On("GetByID", uint(5)).Return(me, nil)

	_, err := f.svc.UpdateProfile("me@test.com", ProfileUpdate{Password: "new-password"})

	require.NoError(t, err)
	f.userRepo.AssertExpectations(t)
}

func TestUpdateProfile_NoChangesIsNoop(t *testing.T) {
	f := newAuthFixture(t, false)

	me := f.storedUser(t, 5, "me@test.com", "password123", true)
	f.userRepo.On("GetByEmail", "me@test.com").Return(me, nil)

	updated, err := f.svc.UpdateProfile("me@test.com", ProfileUpdate{})

	require.NoError(t, err)
	assert.Equal(t, me, updated)
	f.userRepo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything)
}

// ============================================================================
// ForgotPassword / ResetPassword
// ============================================================================

func TestForgotPassword_UnknownEmailStillSucceeds(t *testing.T) {
	f := newAuthFixture(t, false)

	f.userRepo.On("GetByEmail", "nobody@test.com").Return(nil, apperrors.ErrNotFound)

	err := f.svc.ForgotPassword("nobody@test.com")

	assert.NoError(t, err)
	f.codeRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestForgotPassword_IssuesResetCode(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 5, "user@test.com", "password123", true)
	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)
	f.codeRepo.On("DeleteByUser", uint(5), entity.PurposePasswordReset).Return(nil)
	f.codeRepo.On("Create", mock.MatchedBy(func(c *entity.VerificationCode) bool {
		return c.UserID == 5 && c.Purpose == entity.PurposePasswordReset
	})).Return(nil)

	err := f.svc.ForgotPassword("user@test.com")

	require.NoError(t, err)
	assert.Equal(t, "reset:user@test.com", f.email.waitForSend(t))
	f.codeRepo.AssertExpectations(t)
}

func TestResetPassword_Success(t *testing.T) {
	f := newAuthFixture(t, false)

	user := f.storedUser(t, 5, "user@test.com", "old-password", true)
	salt := "somesalt"
	record := &entity.VerificationCode{
		ID:        21,
		UserID:    5,
		Purpose:   entity.PurposePasswordReset,
		CodeHash:  hashCode("d4e5f6", salt),
		CodeSalt:  salt,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	f.userRepo.On("GetByEmail", "user@test.com").Return(user, nil)
	f.codeRepo.On("GetLatestByUser", uint(5), entity.PurposePasswordReset).Return(record, nil)
	f.codeRepo.On("ConsumeByID", uint(21), mock.AnythingOfType("time.Time")).Return(true, nil)
	f.userRepo.On("UpdateFields", uint(5), mock.MatchedBy(func(updates map[string]interface{}) bool {
		hashed, ok := updates["password"].(string)
		return ok && f.hasher.Verify("new-password", hashed)
	})).Return(nil)

	err := f.svc.ResetPassword("user@test.com", "d4e5f6", "new-password")

	require.NoError(t, err)
	f.userRepo.AssertExpectations(t)
}

func TestResetPassword_UnknownEmailLooksLikeBadCode(t *testing.T) {
	f := newAuthFixture(t, false)

	f.userRepo.On("GetByEmail", "nobody@test.com").Return(nil, apperrors.ErrNotFound)

	err := f.svc.ResetPassword("nobody@test.com", "d4e5f6", "new-password")

	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
}
