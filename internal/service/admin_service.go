package service

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/accounts-api/internal/domain/entity"
	"github.com/yourusername/accounts-api/internal/domain/repository"
	apperrors "github.com/yourusername/accounts-api/internal/pkg/errors"
	"github.com/yourusername/accounts-api/pkg/hash"
)

// AdminService implements the management operations exposed to admins.
type AdminService struct {
	userRepo repository.UserRepository
	hasher   *hash.PasswordHasher
}

func NewAdminService(userRepo repository.UserRepository, hasher *hash.PasswordHasher) (*AdminService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AdminService")
	}
	if hasher == nil {
		return nil, fmt.Errorf("PasswordHasher is required for AdminService")
	}
	return &AdminService{userRepo: userRepo, hasher: hasher}, nil
}

// ListUsers returns a page of accounts ordered by ID.
func (s *AdminService) ListUsers(limit, offset int) ([]entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.List(limit, offset)
}

// GetUser looks up a single account by email.
func (s *AdminService) GetUser(email string) (*entity.User, error) {
	return s.userRepo.GetByEmail(normalizeEmail(email))
}

// CreateUser provisions an account directly. Admin-created accounts skip the
// email verification flow and start out verified.
func (s *AdminService) CreateUser(email, password string) (*entity.User, error) {
	email = normalizeEmail(email)

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Email:      email,
		Password:   hashed,
		IsVerified: true,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: user with this email already exists", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[AdminService] Created user ID=%d", user.ID)
	return user, nil
}

// DeleteUser removes an account by email. Admin accounts cannot be deleted
// through this path.
func (s *AdminService) DeleteUser(email string) error {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return fmt.Errorf("%w: %w", apperrors.ErrForbidden, ErrAdminAccountProtected)
	}

	if err := s.userRepo.Delete(user.ID); err != nil {
		return err
	}

	log.Printf("[AdminService] Deleted user ID=%d", user.ID)
	return nil
}

// DeleteAllNonAdmin removes every non-admin account and reports how many
// were deleted. The admin exclusion lives in the SQL predicate, not in
// application-side filtering.
func (s *AdminService) DeleteAllNonAdmin() (int64, error) {
	deleted, err := s.userRepo.DeleteAllNonAdmin()
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}

	log.Printf("[AdminService] Deleted %d non-admin users", deleted)
	return deleted, nil
}

// ExportUsers renders all accounts into an XLSX workbook and returns the
// serialized bytes. Password hashes are never included.
func (s *AdminService) ExportUsers() ([]byte, error) {
	const pageSize = 500

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Users"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Email", "Verified", "Admin", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := 2
	for offset := 0; ; offset += pageSize {
		users, err := s.userRepo.List(pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list users for export: %w", err)
		}
		for _, u := range users {
			values := []interface{}{u.ID, u.Email, u.IsVerified, u.IsAdmin, u.CreatedAt.Format("2006-01-02 15:04:05")}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return nil, fmt.Errorf("failed to write cell: %w", err)
				}
			}
			row++
		}
		if len(users) < pageSize {
			break
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// EnsureAdmin seeds the admin account at startup. Idempotent: an existing
// account with the configured email is promoted if needed, never re-created.
func (s *AdminService) EnsureAdmin(email, password string) error {
	if email == "" || password == "" {
		log.Printf("[AdminService] Admin seed skipped: admin email/password not configured")
		return nil
	}
	email = normalizeEmail(email)

	existing, err := s.userRepo.GetByEmail(email)
	if err == nil {
		if existing.IsAdmin {
			return nil
		}
		if err := s.userRepo.UpdateFields(existing.ID, map[string]interface{}{"is_admin": true}); err != nil {
			return fmt.Errorf("failed to promote admin account: %w", err)
		}
		log.Printf("[AdminService] Promoted existing user ID=%d to admin", existing.ID)
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check admin account: %w", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &entity.User{
		Email:      email,
		Password:   hashed,
		IsVerified: true,
		IsAdmin:    true,
	}
	if err := s.userRepo.Create(admin); err != nil {
		// Another instance may have seeded concurrently.
		if errors.Is(err, apperrors.ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	log.Printf("[AdminService] Seeded admin account ID=%d", admin.ID)
	return nil
}
