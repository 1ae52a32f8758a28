package repository

import (
	"github.com/yourusername/accounts-api/internal/domain/entity"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	Update(user *entity.User) error
	UpdateFields(userID uint, updates map[string]interface{}) error
	Delete(userID uint) error
	// DeleteAllNonAdmin removes every account without the admin flag and
	// returns the number of rows deleted.
	DeleteAllNonAdmin() (int64, error)
	List(limit, offset int) ([]entity.User, error)
}
