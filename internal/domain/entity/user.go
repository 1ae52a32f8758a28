package entity

import "time"

// User represents an account in the system. The password column always holds
// an argon2id PHC-encoded hash, never plaintext.
type User struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Email      string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password   string `gorm:"size:255;not null" json:"-"`
	IsVerified bool   `gorm:"not null;default:false" json:"is_verified"`
	IsAdmin    bool   `gorm:"not null;default:false" json:"is_admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for GORM.
func (User) TableName() string {
	return "users"
}
