// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"github.com/your-org/storefront-api/internal/pkg/auth"
	"gorm.io/gorm"
)

// User represents the user entity
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"not null;size:255" json:"fullName"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password  string    `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	Role      auth.Role `gorm:"type:varchar(10);not null;default:'USER'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook normalizes fields before insert
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	return nil
}

// Principal returns the identity embedded in issued tokens
func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
