// internal/pkg/auth/password.go
package auth

import (
	"errors"
	"fmt"

	"github.com/your-org/storefront-api/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes
const maxPasswordBytes = 72

// ErrPasswordMismatch is returned when a password does not match its hash
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordManager handles password operations
type PasswordManager struct {
	cost      int
	dummyHash []byte
}

// NewPasswordManager creates a new password manager
func NewPasswordManager(cfg *config.Config) *PasswordManager {
	p := &PasswordManager{cost: cfg.Security.BcryptCost}
	// Compared against when the account does not exist so both login
	// failure paths spend the same time hashing.
	p.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), p.cost)
	return p
}

// HashPassword hashes a password using bcrypt
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", fmt.Errorf("password validation failed: %w", err)
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// BurnCompare runs a comparison against a fixed hash and discards the result
func (p *PasswordManager) BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
}

// ValidatePassword checks the length bounds accepted at registration
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters long")
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must be no more than %d bytes long", maxPasswordBytes)
	}
	return nil
}
