// internal/infrastructure/database/memory/user.go
package memory

import (
	"context"

	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/pkg/auth"
)

type userRepo struct {
	db *DB
}

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email := user.NormalizeEmail(u.Email)
	for _, existing := range r.db.users {
		if existing.Email == email {
			return user.ErrUserAlreadyExists
		}
	}

	u.ID = r.db.nextID("users")
	u.Email = email
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	r.db.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email = user.NormalizeEmail(email)
	for _, u := range r.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *userRepo) FindByID(_ context.Context, id uint) (*user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}
