// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
)

const invalidCredentials = "Invalid credentials"

// Service handles user business logic
type Service struct {
	repo            Repository
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	log             logrus.FieldLogger
}

// NewService creates a new user service
func NewService(repo Repository, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		repo:            repo,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		log:             log,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	FullName string `json:"fullName" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Register creates a new USER account and issues a token for it
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := NormalizeEmail(req.Email)

	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("Email already in use")
	case !errors.Is(err, ErrUserNotFound):
		return nil, apperror.Internal(err)
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}

	user := &User{
		FullName: req.FullName,
		Email:    email,
		Password: hashedPassword,
		Role:     auth.RoleUser,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, apperror.Conflict("Email already in use")
		}
		return nil, apperror.Internal(err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("user registered")

	return s.issue(user)
}

// Login authenticates a user by email and password
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.passwordManager.BurnCompare(req.Password)
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, apperror.Internal(err)
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.log.WithField("user_id", user.ID).Warn("login rejected: wrong password")
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, apperror.Internal(err)
	}

	return s.issue(user)
}

// GetProfile gets user profile by ID
func (s *Service) GetProfile(ctx context.Context, userID uint) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Internal(err)
	}
	return user, nil
}

func (s *Service) issue(user *User) (*AuthResponse, error) {
	token, err := s.jwtManager.GenerateToken(user.Principal())
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to generate token: %w", err))
	}
	return &AuthResponse{Token: token, User: user}, nil
}
