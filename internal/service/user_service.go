package service

import (
	"context"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
)

// UserService registers buyers. Credentials and tokens live with the
// upstream auth layer; this only keeps the identities tickets point at.
type UserService interface {
	Register(ctx context.Context, email, name string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type userService struct {
	users repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

// Register creates a customer account, unique by email
func (s *userService) Register(ctx context.Context, email, name string) (*domain.User, error) {
	user, err := domain.NewUser(email, name)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user
func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
