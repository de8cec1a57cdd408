package service

import (
	"context"

	"gorm.io/gorm"

	"govichain/internal/errors"
	"govichain/internal/model"
	"govichain/internal/repository"
)

// UserService exposes read-only user lookups. Users are created through
// registration and never mutated here.
type UserService interface {
	Get(ctx context.Context, id uint) (*model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service.
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// Get retrieves a user by ID.
func (s *userService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &errors.NotFoundError{Entity: "user", ID: id}
		}
		return nil, err
	}
	return user, nil
}

// ListAll lists all users.
func (s *userService) ListAll(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListAll(ctx)
}
