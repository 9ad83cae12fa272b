package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	Sync(ctx context.Context, userID, name, email, avatarURL string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// Sync upserts the profile from the identity provider's claims. Called
// on first login and whenever the client refreshes the profile.
func (s *userService) Sync(ctx context.Context, userID, name, email, avatarURL string) (*model.User, error) {
	return s.userRepo.CreateUser(ctx, userID, name, email, avatarURL)
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
