package service

import (
	"context"
	"fmt"

	"github.com/damasarena/damas-backend/internal/entity"
)

type UserService interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

type userService struct {
	userRepo userRepo
}

func NewUserService(userRepo userRepo) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

func (that *userService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, err := that.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}

	return user, nil
}
