package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

const minPasswordLength = 6

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (string, *entity.User, error)
	GenerateToken(userID string) (string, error)
	VerifyToken(tokenString string) (string, error)
}

type authUserRepo interface {
	Create(ctx context.Context, user *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

type authService struct {
	userRepo        authUserRepo
	secretKey       string
	startingBalance int64
}

func NewAuthService(userRepo authUserRepo, secretKey string, startingBalance int64) AuthService {
	return &authService{
		userRepo:        userRepo,
		secretKey:       secretKey,
		startingBalance: startingBalance,
	}
}

func (that *authService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", apperror.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperror.ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Balance:      that.startingBalance,
		CreatedAt:    time.Now().UTC(),
	}

	if err = that.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("could not save user: %w", err)
	}

	return user, nil
}

func (that *authService) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := that.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("could not get user by email: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperror.ErrInvalidCredentials
	}

	token, err := that.GenerateToken(user.ID)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (that *authService) GenerateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken - returns the user id a valid token was issued for.
func (that *authService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(that.secretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperror.ErrInvalidCredentials
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return "", apperror.ErrInvalidCredentials
	}

	return userID, nil
}
