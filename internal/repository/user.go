package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

// pq error code for unique constraint violations.
const uniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

type userRepository struct {
	conn *sql.DB
}

func NewUserRepository(conn *sql.DB) UserRepository {
	return &userRepository{
		conn: conn,
	}
}

func (that *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := that.conn.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Balance, user.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperror.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("can't save user: %w", err)
	}

	return nil
}

func (that *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := userSelect + ` WHERE id = $1`

	return scanUser(that.conn.QueryRowContext(ctx, query, id))
}

func (that *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := userSelect + ` WHERE email = $1`

	return scanUser(that.conn.QueryRowContext(ctx, query, email))
}

const userSelect = `SELECT id, username, email, password_hash, balance, wins, losses, total_winnings, created_at
	FROM users`

func scanUser(row *sql.Row) (*entity.User, error) {
	var user entity.User

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Balance, &user.Wins, &user.Losses, &user.TotalWinnings, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find user: %w", err)
	}

	return &user, nil
}
