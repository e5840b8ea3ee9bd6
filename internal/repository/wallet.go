package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/damasarena/damas-backend/internal/entity"
)

type WalletRepository interface {
	CreateRequest(ctx context.Context, request *entity.WalletRequest) error
	ListByUser(ctx context.Context, userID string) ([]*entity.WalletRequest, error)
}

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (that *walletRepository) CreateRequest(ctx context.Context, request *entity.WalletRequest) error {
	query := `INSERT INTO wallet_requests (id, user_id, kind, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := that.db.ExecContext(ctx, query,
		request.ID, request.UserID, request.Kind, request.Amount, request.Status, request.CreatedAt)
	if err != nil {
		return fmt.Errorf("can't create wallet request: %w", err)
	}

	return nil
}

func (that *walletRepository) ListByUser(ctx context.Context, userID string) ([]*entity.WalletRequest, error) {
	query := `SELECT id, user_id, kind, amount, status, created_at
		FROM wallet_requests WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := that.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("can't list wallet requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.WalletRequest
	for rows.Next() {
		var request entity.WalletRequest
		err = rows.Scan(&request.ID, &request.UserID, &request.Kind, &request.Amount,
			&request.Status, &request.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("can't scan wallet request: %w", err)
		}
		requests = append(requests, &request)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read wallet request rows: %w", err)
	}

	return requests, nil
}
