package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

// LiveMatchRepository - hot snapshot of every non-terminal match. Postgres
// stays the durable record; this cache only spares the move path a SQL
// round trip and is rebuilt from postgres on a miss.
type LiveMatchRepository interface {
	Save(ctx context.Context, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	DeleteByID(ctx context.Context, id string) error
}

type liveMatchRepository struct {
	client *redis.Client
}

func NewLiveMatchRepository(client *redis.Client) LiveMatchRepository {
	return &liveMatchRepository{
		client: client,
	}
}

func (that *liveMatchRepository) Save(ctx context.Context, match *entity.Match) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	matchKey := "match:" + match.ID
	if err = that.client.Set(ctx, matchKey, matchJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set match: %w", err)
	}

	return nil
}

func (that *liveMatchRepository) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	matchKey := "match:" + id

	response, err := that.client.Get(ctx, matchKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}

	var match entity.Match
	if err = json.Unmarshal([]byte(response), &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &match, nil
}

func (that *liveMatchRepository) DeleteByID(ctx context.Context, id string) error {
	matchKey := "match:" + id

	if err := that.client.Del(ctx, matchKey).Err(); err != nil {
		return fmt.Errorf("failed to delete match by id: %w", err)
	}

	return nil
}
