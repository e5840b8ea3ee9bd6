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

const openLobbiesKey = "lobbies:open"

// LobbyIndexRepository - derived lookup structures for the lobby board:
// the set of open public lobbies and the private code mapping. Postgres
// remains the authority; a miss here is answered from postgres and the
// index is repaired on the next write.
type LobbyIndexRepository interface {
	Add(ctx context.Context, lobby *entity.Lobby) error
	Remove(ctx context.Context, lobby *entity.Lobby) error
	ListOpen(ctx context.Context) ([]*entity.Lobby, error)
	ResolveCode(ctx context.Context, code string) (string, error)
}

type lobbyIndexRepository struct {
	client *redis.Client
}

func NewLobbyIndexRepository(client *redis.Client) LobbyIndexRepository {
	return &lobbyIndexRepository{
		client: client,
	}
}

func (that *lobbyIndexRepository) Add(ctx context.Context, lobby *entity.Lobby) error {
	lobbyJSON, err := json.Marshal(lobby)
	if err != nil {
		return fmt.Errorf("could not marshal lobby: %w", err)
	}

	if err = that.client.Set(ctx, "lobby:"+lobby.ID, lobbyJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set lobby: %w", err)
	}

	if lobby.IsPrivate() {
		if lobby.Code == "" {
			return nil
		}
		if err = that.client.Set(ctx, "lobbycode:"+lobby.Code, lobby.ID, 0).Err(); err != nil {
			return fmt.Errorf("failed to set lobby code: %w", err)
		}
		return nil
	}

	if err = that.client.SAdd(ctx, openLobbiesKey, lobby.ID).Err(); err != nil {
		return fmt.Errorf("failed to index lobby: %w", err)
	}

	return nil
}

func (that *lobbyIndexRepository) Remove(ctx context.Context, lobby *entity.Lobby) error {
	if err := that.client.SRem(ctx, openLobbiesKey, lobby.ID).Err(); err != nil {
		return fmt.Errorf("failed to unindex lobby: %w", err)
	}

	if lobby.Code != "" {
		if err := that.client.Del(ctx, "lobbycode:"+lobby.Code).Err(); err != nil {
			return fmt.Errorf("failed to delete lobby code: %w", err)
		}
	}

	if err := that.client.Del(ctx, "lobby:"+lobby.ID).Err(); err != nil {
		return fmt.Errorf("failed to delete lobby: %w", err)
	}

	return nil
}

// ListOpen - snapshots the open public lobbies. Ids whose payload has
// already been deleted are dropped from the set on the way through.
func (that *lobbyIndexRepository) ListOpen(ctx context.Context) ([]*entity.Lobby, error) {
	ids, err := that.client.SMembers(ctx, openLobbiesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list open lobbies: %w", err)
	}

	var lobbies []*entity.Lobby
	for _, id := range ids {
		response, err := that.client.Get(ctx, "lobby:"+id).Result()
		if errors.Is(err, redis.Nil) {
			that.client.SRem(ctx, openLobbiesKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get lobby by id: %w", err)
		}

		var lobby entity.Lobby
		if err = json.Unmarshal([]byte(response), &lobby); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lobby: %w", err)
		}
		lobbies = append(lobbies, &lobby)
	}

	return lobbies, nil
}

func (that *lobbyIndexRepository) ResolveCode(ctx context.Context, code string) (string, error) {
	id, err := that.client.Get(ctx, "lobbycode:"+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperror.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve lobby code: %w", err)
	}

	return id, nil
}
