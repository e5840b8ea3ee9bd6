package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the postgres driver to register it with the database/sql package.
	_ "github.com/lib/pq"
)

type PostgresStorage struct {
	Connection *sql.DB
}

func NewPostgres(dsn string) (*PostgresStorage, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &PostgresStorage{Connection: conn}, nil
}

func (that *PostgresStorage) Close() error {
	return that.Connection.Close()
}

// Init - creates the schema when it does not exist yet.
func (that *PostgresStorage) Init(ctx context.Context) error {
	for _, query := range schema {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't apply schema: %w", err)
		}
	}

	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		username       TEXT NOT NULL UNIQUE,
		email          TEXT NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		balance        BIGINT NOT NULL DEFAULT 0,
		wins           INT NOT NULL DEFAULT 0,
		losses         INT NOT NULL DEFAULT 0,
		total_winnings BIGINT NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS lobbies (
		id         TEXT PRIMARY KEY,
		creator_id TEXT NOT NULL REFERENCES users(id),
		bet_amount BIGINT NOT NULL,
		visibility TEXT NOT NULL,
		code       TEXT,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id           TEXT PRIMARY KEY,
		lobby_id     TEXT NOT NULL REFERENCES lobbies(id),
		white_id     TEXT NOT NULL REFERENCES users(id),
		black_id     TEXT NOT NULL REFERENCES users(id),
		board        JSONB NOT NULL,
		turn         TEXT NOT NULL,
		status       TEXT NOT NULL,
		bet_amount   BIGINT NOT NULL,
		platform_fee BIGINT NOT NULL DEFAULT 0,
		winner_id    TEXT,
		loser_id     TEXT,
		end_reason   TEXT,
		move_log     JSONB NOT NULL DEFAULT '[]',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_requests (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		kind       TEXT NOT NULL,
		amount     BIGINT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lobbies_status ON lobbies (status)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches (status)`,
}
