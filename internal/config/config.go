package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel     string   `yaml:"log-level" env-default:"info"`
	HTTPPort     string   `yaml:"http-port" env-default:"9090"`
	SocketPort   string   `yaml:"socket-port" env-default:"9091"`
	Redis        Redis    `yaml:"redis"`
	Postgres     Postgres `yaml:"postgres"`
	JWTSecretKey string   `yaml:"jwt-secret-key"`
	Game         Game     `yaml:"game"`
	Wallet       Wallet   `yaml:"wallet"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-default:"postgres"`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"damas"`
	SSLMode  string `yaml:"ssl-mode" env-default:"disable"`
}

// Game - wager and lifecycle knobs. Money values are cents. JoinTimeout
// bounds how long an accepted match may sit in waiting_players before the
// janitor refunds it; AbandonTimeout is the reconnect window for a player
// who dropped out of an ongoing match.
type Game struct {
	PlatformFeePercent int64         `yaml:"platform-fee-percent" env-default:"10"`
	MaxBet             int64         `yaml:"max-bet" env-default:"100000"`
	StartingBalance    int64         `yaml:"starting-balance" env-default:"0"`
	LobbyTimeout       time.Duration `yaml:"lobby-timeout" env-default:"10m"`
	JoinTimeout        time.Duration `yaml:"join-timeout" env-default:"2m"`
	AbandonTimeout     time.Duration `yaml:"abandon-timeout" env-default:"2m"`
	SweepInterval      time.Duration `yaml:"sweep-interval" env-default:"30s"`
}

type Wallet struct {
	MinDeposit    int64 `yaml:"min-deposit" env-default:"500"`
	MaxDeposit    int64 `yaml:"max-deposit" env-default:"10000000"`
	MinWithdrawal int64 `yaml:"min-withdrawal" env-default:"1000"`
	MaxWithdrawal int64 `yaml:"max-withdrawal" env-default:"10000000"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *Postgres) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		that.Host, that.Port, that.User, that.Password, that.Database, that.SSLMode,
	)
}
