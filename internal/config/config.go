package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`
	// AppID defaults to the bot user id once the session is open.
	AppID  string `env:"DISCORD_APP_ID"`
	Prefix string `env:"COMMAND_PREFIX" envDefault:"!"`

	PublicApp    bool     `env:"PUBLIC_APP" envDefault:"false"`
	Guilds       []string `env:"DISCORD_GUILDS" envSeparator:","`
	SyncCommands bool     `env:"SYNC_COMMANDS" envDefault:"true"`

	CooldownSweepInterval time.Duration `env:"COOLDOWN_SWEEP_INTERVAL" envDefault:"1m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`
}

var (
	ErrEmptyPrefix   = errors.New("COMMAND_PREFIX must not be empty")
	ErrLogFormat     = errors.New("LOG_FORMAT must be console or json")
	ErrSweepInterval = errors.New("COOLDOWN_SWEEP_INTERVAL must be positive")
)

// Load reads dotenv files (".env" when none are given), then the
// environment. Missing dotenv files are ignored and real environment
// variables win over file values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Guilds = cleanList(cfg.Guilds)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that parse but cannot work.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return ErrEmptyPrefix
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w, got %q", ErrLogFormat, c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.CooldownSweepInterval <= 0 {
		return ErrSweepInterval
	}
	return nil
}

// cleanList trims entries and drops empty ones, so "g1, g2," yields [g1 g2].
func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
