package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	AllowedOrigins     []string
	RateLimitPerMinute int

	SessionTTL          time.Duration
	RoomIdleTimeout     time.Duration
	RoomPostgameTimeout time.Duration
	DuelRoundDuration   time.Duration
}

var defaultOrigins = []string{
	"https://mini-games.duckdns.org",
	"http://localhost:3000",
	"http://localhost:8080",
}

func (c Config) Development() bool { return c.Env == "development" }

func (c Config) Addr() string { return ":" + c.Port }

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults for unset keys.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}
	c := Config{
		Port:     p.str("PORT", "4001"),
		Env:      p.str("APP_ENV", "production"),
		LogLevel: p.str("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(p.str("DB_DRIVER", "sqlite")),
		DBPath:      p.str("DB_PATH", "./scores.db"),
		DatabaseURL: p.str("DATABASE_URL", ""),

		AllowedOrigins:     p.list("ALLOWED_ORIGINS", defaultOrigins),
		RateLimitPerMinute: p.integer("RATE_LIMIT_PER_MINUTE", 100),

		SessionTTL:          p.duration("SESSION_TTL", 10*time.Minute),
		RoomIdleTimeout:     p.duration("ROOM_IDLE_TIMEOUT", 5*time.Minute),
		RoomPostgameTimeout: p.duration("ROOM_POSTGAME_TIMEOUT", 2*time.Minute),
		DuelRoundDuration:   p.duration("DUEL_ROUND_DURATION", 10*time.Second),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("config: DB_PATH is empty")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("config: DB_DRIVER %q is not sqlite or postgres", c.DBDriver)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must be >= 0, got %d", c.RateLimitPerMinute)
	}
	for name, d := range map[string]time.Duration{
		"SESSION_TTL":           c.SessionTTL,
		"ROOM_IDLE_TIMEOUT":     c.RoomIdleTimeout,
		"ROOM_POSTGAME_TIMEOUT": c.RoomPostgameTimeout,
		"DUEL_ROUND_DURATION":   c.DuelRoundDuration,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	return nil
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) list(key string, def []string) []string {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p *parser) integer(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return d
}
