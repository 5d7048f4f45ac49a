// Package leaderboard stores final scores and serves top-N rankings per game.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
)

const (
	MaxScore     = 100000
	DefaultLimit = 10
	MaxLimit     = 100
)

// Entry is one leaderboard record.
type Entry struct {
	ID        int64     `json:"id"`
	Nickname  string    `json:"nickname"`
	Game      string    `json:"game"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Save(ctx context.Context, e Entry) (int64, error)
	Top(ctx context.Context, game string, limit int) ([]Entry, error)
	Close() error
}

// games maps each known game to whether it accepts client-reported scores.
// Anti-cheat games only take scores through a validated session.
var games = map[string]bool{
	"jump-runner": true,
	"snake":       true,
	"memory-card": true,
	"speed-click": false,
}

// KnownGame reports whether game has a leaderboard.
func KnownGame(game string) bool {
	_, ok := games[game]
	return ok
}

// ValidateDirect checks a client-reported score for a game that still uses
// the unvalidated submission path and returns the normalized entry.
func ValidateDirect(e Entry) (Entry, error) {
	direct, ok := games[e.Game]
	if !ok {
		return Entry{}, engine.ErrUnknownGame
	}
	if !direct {
		return Entry{}, engine.ErrSessionRequired
	}
	if e.Score < 0 || e.Score > MaxScore {
		return Entry{}, engine.ErrInvalidScore
	}
	name, err := engine.NormalizeNickname(e.Nickname)
	if err != nil {
		return Entry{}, err
	}
	e.Nickname = name
	return e, nil
}

// ClampLimit maps a requested ranking size onto 1..MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}

// Open picks a backend by driver name.
func Open(driver, sqlitePath, postgresDSN string, log *zap.Logger) (Store, error) {
	switch driver {
	case "sqlite", "":
		return OpenSQLite(sqlitePath)
	case "postgres":
		return OpenPostgres(postgresDSN, log)
	default:
		return nil, fmt.Errorf("leaderboard: unknown driver %q", driver)
	}
}
