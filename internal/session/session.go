// Package session keeps solo Speed Click runs and validates every reported
// click or miss against the deterministic ball sequence. The server is the
// only authority for score and lives.
package session

import (
	"sync"
	"time"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/pkg/ballgen"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusSubmitted Status = "submitted"
)

// Game is the leaderboard key solo sessions submit under.
const Game = "speed-click"

// Session is owned by the Store. Fields are only touched with mu held.
type Session struct {
	mu sync.Mutex

	ID            string
	Seed          uint32
	CreatedAt     time.Time
	lastActive    time.Time
	status        Status
	score         uint32
	lives         uint8
	nextIndex     uint32
	lastBallEndMs uint64
	evicted       bool
}

// Snapshot is a copy of a session's state, safe to hand out.
type Snapshot struct {
	ID        string
	Seed      uint32
	CreatedAt time.Time
	Status    Status
	Score     uint32
	Lives     uint8
	NextIndex uint32
}

type ClickResult struct {
	Valid    bool
	Points   uint32
	Score    uint32
	Lives    uint8
	GameOver bool
}

type MissResult struct {
	Valid    bool
	Lives    uint8
	GameOver bool
}

type EndResult struct {
	FinalScore uint32
	CanSubmit  bool
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:        s.ID,
		Seed:      s.Seed,
		CreatedAt: s.CreatedAt,
		Status:    s.status,
		Score:     s.score,
		Lives:     s.lives,
		NextIndex: s.nextIndex,
	}
}

// expectedBall recomputes the ball the client must be reporting on.
func (s *Session) expectedBall() ballgen.Ball {
	return ballgen.Generate(s.Seed, s.nextIndex, s.score, s.lastBallEndMs)
}

// checkReport guards click/miss: live, active, and exactly the next index.
func (s *Session) checkReport(ballIndex uint32) error {
	if s.evicted {
		return engine.ErrSessionNotFound
	}
	if s.status != StatusActive {
		return engine.ErrSessionNotActive
	}
	if ballIndex != s.nextIndex {
		return engine.ErrOutOfOrderBall
	}
	return nil
}

// advance moves past b and ends the run when lives run out.
func (s *Session) advance(b ballgen.Ball) bool {
	s.nextIndex++
	s.lastBallEndMs = b.EndMs()
	if s.lives == 0 {
		s.status = StatusEnded
		return true
	}
	return false
}
