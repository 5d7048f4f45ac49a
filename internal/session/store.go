package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/internal/leaderboard"
)

const DefaultTTL = 10 * time.Minute

// Recorder receives the final score of a submitted run.
type Recorder interface {
	Save(ctx context.Context, e leaderboard.Entry) (int64, error)
}

// Store maps opaque ids to sessions. The map lock is held only for lookup,
// insert and delete; each operation then locks the one session it touches,
// so unrelated sessions never contend.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	board   Recorder
	ttl     time.Duration
	log     *zap.Logger
	now     func() time.Time
	newSeed func() uint32
}

type Option func(*Store)

func WithTTL(d time.Duration) Option { return func(st *Store) { st.ttl = d } }

func WithLogger(l *zap.Logger) Option { return func(st *Store) { st.log = l } }

func WithClock(now func() time.Time) Option { return func(st *Store) { st.now = now } }

// WithSeedSource replaces the CSPRNG seed source (fixtures, replays).
func WithSeedSource(f func() uint32) Option { return func(st *Store) { st.newSeed = f } }

func NewStore(board Recorder, opts ...Option) *Store {
	st := &Store{
		sessions: make(map[string]*Session),
		board:    board,
		ttl:      DefaultTTL,
		log:      zap.NewNop(),
		now:      time.Now,
		newSeed:  engine.NewSeed,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Start allocates a fresh active session.
func (st *Store) Start() Snapshot {
	now := st.now()
	s := &Session{
		ID:         uuid.NewString(),
		Seed:       st.newSeed(),
		CreatedAt:  now,
		lastActive: now,
		status:     StatusActive,
		lives:      engine.StartingLives,
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.log.Debug("session started", zap.String("session", s.ID), zap.Uint32("seed", s.Seed))
	return s.snapshot()
}

func (st *Store) lookup(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, engine.ErrSessionNotFound
	}
	return s, nil
}

func (st *Store) Get(id string) (Snapshot, error) {
	s, err := st.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted {
		return Snapshot{}, engine.ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// Click validates a click on ballIndex reported at clickMs. A rejected click
// leaves the session untouched and reports the current score and lives.
func (st *Store) Click(id string, ballIndex uint32, clickMs uint64) (ClickResult, error) {
	s, err := st.lookup(id)
	if err != nil {
		return ClickResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := ClickResult{Score: s.score, Lives: s.lives}
	if err := s.checkReport(ballIndex); err != nil {
		st.reject(id, "click", ballIndex, err)
		return res, err
	}

	ball := s.expectedBall()
	points, err := engine.ClickPoints(ball, clickMs)
	if err != nil {
		st.reject(id, "click", ballIndex, err)
		return res, err
	}
	if ball.IsRed {
		s.score += points
	} else {
		s.lives = engine.LoseLife(s.lives)
	}
	gameOver := s.advance(ball)
	s.lastActive = st.now()

	return ClickResult{
		Valid:    true,
		Points:   points,
		Score:    s.score,
		Lives:    s.lives,
		GameOver: gameOver,
	}, nil
}

// Miss records that ballIndex timed out. Only a missed red ball costs a life.
func (st *Store) Miss(id string, ballIndex uint32) (MissResult, error) {
	s, err := st.lookup(id)
	if err != nil {
		return MissResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := MissResult{Lives: s.lives}
	if err := s.checkReport(ballIndex); err != nil {
		st.reject(id, "miss", ballIndex, err)
		return res, err
	}

	ball := s.expectedBall()
	if ball.IsRed {
		s.lives = engine.LoseLife(s.lives)
	}
	gameOver := s.advance(ball)
	s.lastActive = st.now()

	return MissResult{Valid: true, Lives: s.lives, GameOver: gameOver}, nil
}

// End stops an active run early. Ending an already ended run is a no-op.
func (st *Store) End(id string) (EndResult, error) {
	s, err := st.lookup(id)
	if err != nil {
		return EndResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted {
		return EndResult{}, engine.ErrSessionNotFound
	}
	if s.status == StatusActive {
		s.status = StatusEnded
	}
	s.lastActive = st.now()
	return EndResult{
		FinalScore: s.score,
		CanSubmit:  s.status == StatusEnded && s.score > 0,
	}, nil
}

// Submit writes the final score of an ended run to the leaderboard and
// evicts the session. A failed write puts the run back to ended.
func (st *Store) Submit(ctx context.Context, id, nickname string) (int64, error) {
	name, err := engine.NormalizeNickname(nickname)
	if err != nil {
		return 0, err
	}
	s, err := st.lookup(id)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	switch {
	case s.evicted:
		s.mu.Unlock()
		return 0, engine.ErrSessionNotFound
	case s.status != StatusEnded:
		s.mu.Unlock()
		return 0, engine.ErrNotSubmittable
	}
	s.status = StatusSubmitted
	score := s.score
	s.mu.Unlock()

	scoreID, err := st.board.Save(ctx, leaderboard.Entry{Nickname: name, Game: Game, Score: int(score)})
	if err != nil {
		s.mu.Lock()
		if !s.evicted {
			s.status = StatusEnded
		}
		s.mu.Unlock()
		return 0, fmt.Errorf("save score: %w", err)
	}

	st.evict(id, s)
	st.log.Info("session submitted",
		zap.String("session", id),
		zap.String("nickname", name),
		zap.Uint32("score", score),
		zap.Int64("score_id", scoreID))
	return scoreID, nil
}

// Abandon drops a session immediately.
func (st *Store) Abandon(id string) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	st.evict(id, s)
	return nil
}

func (st *Store) evict(id string, s *Session) {
	st.mu.Lock()
	if cur, ok := st.sessions[id]; ok && cur == s {
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	s.mu.Lock()
	s.evicted = true
	s.mu.Unlock()
}

// Sweep evicts sessions idle for longer than the TTL and returns how many.
// The map lock is never held while a session lock is taken.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.RLock()
	candidates := make(map[string]*Session, len(st.sessions))
	for id, s := range st.sessions {
		candidates[id] = s
	}
	st.mu.RUnlock()

	n := 0
	for id, s := range candidates {
		s.mu.Lock()
		idle := !s.evicted && s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if !idle {
			continue
		}
		st.evict(id, s)
		n++
	}
	if n > 0 {
		st.log.Debug("idle sessions evicted", zap.Int("count", n))
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (st *Store) Run(ctx context.Context) error {
	every := st.ttl / 4
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) reject(id, op string, ballIndex uint32, err error) {
	st.log.Debug("report rejected",
		zap.String("session", id),
		zap.String("op", op),
		zap.Uint32("ball", ballIndex),
		zap.Error(err))
}
