package leaderboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_SaveAndTop(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	seed := []Entry{
		{Nickname: "kim", Game: "speed-click", Score: 12, CreatedAt: base},
		{Nickname: "lee", Game: "speed-click", Score: 40, CreatedAt: base.Add(time.Second)},
		{Nickname: "park", Game: "speed-click", Score: 12, CreatedAt: base.Add(2 * time.Second)},
		{Nickname: "choi", Game: "snake", Score: 99, CreatedAt: base},
	}
	for _, e := range seed {
		id, err := s.Save(ctx, e)
		require.NoError(t, err)
		require.NotZero(t, id)
	}

	top, err := s.Top(ctx, "speed-click", 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "lee", top[0].Nickname)
	// Equal scores rank by who got there first.
	assert.Equal(t, "kim", top[1].Nickname)
	assert.Equal(t, "park", top[2].Nickname)
	assert.True(t, top[1].CreatedAt.Equal(base))

	limited, err := s.Top(ctx, "speed-click", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	none, err := s.Top(ctx, "memory-card", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), Entry{Nickname: "a", Game: "snake", Score: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	top, err := s2.Top(context.Background(), "snake", 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestValidateDirect(t *testing.T) {
	cases := []struct {
		name    string
		in      Entry
		wantErr error
	}{
		{name: "ok", in: Entry{Nickname: " neo ", Game: "snake", Score: 10}},
		{name: "unknown game", in: Entry{Nickname: "neo", Game: "tetris", Score: 10}, wantErr: engine.ErrUnknownGame},
		{name: "anti-cheat game refused", in: Entry{Nickname: "neo", Game: "speed-click", Score: 10}, wantErr: engine.ErrSessionRequired},
		{name: "negative score", in: Entry{Nickname: "neo", Game: "snake", Score: -1}, wantErr: engine.ErrInvalidScore},
		{name: "score too high", in: Entry{Nickname: "neo", Game: "snake", Score: MaxScore + 1}, wantErr: engine.ErrInvalidScore},
		{name: "empty nickname", in: Entry{Nickname: "  ", Game: "snake", Score: 1}, wantErr: engine.ErrInvalidNickname},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateDirect(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "neo", got.Nickname)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, DefaultLimit, ClampLimit(MaxLimit+1))
	assert.Equal(t, 25, ClampLimit(25))
}

type flakyStore struct {
	Store
	failures int
	calls    int
}

func (f *flakyStore) Save(ctx context.Context, e Entry) (int64, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, errors.New("database is locked")
	}
	return 7, nil
}

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	flaky := &flakyStore{failures: 2}
	s := WithRetry(flaky, 3, time.Millisecond, zap.NewNop())

	id, err := s.Save(context.Background(), Entry{Game: "snake"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 3, flaky.calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	flaky := &flakyStore{failures: 100}
	s := WithRetry(flaky, 2, time.Millisecond, zap.NewNop())

	_, err := s.Save(context.Background(), Entry{Game: "snake"})
	require.Error(t, err)
	assert.Equal(t, 3, flaky.calls)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mongo", "", "", zap.NewNop())
	require.Error(t, err)
}
