package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seonggyujo/mini-games/internal/hub"
	"github.com/seonggyujo/mini-games/internal/leaderboard"
	"github.com/seonggyujo/mini-games/internal/session"
)

type memBoard struct {
	mu      sync.Mutex
	entries []leaderboard.Entry
}

func (m *memBoard) Save(_ context.Context, e leaderboard.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *memBoard) Top(_ context.Context, game string, limit int) ([]leaderboard.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []leaderboard.Entry{}
	for _, e := range m.entries {
		if e.Game == game && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memBoard) Close() error { return nil }

func newTestAPI(t *testing.T, perMinute int) (http.Handler, *memBoard) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	board := &memBoard{}
	h := SetupRoutes(Deps{
		Hub:                hub.NewHub(ctx),
		Sessions:           session.NewStore(board, session.WithSeedSource(func() uint32 { return 12345 })),
		Board:              board,
		AllowedOrigins:     []string{"http://localhost:3000"},
		RateLimitPerMinute: perMinute,
	})
	return h, board
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func start(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/game/speedclick/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(12345), body["seed"])
	assert.NotZero(t, body["startTime"])
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestSpeedClick_ClickAndReplay(t *testing.T) {
	h, _ := newTestAPI(t, 0)
	id := start(t, h)

	rec := do(t, h, http.MethodPost, "/api/game/speedclick/click",
		`{"sessionId":"`+id+`","ballIndex":0,"clientClickTimeMs":400}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, float64(3), body["points"])
	assert.Equal(t, float64(3), body["score"])
	assert.Equal(t, float64(3), body["lives"])
	assert.Equal(t, false, body["gameOver"])

	rec = do(t, h, http.MethodPost, "/api/game/speedclick/click",
		`{"sessionId":"`+id+`","ballIndex":0,"clientClickTimeMs":400}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, float64(3), body["score"])
	assert.Equal(t, "ball index out of order", body["message"])
}

func TestSpeedClick_LegacyClickTimeField(t *testing.T) {
	h, _ := newTestAPI(t, 0)
	id := start(t, h)

	rec := do(t, h, http.MethodPost, "/api/game/speedclick/click",
		`{"sessionId":"`+id+`","ballIndex":0,"clickTimeMs":400}`)
	assert.Equal(t, true, decodeBody(t, rec)["valid"])
}

func TestSpeedClick_BadClickRequests(t *testing.T) {
	h, _ := newTestAPI(t, 0)
	id := start(t, h)

	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "no time", body: `{"sessionId":"` + id + `","ballIndex":0}`, want: http.StatusBadRequest},
		{name: "no session", body: `{"ballIndex":0,"clientClickTimeMs":1}`, want: http.StatusBadRequest},
		{name: "negative index", body: `{"sessionId":"x","ballIndex":-1,"clientClickTimeMs":1}`, want: http.StatusBadRequest},
		{name: "not json", body: `hello`, want: http.StatusBadRequest},
		{name: "too large", body: `{"sessionId":"` + strings.Repeat("a", 2048) + `"}`, want: http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/game/speedclick/click", tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestSpeedClick_UnknownSessionIsInvalid(t *testing.T) {
	h, _ := newTestAPI(t, 0)
	rec := do(t, h, http.MethodPost, "/api/game/speedclick/miss", `{"sessionId":"nope","ballIndex":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "session not found", body["message"])
}

func TestSpeedClick_MissEndSubmit(t *testing.T) {
	h, board := newTestAPI(t, 0)
	id := start(t, h)

	rec := do(t, h, http.MethodPost, "/api/game/speedclick/submit", `{"sessionId":"`+id+`","nickname":"neo"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])

	rec = do(t, h, http.MethodPost, "/api/game/speedclick/miss", `{"sessionId":"`+id+`","ballIndex":0}`)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, float64(2), body["lives"])

	// Ball 1 spawns 300ms after ball 0 ends at 1300.
	rec = do(t, h, http.MethodPost, "/api/game/speedclick/click",
		`{"sessionId":"`+id+`","ballIndex":1,"clientClickTimeMs":1600}`)
	assert.Equal(t, float64(3), decodeBody(t, rec)["score"])

	rec = do(t, h, http.MethodPost, "/api/game/speedclick/end", `{"sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(3), body["finalScore"])
	assert.Equal(t, true, body["canSubmit"])

	rec = do(t, h, http.MethodPost, "/api/game/speedclick/submit", `{"sessionId":"`+id+`","nickname":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/game/speedclick/submit", `{"sessionId":"`+id+`","nickname":"neo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["scoreId"])
	require.Len(t, board.entries, 1)
	assert.Equal(t, "speed-click", board.entries[0].Game)
	assert.Equal(t, 3, board.entries[0].Score)

	rec = do(t, h, http.MethodPost, "/api/game/speedclick/submit", `{"sessionId":"`+id+`","nickname":"neo"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSpeedClick_Abandon(t *testing.T) {
	h, _ := newTestAPI(t, 0)
	id := start(t, h)

	rec := do(t, h, http.MethodPost, "/api/game/speedclick/abandon", `{"sessionId":"`+id+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/game/speedclick/end", `{"sessionId":"`+id+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScores_LegacyPath(t *testing.T) {
	h, _ := newTestAPI(t, 0)

	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "ok", body: `{"nickname":"neo","game":"snake","score":42}`, want: http.StatusOK},
		{name: "speed-click needs a session", body: `{"nickname":"neo","game":"speed-click","score":42}`, want: http.StatusForbidden},
		{name: "unknown game", body: `{"nickname":"neo","game":"chess","score":42}`, want: http.StatusBadRequest},
		{name: "score out of range", body: `{"nickname":"neo","game":"snake","score":100001}`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/scores", tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	rec := do(t, h, http.MethodGet, "/api/ranking?game=snake&limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var top []leaderboard.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "neo", top[0].Nickname)
	assert.Equal(t, 42, top[0].Score)
}

func TestRanking_Validation(t *testing.T) {
	h, _ := newTestAPI(t, 0)

	rec := do(t, h, http.MethodGet, "/api/ranking?game=tetris", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/ranking?game=speed-click", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRateLimit_OnlyAPI(t *testing.T) {
	h, _ := newTestAPI(t, 2)

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/api/ranking?game=snake", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/ranking?game=snake", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	h, _ := newTestAPI(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/game/speedclick/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://localhost:3000", "https://games.example.com", "*"})
	assert.Equal(t, []string{"localhost:3000", "games.example.com", "*"}, got)
}
