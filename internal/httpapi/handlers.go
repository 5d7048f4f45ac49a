package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/internal/leaderboard"
	"github.com/seonggyujo/mini-games/internal/session"
)

const maxBodySize = 1 << 10

// API serves the solo Speed Click session routes and the leaderboard.
type API struct {
	sessions *session.Store
	board    leaderboard.Store
	log      *zap.Logger
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

type startResponse struct {
	SessionID string `json:"sessionId"`
	Seed      uint32 `json:"seed"`
	StartTime int64  `json:"startTime"`
}

type clickRequest struct {
	SessionID         string  `json:"sessionId"`
	BallIndex         uint32  `json:"ballIndex"`
	ClientClickTimeMs *uint64 `json:"clientClickTimeMs"`
	ClickTimeMs       *uint64 `json:"clickTimeMs"` // older clients
}

type clickResponse struct {
	Valid    bool   `json:"valid"`
	Points   uint32 `json:"points"`
	Score    uint32 `json:"score"`
	Lives    uint8  `json:"lives"`
	GameOver bool   `json:"gameOver"`
	Message  string `json:"message,omitempty"`
}

type missRequest struct {
	SessionID string `json:"sessionId"`
	BallIndex uint32 `json:"ballIndex"`
}

type missResponse struct {
	Valid    bool   `json:"valid"`
	Lives    uint8  `json:"lives"`
	GameOver bool   `json:"gameOver"`
	Message  string `json:"message,omitempty"`
}

type endResponse struct {
	FinalScore uint32 `json:"finalScore"`
	CanSubmit  bool   `json:"canSubmit"`
}

type submitRequest struct {
	SessionID string `json:"sessionId"`
	Nickname  string `json:"nickname"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	ScoreID int64  `json:"scoreId,omitempty"`
	Message string `json:"message,omitempty"`
}

type scoreInput struct {
	Nickname string `json:"nickname"`
	Game     string `json:"game"`
	Score    int    `json:"score"`
}

func (a *API) Start(w http.ResponseWriter, r *http.Request) {
	snap := a.sessions.Start()
	writeJSON(w, http.StatusOK, startResponse{
		SessionID: snap.ID,
		Seed:      snap.Seed,
		StartTime: snap.CreatedAt.UnixMilli(),
	})
}

// Click answers 200 even for rejected reports; valid=false tells the client to resync.
func (a *API) Click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId required")
		return
	}
	clickMs := req.ClientClickTimeMs
	if clickMs == nil {
		clickMs = req.ClickTimeMs
	}
	if clickMs == nil {
		writeError(w, http.StatusBadRequest, "clientClickTimeMs required")
		return
	}

	res, err := a.sessions.Click(req.SessionID, req.BallIndex, *clickMs)
	resp := clickResponse{
		Valid:    res.Valid,
		Points:   res.Points,
		Score:    res.Score,
		Lives:    res.Lives,
		GameOver: res.GameOver,
	}
	if err != nil {
		resp.Message = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) Miss(w http.ResponseWriter, r *http.Request) {
	var req missRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId required")
		return
	}

	res, err := a.sessions.Miss(req.SessionID, req.BallIndex)
	resp := missResponse{Valid: res.Valid, Lives: res.Lives, GameOver: res.GameOver}
	if err != nil {
		resp.Message = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) End(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.sessions.End(req.SessionID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, endResponse{FinalScore: res.FinalScore, CanSubmit: res.CanSubmit})
}

func (a *API) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := a.sessions.Submit(r.Context(), req.SessionID, req.Nickname)
	if err != nil {
		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			a.log.Error("submit score", zap.String("session", req.SessionID), zap.Error(err))
			msg = "failed to save score"
		}
		writeJSON(w, status, submitResponse{Success: false, Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true, ScoreID: id})
}

func (a *API) Abandon(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.sessions.Abandon(req.SessionID); err != nil {
		writeJSON(w, statusFor(err), submitResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true})
}

func (a *API) Ranking(w http.ResponseWriter, r *http.Request) {
	game := strings.TrimSpace(r.URL.Query().Get("game"))
	if !leaderboard.KnownGame(game) {
		writeError(w, http.StatusBadRequest, "invalid game parameter")
		return
	}
	limit := leaderboard.DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = leaderboard.ClampLimit(parsed)
		}
	}

	top, err := a.board.Top(r.Context(), game, limit)
	if err != nil {
		a.log.Error("ranking", zap.String("game", game), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get ranking")
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// CreateScore is the legacy client-reported path for games without sessions.
func (a *API) CreateScore(w http.ResponseWriter, r *http.Request) {
	var in scoreInput
	if !decode(w, r, &in) {
		return
	}
	entry, err := leaderboard.ValidateDirect(leaderboard.Entry{
		Nickname: in.Nickname,
		Game:     strings.TrimSpace(in.Game),
		Score:    in.Score,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	id, err := a.board.Save(r.Context(), entry)
	if err != nil {
		a.log.Error("save score", zap.String("game", entry.Game), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save score")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotSubmittable),
		errors.Is(err, engine.ErrSessionNotActive):
		return http.StatusConflict
	case errors.Is(err, engine.ErrSessionRequired):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidNickname),
		errors.Is(err, engine.ErrUnknownGame),
		errors.Is(err, engine.ErrInvalidScore):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
