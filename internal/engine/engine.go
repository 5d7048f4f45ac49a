package engine

import (
	"errors"

	"github.com/seonggyujo/mini-games/pkg/ballgen"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrSessionNotActive = errors.New("session not active")
var ErrOutOfOrderBall = errors.New("ball index out of order")
var ErrClickTooEarly = errors.New("click before ball spawn")
var ErrClickTooLate = errors.New("click after ball expiry")
var ErrNotSubmittable = errors.New("session cannot be submitted")
var ErrRoomNotFound = errors.New("room not found")
var ErrRoomFull = errors.New("room is full")
var ErrInvalidNickname = errors.New("invalid nickname")
var ErrInvalidRoomCode = errors.New("invalid room code")
var ErrConnectionLost = errors.New("connection lost")
var ErrSessionRequired = errors.New("game only accepts session-validated scores")
var ErrUnknownGame = errors.New("unknown game")
var ErrInvalidScore = errors.New("invalid score")

const (
	StartingLives = 3

	// ClickToleranceMs absorbs network jitter around a ball's live window.
	ClickToleranceMs = 200
)

type Result string

const (
	ResultWin  Result = "win"
	ResultLose Result = "lose"
	ResultDraw Result = "draw"
)

// ClickPoints scores a click at clickMs (session timeline) on b.
// Blue balls score nothing; the caller takes a life instead.
func ClickPoints(b ballgen.Ball, clickMs uint64) (uint32, error) {
	if clickMs+ClickToleranceMs < b.SpawnTimeMs {
		return 0, ErrClickTooEarly
	}
	if clickMs > b.EndMs()+ClickToleranceMs {
		return 0, ErrClickTooLate
	}
	if !b.IsRed {
		return 0, nil
	}

	var elapsed uint64
	if clickMs > b.SpawnTimeMs {
		elapsed = clickMs - b.SpawnTimeMs
	}
	dur := uint64(b.DurationMs)
	if elapsed > dur {
		elapsed = dur
	}

	points := b.Level
	switch {
	case elapsed*4 <= dur:
		points += 2
	case elapsed*2 <= dur:
		points++
	}
	return points, nil
}

// LoseLife never goes below zero.
func LoseLife(lives uint8) uint8 {
	if lives == 0 {
		return 0
	}
	return lives - 1
}

// DuelScore applies one resolved duel ball to the clicker's score.
// Scores are unsigned, so a blue penalty floors at zero.
func DuelScore(score uint32, isRed bool) uint32 {
	if isRed {
		return score + 1
	}
	if score == 0 {
		return 0
	}
	return score - 1
}

// Outcome returns each side's own-perspective result and the winning slot
// (-1 on a draw).
func Outcome(scores [2]uint32) ([2]Result, int) {
	switch {
	case scores[0] > scores[1]:
		return [2]Result{ResultWin, ResultLose}, 0
	case scores[1] > scores[0]:
		return [2]Result{ResultLose, ResultWin}, 1
	default:
		return [2]Result{ResultDraw, ResultDraw}, -1
	}
}
