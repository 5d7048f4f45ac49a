package room

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/internal/types"
	"github.com/seonggyujo/mini-games/pkg/ballgen"
)

var clickedBy = [2]string{types.ClickedByPlayer1, types.ClickedByPlayer2}

func (r *Room) open() {
	r.state = StateWaiting
	r.roundSeed = r.newSeed()
	r.send(0, types.RoomCreated{Type: types.MsgRoomCreated, RoomCode: r.code})
	r.arm(timerIdle, r.rules.IdleTimeout)
	r.log.Debug("room opened", zap.String("host", r.players[0].Nickname))
}

func (r *Room) join(msg Join) {
	if r.state != StateWaiting || r.players[1] != nil {
		msg.Reply <- engine.ErrRoomFull
		return
	}
	p := msg.Player
	r.players[1] = &p
	msg.Reply <- nil

	r.disarm(timerIdle)
	r.send(0, types.OpponentJoined{Type: types.MsgOpponentJoined, Nickname: p.Nickname})
	r.send(1, types.OpponentJoined{Type: types.MsgOpponentJoined, Nickname: r.players[0].Nickname})
	r.log.Debug("opponent joined", zap.String("guest", p.Nickname))
	r.startCountdown()
}

func (r *Room) startCountdown() {
	r.state = StateCountdown
	r.scores = [2]uint32{}
	r.rematch = [2]bool{}
	r.ball = nil
	r.ballIndex = 0
	r.lastBallEndMs = 0
	r.count = r.rules.CountdownFrom
	if r.count <= 0 {
		r.startRound()
		return
	}
	r.broadcast(types.Countdown{Type: types.MsgCountdown, Count: r.count})
	r.arm(timerCountdown, r.rules.CountdownTick)
}

func (r *Room) countdownTick() {
	if r.state != StateCountdown {
		return
	}
	r.count--
	if r.count > 0 {
		r.broadcast(types.Countdown{Type: types.MsgCountdown, Count: r.count})
		r.arm(timerCountdown, r.rules.CountdownTick)
		return
	}
	r.startRound()
}

func (r *Room) startRound() {
	r.state = StatePlaying
	r.roundStart = time.Now()
	r.broadcast(types.GameStart{Type: types.MsgGameStart, Duration: r.rules.RoundDuration.Seconds()})
	r.arm(timerRoundEnd, r.rules.RoundDuration)
	r.arm(timerClock, r.rules.TimeUpdateEvery)
	r.arm(timerSpawn, r.rules.SpawnDelay)
}

func (r *Room) spawn() {
	if r.state != StatePlaying || r.ball != nil {
		return
	}
	b := ballgen.Generate(r.roundSeed, r.ballIndex, r.scores[0]+r.scores[1], r.lastBallEndMs)
	r.ball = &b
	r.broadcast(types.BallSpawn{
		Type:      types.MsgBallSpawn,
		ID:        b.Index + 1,
		X:         b.X,
		Y:         b.Y,
		IsRed:     b.IsRed,
		Size:      b.Size,
		TimeLimit: float64(b.DurationMs) / 1000,
	})
	r.arm(timerExpire, time.Duration(b.DurationMs)*time.Millisecond)
}

func (r *Room) click(msg Click) {
	if r.state != StatePlaying || r.ball == nil || !r.seated(msg.Seat) {
		return
	}
	if msg.BallID != 0 && msg.BallID != r.ball.Index+1 {
		return
	}
	r.resolve(msg.Seat)
}

// resolve settles the outstanding ball. seat is -1 when it expired unclicked.
func (r *Room) resolve(seat int) {
	if r.state != StatePlaying || r.ball == nil {
		return
	}
	b := *r.ball
	r.ball = nil
	r.disarm(timerExpire)

	by := types.ClickedByNone
	if seat >= 0 {
		r.scores[seat] = engine.DuelScore(r.scores[seat], b.IsRed)
		by = clickedBy[seat]
	}
	r.ballIndex++
	r.lastBallEndMs = uint64(time.Since(r.roundStart).Milliseconds())

	r.broadcast(types.BallResult{
		Type:      types.MsgBallResult,
		BallID:    b.Index + 1,
		ClickedBy: by,
		Scores:    r.scores,
	})
	r.arm(timerSpawn, r.rules.SpawnDelay)
}

func (r *Room) clockTick() {
	if r.state != StatePlaying {
		return
	}
	left := r.rules.RoundDuration - time.Since(r.roundStart)
	if left < 0 {
		left = 0
	}
	r.broadcast(types.TimeUpdate{Type: types.MsgTimeUpdate, TimeLeft: math.Round(left.Seconds())})
	if left > 0 {
		r.arm(timerClock, r.rules.TimeUpdateEvery)
	}
}

func (r *Room) finishRound() {
	if r.state != StatePlaying {
		return
	}
	r.disarm(timerSpawn, timerExpire, timerClock)
	r.ball = nil
	r.state = StateFinished

	results, winner := engine.Outcome(r.scores)
	var winnerName string
	if winner >= 0 && r.players[winner] != nil {
		winnerName = r.players[winner].Nickname
	}
	for seat := range r.players {
		r.send(seat, types.GameEnd{
			Type:           types.MsgGameEnd,
			Result:         string(results[seat]),
			MyScore:        r.scores[seat],
			OpponentScore:  r.scores[1-seat],
			WinnerNickname: winnerName,
		})
	}
	r.log.Debug("round finished",
		zap.Uint32("p1", r.scores[0]),
		zap.Uint32("p2", r.scores[1]),
		zap.Int("winner", winner),
	)
	r.arm(timerIdle, r.rules.PostGameTimeout)
}

func (r *Room) readyRematch(seat int) {
	if r.state != StateFinished || !r.seated(seat) || r.rematch[seat] {
		return
	}
	r.rematch[seat] = true
	if !r.rematch[1-seat] {
		r.send(1-seat, types.Signal{Type: types.MsgOpponentReady})
		return
	}

	r.disarm(timerIdle)
	r.roundSeed = r.newSeed()
	r.broadcast(types.Signal{Type: types.MsgRematchStart})
	r.startCountdown()
}

func (r *Room) leave(seat int, cause error) {
	if r.state == StateClosed || !r.seated(seat) {
		return
	}
	if cause != nil {
		r.log.Info("player dropped", zap.Int("seat", seat), zap.Error(cause))
	}
	r.players[seat] = nil
	// Close first so the survivor never sees opponent_left from a live room.
	r.close()
	r.send(1-seat, types.Signal{Type: types.MsgOpponentLeft})
}

// expire closes a room nobody is using.
func (r *Room) expire() {
	if r.state != StateWaiting && r.state != StateFinished {
		return
	}
	r.log.Info("room expired", zap.String("state", string(r.state)))
	r.close()
	r.broadcast(types.NewError("room expired"))
}

func (r *Room) close() {
	if r.state == StateClosed {
		return
	}
	r.disarmAll()
	r.state = StateClosed
	r.ball = nil
	if r.onClose != nil {
		r.onClose(r.code, r)
	}
	r.cancel()
}

func (r *Room) seated(seat int) bool {
	return seat >= 0 && seat < len(r.players) && r.players[seat] != nil
}
