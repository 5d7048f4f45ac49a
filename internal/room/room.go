package room

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/pkg/ballgen"
)

type State string

const (
	StateInput     State = "input"
	StateWaiting   State = "waiting"
	StateCountdown State = "countdown"
	StatePlaying   State = "playing"
	StateFinished  State = "finished"
	StateClosed    State = "closed"
)

// Rules are the fixed timings of a duel.
type Rules struct {
	CountdownFrom   int
	CountdownTick   time.Duration
	RoundDuration   time.Duration
	SpawnDelay      time.Duration
	TimeUpdateEvery time.Duration
	IdleTimeout     time.Duration // waiting for an opponent
	PostGameTimeout time.Duration // finished, waiting for a rematch
}

func DefaultRules() Rules {
	return Rules{
		CountdownFrom:   3,
		CountdownTick:   time.Second,
		RoundDuration:   10 * time.Second,
		SpawnDelay:      ballgen.SpawnDelayMs * time.Millisecond,
		TimeUpdateEvery: time.Second,
		IdleTimeout:     5 * time.Minute,
		PostGameTimeout: 2 * time.Minute,
	}
}

// Player is a seat's back-reference to its connection. The room only ever
// sends on Outbox and never closes it.
type Player struct {
	Nickname string
	Outbox   chan<- []byte
}

type Msg interface{ isRoomMsg() }

type Join struct {
	Player Player
	Reply  chan error
}

func (Join) isRoomMsg() {}

// Leave gives up a seat. Cause is set when the connection dropped.
type Leave struct {
	Seat  int
	Cause error
}

func (Leave) isRoomMsg() {}

// Click claims the outstanding ball. BallID 0 means whatever ball is live.
type Click struct {
	Seat   int
	BallID uint32
}

func (Click) isRoomMsg() {}

type ReadyRematch struct{ Seat int }

func (ReadyRematch) isRoomMsg() {}

// Shutdown stops the room without notifying players.
type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// View is a read-only copy of room state.
type View struct {
	Code      string
	State     State
	Nicknames [2]string
	Scores    [2]uint32
	Ball      *ballgen.Ball
	RoundSeed uint32
	Rematch   [2]bool
}

type Options struct {
	Rules   Rules
	Log     *zap.Logger
	NewSeed func() uint32
	// OnClose runs on the room goroutine once the room reaches Closed.
	OnClose func(code string, r *Room)
}

type Room struct {
	code    string
	inbox   chan Msg
	rules   Rules
	log     *zap.Logger
	newSeed func() uint32
	onClose func(code string, r *Room)
	ctx     context.Context
	cancel  context.CancelFunc

	state         State
	players       [2]*Player
	lagging       [2]bool
	scores        [2]uint32
	roundSeed     uint32
	rematch       [2]bool
	count         int
	ball          *ballgen.Ball
	ballIndex     uint32
	lastBallEndMs uint64
	roundStart    time.Time

	timers   map[timerKind]armedTimer
	timerSeq uint64
}

// New opens a room with creator in seat 0 and starts its goroutine.
func New(parent context.Context, code string, creator Player, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.NewSeed == nil {
		opts.NewSeed = engine.NewSeed
	}

	r := &Room{
		code:    code,
		inbox:   make(chan Msg, 64),
		rules:   opts.Rules,
		log:     opts.Log.With(zap.String("room", code)),
		newSeed: opts.NewSeed,
		onClose: opts.OnClose,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateInput,
		players: [2]*Player{&creator, nil},
		timers:  make(map[timerKind]armedTimer),
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

// Inbox exposes the queue so the gateway and tests can send messages.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Post enqueues m unless the room is already gone.
func (r *Room) Post(m Msg) bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Join seats p as the second player.
func (r *Room) Join(p Player) error {
	reply := make(chan error, 1)
	if !r.Post(Join{Player: p, Reply: reply}) {
		return engine.ErrRoomNotFound
	}
	select {
	case err := <-reply:
		return err
	case <-r.ctx.Done():
		return engine.ErrRoomNotFound
	}
}

// Close asks the room to shut down. It never blocks: with a full inbox the
// room context is cancelled directly.
func (r *Room) Close() {
	select {
	case r.inbox <- Shutdown{}:
	default:
		r.cancel()
	}
}

func (r *Room) loop() {
	r.open()
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.join(msg)
			case Leave:
				r.leave(msg.Seat, msg.Cause)
			case Click:
				r.click(msg)
			case ReadyRematch:
				r.readyRematch(msg.Seat)
			case timerFired:
				r.fire(msg)
			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- r.view()
			case Shutdown:
				r.shutdown()
				return
			}
			r.dropLagging()
			if r.state == StateClosed {
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) view() View {
	v := View{
		Code:      r.code,
		State:     r.state,
		Scores:    r.scores,
		RoundSeed: r.roundSeed,
		Rematch:   r.rematch,
	}
	for i, p := range r.players {
		if p != nil {
			v.Nicknames[i] = p.Nickname
		}
	}
	if r.ball != nil {
		b := *r.ball
		v.Ball = &b
	}
	return v
}

func (r *Room) send(seat int, msg any) {
	if r.players[seat] == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("encode message", zap.Error(err))
		return
	}
	r.push(seat, payload)
}

func (r *Room) broadcast(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("encode message", zap.Error(err))
		return
	}
	for seat := range r.players {
		r.push(seat, payload)
	}
}

func (r *Room) push(seat int, payload []byte) {
	p := r.players[seat]
	if p == nil {
		return
	}
	select {
	case p.Outbox <- payload:
	default:
		// Slow client: treated as gone once the current message is handled.
		r.lagging[seat] = true
	}
}

func (r *Room) dropLagging() {
	for seat := range r.lagging {
		if r.lagging[seat] {
			r.lagging[seat] = false
			r.leave(seat, engine.ErrConnectionLost)
		}
	}
}

func (r *Room) shutdown() {
	r.close()
	r.players = [2]*Player{}
}
