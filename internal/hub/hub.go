package hub

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/internal/room"
)

// maxCodeAttempts bounds collision retries when allocating a room code.
const maxCodeAttempts = 32

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Host  room.Player
	Reply chan CreateReply
}

type CreateReply struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// RemoveRoom drops Code only while it still maps to Room.
type RemoveRoom struct {
	Code string
	Room *room.Room
}

type CountRooms struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (CountRooms) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*room.Room
	rules   room.Rules
	log     *zap.Logger
	newCode func() (string, error)
	newSeed func() uint32
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*Hub)

func WithRules(r room.Rules) Option { return func(h *Hub) { h.rules = r } }

func WithLogger(l *zap.Logger) Option { return func(h *Hub) { h.log = l } }

func WithCodeSource(f func() (string, error)) Option { return func(h *Hub) { h.newCode = f } }

func WithSeedSource(f func() uint32) Option { return func(h *Hub) { h.newSeed = f } }

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*room.Room),
		rules:   room.DefaultRules(),
		log:     zap.NewNop(),
		newCode: GenerateCode,
		newSeed: engine.NewSeed,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

// GenerateCode returns a random 6-character room code.
func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, engine.RoomCodeLen)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// Create opens a room hosted by p under a fresh code.
func (h *Hub) Create(ctx context.Context, p room.Player) (*room.Room, error) {
	reply := make(chan CreateReply, 1)
	if err := h.post(ctx, CreateRoom{Host: p, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Room, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, engine.ErrRoomNotFound
	}
}

// Get looks up a room by a raw, user-typed code.
func (h *Hub) Get(ctx context.Context, code string) (*room.Room, error) {
	normalized, err := engine.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	reply := make(chan *room.Room, 1)
	if err := h.post(ctx, GetRoom{Code: normalized, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case rm := <-reply:
		if rm == nil {
			return nil, engine.ErrRoomNotFound
		}
		return rm, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, engine.ErrRoomNotFound
	}
}

// Len reports how many rooms are open.
func (h *Hub) Len(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.post(ctx, CountRooms{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.ctx.Done():
		return 0, nil
	}
}

// Shutdown closes every room and stops the hub.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) post(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return engine.ErrRoomNotFound
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				rm, err := h.create(msg.Host)
				msg.Reply <- CreateReply{Room: rm, Err: err}

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				if h.rooms[msg.Code] == msg.Room {
					delete(h.rooms, msg.Code)
					h.log.Debug("room removed", zap.String("room", msg.Code), zap.Int("open", len(h.rooms)))
				}

			case CountRooms:
				msg.Reply <- len(h.rooms)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(host room.Player) (*room.Room, error) {
	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, fmt.Errorf("allocate room code: %d collisions", attempt)
		}
		c, err := h.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := h.rooms[c]; !taken {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("room", c))
	}

	rm := room.New(h.ctx, code, host, room.Options{
		Rules:   h.rules,
		Log:     h.log,
		NewSeed: h.newSeed,
		OnClose: h.release,
	})
	h.rooms[code] = rm
	h.log.Info("room created", zap.String("room", code), zap.Int("open", len(h.rooms)))
	return rm, nil
}

// release runs on the room goroutine, so it must not block on a stopped hub.
func (h *Hub) release(code string, rm *room.Room) {
	select {
	case h.inbox <- RemoveRoom{Code: code, Room: rm}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) shutdown() {
	for code, rm := range h.rooms {
		rm.Close()
		delete(h.rooms, code)
	}
	h.cancel()
}
