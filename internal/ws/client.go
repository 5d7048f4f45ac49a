package ws

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/internal/hub"
	"github.com/seonggyujo/mini-games/internal/room"
	"github.com/seonggyujo/mini-games/internal/types"
)

// client is one duel connection. Only the reader goroutine touches cur and seat.
type client struct {
	hub  *hub.Hub
	out  chan []byte
	log  *zap.Logger
	cur  *room.Room
	seat int
}

func (c *client) handle(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.MsgCreate:
		c.create(ctx, cm.Nickname)
	case types.MsgJoin:
		c.join(ctx, cm.RoomCode, cm.Nickname)
	case types.MsgLeave:
		c.leave(nil)
	case types.MsgClick:
		c.post(room.Click{Seat: c.seat, BallID: cm.BallID})
	case types.MsgReadyRematch:
		c.post(room.ReadyRematch{Seat: c.seat})
	default:
		c.fail("unknown message type")
	}
}

func (c *client) create(ctx context.Context, nickname string) {
	if c.inRoom() {
		c.fail("already in a room")
		return
	}
	name, err := engine.NormalizeNickname(nickname)
	if err != nil {
		c.fail(err.Error())
		return
	}
	rm, err := c.hub.Create(ctx, room.Player{Nickname: name, Outbox: c.out})
	if err != nil {
		c.log.Warn("create room", zap.Error(err))
		c.fail("could not create room")
		return
	}
	c.cur, c.seat = rm, 0
}

func (c *client) join(ctx context.Context, code, nickname string) {
	if c.inRoom() {
		c.fail("already in a room")
		return
	}
	name, err := engine.NormalizeNickname(nickname)
	if err != nil {
		c.fail(err.Error())
		return
	}
	rm, err := c.hub.Get(ctx, code)
	if err != nil {
		c.fail(errMessage(err))
		return
	}
	if err := rm.Join(room.Player{Nickname: name, Outbox: c.out}); err != nil {
		c.fail(errMessage(err))
		return
	}
	c.cur, c.seat = rm, 1
}

func (c *client) leave(cause error) {
	if c.cur == nil {
		return
	}
	c.cur.Post(room.Leave{Seat: c.seat, Cause: cause})
	c.cur = nil
}

func (c *client) post(m room.Msg) {
	if c.cur == nil {
		return
	}
	if !c.cur.Post(m) {
		c.cur = nil
	}
}

func (c *client) inRoom() bool {
	if c.cur == nil {
		return false
	}
	select {
	case <-c.cur.Done():
		c.cur = nil
		return false
	default:
		return true
	}
}

func (c *client) fail(msg string) {
	payload, err := json.Marshal(types.NewError(msg))
	if err != nil {
		return
	}
	select {
	case c.out <- payload:
	default:
	}
}

func errMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrRoomNotFound),
		errors.Is(err, engine.ErrRoomFull),
		errors.Is(err, engine.ErrInvalidRoomCode):
		return err.Error()
	default:
		return "request failed"
	}
}
