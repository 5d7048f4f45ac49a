package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/engine"
	"github.com/seonggyujo/mini-games/internal/hub"
	"github.com/seonggyujo/mini-games/internal/types"
)

const (
	outboxSize   = 64
	readLimit    = 4 << 10
	writeTimeout = 3 * time.Second
	pingEvery    = 20 * time.Second
	pingTimeout  = 10 * time.Second
)

// Handler upgrades to a duel connection. originPatterns is passed through to
// the websocket origin check; nil only admits same-origin requests.
func Handler(h *hub.Hub, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := &client{
			hub: h,
			out: make(chan []byte, outboxSize),
			log: log.With(zap.String("request_id", middleware.GetReqID(r.Context()))),
		}
		c.log.Debug("duel connection opened", zap.String("remote", r.RemoteAddr))

		// Writer goroutine
		go func() {
			defer cancel()
			for {
				select {
				case payload := <-c.out:
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Write(wctx, websocket.MessageText, payload)
					wcancel()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		// Keepalive
		go func() {
			defer cancel()
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					pctx, pcancel := context.WithTimeout(ctx, pingTimeout)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		defer c.leave(engine.ErrConnectionLost)

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					c.log.Debug("duel connection closed")
				default:
					c.log.Debug("duel connection lost", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				c.fail("bad json")
				continue
			}
			c.handle(ctx, cm)
		}
	}
}
