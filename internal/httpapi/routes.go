package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seonggyujo/mini-games/internal/hub"
	"github.com/seonggyujo/mini-games/internal/leaderboard"
	"github.com/seonggyujo/mini-games/internal/session"
	"github.com/seonggyujo/mini-games/internal/ws"
)

type Deps struct {
	Hub      *hub.Hub
	Sessions *session.Store
	Board    leaderboard.Store
	Log      *zap.Logger

	AllowedOrigins     []string
	RateLimitPerMinute int
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	api := &API{sessions: d.Sessions, board: d.Board, log: d.Log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws/battle", ws.Handler(d.Hub, d.Log.Named("ws"), originHosts(d.AllowedOrigins)))

	r.Route("/api", func(r chi.Router) {
		if d.RateLimitPerMinute > 0 {
			r.Use(newIPLimiter(d.RateLimitPerMinute).middleware)
		}
		r.Get("/ranking", api.Ranking)
		r.Post("/scores", api.CreateScore)

		r.Route("/game/speedclick", func(r chi.Router) {
			r.Post("/start", api.Start)
			r.Post("/click", api.Click)
			r.Post("/miss", api.Miss)
			r.Post("/end", api.End)
			r.Post("/submit", api.Submit)
			r.Post("/abandon", api.Abandon)
		})
	})
	return r
}

// originHosts turns CORS origins ("https://example.com") into the host
// patterns the websocket origin check matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
