package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/swaggest/swgui/v5emb"
	"go.uber.org/zap"

	"github.com/DoyleJ11/quizrooms/internal/archive"
	"github.com/DoyleJ11/quizrooms/internal/hub"
	"github.com/DoyleJ11/quizrooms/internal/ws"
)

// GameLister is satisfied by archive stores that can read back finished games.
type GameLister interface {
	Recent(ctx context.Context, limit int) ([]archive.GameRecord, error)
}

type Deps struct {
	Logger         *zap.Logger
	WS             ws.Options
	AllowedOrigins []string
	// PublicURL is where players open the game; QR codes point here.
	PublicURL string
	// Games is optional. Without it /games/recent is 404.
	Games GameLister
}

func SetupRoutes(h *hub.Hub, d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/stats", Stats(h))
	r.Get("/rooms/{code}", RoomInfo(h))
	r.Get("/rooms/{code}/qr", RoomQR(h, d.PublicURL))
	r.Get("/games/recent", RecentGames(d.Games))
	r.Get("/ws", ws.Handler(h, d.WS, d.Logger))

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Quiz Rooms API", "/openapi.json", "/docs"))

	return cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}).Handler(r)
}
