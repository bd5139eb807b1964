package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerace-backend/internal/hub"
	"github.com/DoyleJ11/typerace-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, results ResultLister, wsOpts ws.Options, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(h))
	r.Get("/ws", ws.Handler(h, wsOpts, log))
	r.Post("/rooms", CreateRoom(h, log))
	r.Get("/rooms/{roomID}", GetRoom(h))
	if results != nil {
		r.Get("/rooms/{roomID}/results", RoomResults(results))
	}
	return r
}
