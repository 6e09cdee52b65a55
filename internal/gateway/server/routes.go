package server

import (
	"net/http"

	"go.uber.org/zap"

	"pollscope/internal/gateway/handler"
	"pollscope/internal/gateway/middleware"
)

func NewMux(h *handler.Handler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/polls", h.Polls)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/parties", h.Parties)

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.AccessLog(logger),
		middleware.Recover(logger),
		middleware.CORS,
	)
}
