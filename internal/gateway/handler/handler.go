// Package handler serves the HTTP query surface.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pollscope/internal/gateway/middleware"
	"pollscope/internal/pipeline/party"
	"pollscope/internal/types/poll"
	"pollscope/internal/votehub"
)

// MaxQueryLength bounds the q parameter.
const MaxQueryLength = 512

const (
	msgMissingQuery = "missing required query parameter: q"
	msgQueryTooLong = "query parameter q is too long"
	msgUpstream     = "upstream polls provider unavailable"
	msgInternal     = "internal server error"
)

type Processor interface {
	Process(ctx context.Context, query string) (map[string]poll.ProcessedDivision, error)
}

type PartySnapshotter interface {
	Snapshot() map[string]party.Party
}

type Handler struct {
	proc    Processor
	parties PartySnapshotter
	log     *zap.Logger
}

func New(proc Processor, parties PartySnapshotter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{proc: proc, parties: parties, log: logger}
}

// Polls handles GET /api/polls?q=<query>.
func (h *Handler) Polls(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(h.log, w, http.StatusBadRequest, msgMissingQuery)
		return
	}
	if len(q) > MaxQueryLength {
		writeError(h.log, w, http.StatusBadRequest, msgQueryTooLong)
		return
	}

	log := h.log.With(zap.String("request_id", middleware.RequestIDFrom(r.Context())))
	out, err := h.proc.Process(r.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, votehub.ErrUpstreamUnavailable):
			log.Warn("polls provider unavailable", zap.Error(err))
			writeError(h.log, w, http.StatusBadGateway, msgUpstream)
		case errors.Is(err, context.Canceled):
			log.Info("request canceled", zap.Error(err))
			writeError(h.log, w, http.StatusServiceUnavailable, msgInternal)
		default:
			log.Error("process query", zap.Error(err))
			writeError(h.log, w, http.StatusInternalServerError, msgInternal)
		}
		return
	}
	if out == nil {
		out = map[string]poll.ProcessedDivision{}
	}
	writeJSON(h.log, w, http.StatusOK, out)
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.log, w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Parties handles GET /api/parties with the resolved party cache.
func (h *Handler) Parties(w http.ResponseWriter, _ *http.Request) {
	snap := map[string]party.Party{}
	if h.parties != nil {
		snap = h.parties.Snapshot()
	}
	writeJSON(h.log, w, http.StatusOK, snap)
}
