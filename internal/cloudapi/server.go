package cloudapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/famfund/internal/middleware"
)

type Server struct {
	handler     *Handler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func NewServer(b Backend, logger *slog.Logger) *Server {
	return &Server{
		handler:     NewHandler(b, logger.With("component", "cloudapi")),
		rateLimiter: middleware.NewRateLimiter(10, time.Minute),
		logger:      logger,
	}
}

// RateLimiter returns the limiter guarding family create and join, for cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	h := s.handler

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Family codes are guessable by brute force, so create and join are limited per client.
	mux.HandleFunc("POST /api/families", s.rateLimiter.Limit(middleware.RealIP, h.CreateFamily))
	mux.HandleFunc("POST /api/families/{code}/members", s.rateLimiter.Limit(middleware.RealIP, h.JoinFamily))
	mux.HandleFunc("GET /api/families/{code}", h.GetFamily)
	mux.HandleFunc("PUT /api/families/{code}/balances", h.UpdateBalances)

	mux.HandleFunc("GET /api/families/{code}/transactions", h.ListTransactions)
	mux.HandleFunc("POST /api/families/{code}/transactions", h.AddTransaction)
	mux.HandleFunc("PATCH /api/families/{code}/transactions/{id}", h.UpdateTransaction)
	mux.HandleFunc("DELETE /api/families/{code}/transactions/{id}", h.DeleteTransaction)

	mux.HandleFunc("GET /api/families/{code}/goals", h.ListGoals)
	mux.HandleFunc("POST /api/families/{code}/goals", h.AddGoal)
	mux.HandleFunc("PATCH /api/families/{code}/goals/{id}", h.UpdateGoal)
	mux.HandleFunc("DELETE /api/families/{code}/goals/{id}", h.DeleteGoal)

	mux.HandleFunc("GET /ws/families/{code}/{stream}", h.Stream)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}
