package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Simplici0/pricer/internal/config"
	"github.com/Simplici0/pricer/internal/pricing"
	"github.com/Simplici0/pricer/internal/store"
)

const maxBodySize = 1 << 20

type server struct {
	store   *store.Store
	engine  *pricing.Engine
	logger  *zap.Logger
	limiter *rate.Limiter
}

func newServer(st *store.Store, engine *pricing.Engine, logger *zap.Logger, cfg config.Config) *server {
	return &server{
		store:   st,
		engine:  engine,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Post("/expressions/validate", s.handleValidateExpression)
	r.Post("/expressions/evaluate", s.handleEvaluateExpression)
	r.Post("/prices/{id}/quote", s.handleQuotePrice)
	r.Put("/prices/{id}/formulas/{name}", s.handleUpsertFormula)
	r.Get("/quotes", s.handleQuotesList)
	r.Get("/quotes/{id}", s.handleQuoteDetail)
	return r
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
