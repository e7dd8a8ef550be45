package api

import (
	"encoding/json"
	"net/http"

	"github.com/gfw-api/story-api/internal/ratelimit"
	"github.com/gfw-api/story-api/internal/serializer"
	"github.com/gfw-api/story-api/internal/story"
	"github.com/gfw-api/story-api/pkg/config"
	"github.com/gfw-api/story-api/pkg/errors"
	"github.com/gfw-api/story-api/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config  *config.Config
	Logger  logger.Logger
	Story   story.Client
	Limiter ratelimit.Limiter
}

type Server struct {
	story      story.Client
	limiter    ratelimit.Limiter
	logger     logger.Logger
	production bool
}

func New(opts Opts) *Server {
	return &Server{
		story:      opts.Story,
		limiter:    opts.Limiter,
		logger:     opts.Logger.WithComponent("API"),
		production: opts.Config.App.Env == "production",
	}
}

// Handler wires the story routes. Literal segments win over wildcards, so
// /story/user/... and /story/by-user/... never collide with /story/{id}.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /api/v1/story", s.handleGetStories)
	mux.HandleFunc("GET /api/v1/story/user/{user_id}", s.handleGetStoriesByUser)
	mux.HandleFunc("GET /api/v1/story/{id}", s.handleGetStoryByID)
	mux.HandleFunc("POST /api/v1/story", s.handleCreateStory)
	mux.HandleFunc("PUT /api/v1/story/{id}", s.requireUser(s.handleUpdateStory))
	mux.HandleFunc("DELETE /api/v1/story/{id}", s.requireUser(s.handleDeleteStory))
	mux.HandleFunc("DELETE /api/v1/story/by-user/{user_id}", s.requireUser(s.handleDeleteStoriesByUser))

	return s.withIdentity(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, serializer.SerializeError(status, detail))
}

// writeServiceError logs the full failure and masks server-side details
// from callers when running in production.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := errors.StatusCode(err)
	s.logger.Error("Request failed", "status", status, "error", err)

	detail := err.Error()
	if status >= http.StatusInternalServerError && s.production {
		detail = "Internal server error"
	}
	s.writeError(w, status, detail)
}
