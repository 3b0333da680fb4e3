// Package httpapi exposes the rules core over a small JSON HTTP surface.
// Handlers translate between HTTP and the orchestrator inputs; no game
// logic lives here.
package httpapi

import (
	"net/http"

	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/orchestrators/action"
	"github.com/fableforge/rules-api/internal/orchestrators/usage"
)

// Config holds the dependencies for the HTTP handler
type Config struct {
	ActionService action.Service
	UsageService  usage.Service
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.ActionService == nil {
		vb.RequiredField("ActionService")
	}
	if c.UsageService == nil {
		vb.RequiredField("UsageService")
	}

	return vb.Build()
}

// Handler serves the v1 JSON API
type Handler struct {
	actions action.Service
	usage   usage.Service
}

// NewHandler creates a new HTTP handler with the provided dependencies
func NewHandler(cfg *Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Handler{
		actions: cfg.ActionService,
		usage:   cfg.UsageService,
	}, nil
}

// Routes registers all endpoints on a fresh mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/characters", h.createCharacter)
	mux.HandleFunc("GET /v1/characters/{id}", h.getCharacter)
	mux.HandleFunc("POST /v1/sessions", h.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.getSession)
	mux.HandleFunc("POST /v1/sessions/{id}/actions", h.handleAction)
	mux.HandleFunc("GET /v1/usage/global", h.getGlobalUsage)
	mux.HandleFunc("GET /v1/usage/sessions/{id}", h.getSessionUsage)
	mux.HandleFunc("GET /healthz", h.healthz)

	return mux
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
