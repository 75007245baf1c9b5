package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/forecast-submission-gateway/internal/registry"
)

// Registrar manages team and model registration.
type Registrar interface {
	Register(ctx context.Context, team, model string) error
	Models(ctx context.Context, team string) ([]string, error)
}

type registrationHandler struct {
	registrar Registrar
	logger    *slog.Logger
}

func (h *registrationHandler) register(w http.ResponseWriter, r *http.Request) {
	team, model := r.PathValue("team"), r.PathValue("model")
	err := h.registrar.Register(r.Context(), team, model)
	switch {
	case err == nil:
		h.logger.Info("model registered", "team", team, "model", model)
		writeJSON(w, http.StatusCreated, map[string]string{"teamname": team, "modelname": model})
	case errors.Is(err, registry.ErrModelLimit):
		writeError(w, http.StatusConflict, "model_limit", err)
	case errors.Is(err, registry.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		h.logger.Error("register model failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}

func (h *registrationHandler) list(w http.ResponseWriter, r *http.Request) {
	team := r.PathValue("team")
	models, err := h.registrar.Models(r.Context(), team)
	if err != nil {
		h.logger.Error("list models failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", errors.New("internal error"))
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teamname": team, "models": models})
}
