package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tumbiko/Pluto-shopping-store/config"
	"github.com/tumbiko/Pluto-shopping-store/internal/db"
	"github.com/tumbiko/Pluto-shopping-store/internal/provider"
	"github.com/tumbiko/Pluto-shopping-store/internal/reconcile"
	"go.uber.org/zap"
)

type Handler struct {
	Config     *config.Config
	Database   db.Database
	Logger     *zap.SugaredLogger
	Provider   *provider.Client
	Reconciler *reconcile.Manager
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Errorw("error encoding response", "error", err)
	}
}

func (h *Handler) writeStatusMessage(w http.ResponseWriter, statusCode int, status, message string) {
	h.writeJSON(w, statusCode, statusMessage{Status: status, Message: message})
}
