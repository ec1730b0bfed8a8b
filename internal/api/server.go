// Package api exposes the notification service over a JSON REST API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/service"
)

const errInvalidJSONBody = "invalid JSON body"

// Server holds all dependencies for the REST API handlers.
type Server struct {
	notificationSvc service.NotificationService
	logger          *slog.Logger
}

// New creates a new API Server backed by the provided service.
func New(notificationSvc service.NotificationService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		notificationSvc: notificationSvc,
		logger:          logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/notifications/one-off", s.handleSendOneOff)
	r.Post("/notifications/dispatch", s.handleDispatch)
	r.Get("/notifications/log", s.handleListNotificationLog)
	r.Post("/notifications/{id}/send", s.handleSend)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and adapter errors to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var (
		notFound   *service.NotFoundError
		conflict   *service.ConflictError
		validation *service.ValidationError
		recipient  *notification.RecipientNotFoundError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &validation), errors.Is(err, notification.ErrMissingIdentifier):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &recipient):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("notification request failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
