package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/mailadapter/internal/notification"
)

// oneOffRequest is the body accepted by POST /notifications/one-off.
type oneOffRequest struct {
	ID              string                       `json:"id"`
	To              notification.OneOffRecipient `json:"to"`
	Title           string                       `json:"title"`
	ContextName     string                       `json:"context_name"`
	Context         map[string]any               `json:"context"`
	ExtraParams     map[string]any               `json:"extra_params"`
	SubjectTemplate string                       `json:"subject_template"`
	BodyTemplate    string                       `json:"body_template"`
}

// handleSend delivers a stored notification.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.notificationSvc.Send(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "sent"})
}

// handleSendOneOff stores and delivers a notification to a literal address.
// Attachments are not accepted over HTTP.
func (s *Server) handleSendOneOff(w http.ResponseWriter, r *http.Request) {
	var req oneOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	n := &notification.Notification{
		ID:                req.ID,
		Recipient:         req.To,
		NotificationType:  notification.TypeEmail,
		ContextName:       req.ContextName,
		ContextParameters: req.Context,
		Title:             req.Title,
		SubjectTemplate:   req.SubjectTemplate,
		BodyTemplate:      req.BodyTemplate,
		ExtraParams:       req.ExtraParams,
	}
	id, err := s.notificationSvc.SendOneOff(r.Context(), n)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "status": "sent"})
}

// handleDispatch sends or queues due notifications.
// Accepts an optional ?limit=N query parameter.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	res, err := s.notificationSvc.DispatchPending(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListNotificationLog returns recent notification delivery log entries.
// Accepts an optional ?limit=N query parameter (default 50).
func (s *Server) handleListNotificationLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.notificationSvc.ListLog(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notification log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
