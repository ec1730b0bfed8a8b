package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailadapter/internal/api"
	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/service"
	"github.com/shaharia-lab/mailadapter/internal/service/mocks"
	"github.com/shaharia-lab/mailadapter/internal/storage"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockNotificationService) {
	t.Helper()
	svc := &mocks.MockNotificationService{}
	t.Cleanup(func() { svc.AssertExpectations(t) })

	r := chi.NewRouter()
	api.New(svc, nil).Mount(r)
	return r, svc
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSend(t *testing.T) {
	h, svc := newTestRouter(t)
	svc.On("Send", mock.Anything, "n-1").Return(nil)

	rec := do(h, http.MethodPost, "/notifications/n-1/send", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "n-1", body["id"])
	assert.Equal(t, "sent", body["status"])
}

func TestHandleSend_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &service.NotFoundError{Resource: "notification", ID: "n-1"}, http.StatusNotFound},
		{"already sent", &service.ConflictError{Resource: "notification", ID: "n-1", Reason: "already sent"}, http.StatusConflict},
		{"recipient missing", &notification.RecipientNotFoundError{NotificationID: "n-1"}, http.StatusUnprocessableEntity},
		{"missing id", notification.ErrMissingIdentifier, http.StatusBadRequest},
		{"transport", errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newTestRouter(t)
			svc.On("Send", mock.Anything, "n-1").Return(tt.err)

			rec := do(h, http.MethodPost, "/notifications/n-1/send", "")

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestHandleSendOneOff(t *testing.T) {
	h, svc := newTestRouter(t)
	svc.On("SendOneOff", mock.Anything, mock.MatchedBy(func(n *notification.Notification) bool {
		r, ok := n.OneOff()
		return ok &&
			r.EmailOrPhone == "guest@example.com" &&
			r.FirstName == "Grace" &&
			n.SubjectTemplate == "Hi" &&
			n.ContextParameters["plan"] == "pro"
	})).Return("generated-id", nil)

	body := `{"to":{"email_or_phone":"guest@example.com","first_name":"Grace"},
		"subject_template":"Hi","body_template":"<p>Hello</p>","context":{"plan":"pro"}}`
	rec := do(h, http.MethodPost, "/notifications/one-off", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "generated-id")
}

func TestHandleSendOneOff_InvalidJSON(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(h, http.MethodPost, "/notifications/one-off", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSendOneOff_ValidationError(t *testing.T) {
	h, svc := newTestRouter(t)
	svc.On("SendOneOff", mock.Anything, mock.Anything).
		Return("", &service.ValidationError{Field: "recipient", Message: "email is required"})

	rec := do(h, http.MethodPost, "/notifications/one-off", `{"to":{}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDispatch(t *testing.T) {
	h, svc := newTestRouter(t)
	svc.On("DispatchPending", mock.Anything, 25).Return(service.DispatchResult{Sent: 2, Failed: 1}, nil)

	rec := do(h, http.MethodPost, "/notifications/dispatch?limit=25", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var res service.DispatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, service.DispatchResult{Sent: 2, Failed: 1}, res)
}

func TestHandleDispatch_InvalidLimit(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(h, http.MethodPost, "/notifications/dispatch?limit=abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListNotificationLog(t *testing.T) {
	h, svc := newTestRouter(t)
	entries := []storage.NotificationLogEntry{{ID: 1, NotificationID: "n-1", Status: storage.LogStatusSent}}
	svc.On("ListLog", mock.Anything, 50).Return(entries, nil)

	rec := do(h, http.MethodGet, "/notifications/log?limit=bad", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []storage.NotificationLogEntry
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "n-1", got[0].NotificationID)
}

func TestHandleListNotificationLog_Error(t *testing.T) {
	h, svc := newTestRouter(t)
	svc.On("ListLog", mock.Anything, 10).Return(nil, errors.New("db down"))

	rec := do(h, http.MethodGet, "/notifications/log?limit=10", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleSendOneOff_DuplicateID(t *testing.T) {
	h, svc := newTestRouter(t)
	svc.On("SendOneOff", mock.Anything, mock.Anything).
		Return("", &service.ConflictError{Resource: "notification", ID: "dup", Reason: "already exists"})

	rec := do(h, http.MethodPost, "/notifications/one-off",
		`{"id":"dup","to":{"email_or_phone":"guest@example.com"},"subject_template":"s","body_template":"b"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}
