package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/mailadapter/internal/eventbus"
	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/service"
	"github.com/shaharia-lab/mailadapter/internal/storage"
)

// MockNotificationService is a mock implementation of service.NotificationService.
type MockNotificationService struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotificationService) Send(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationService) SendOneOff(ctx context.Context, n *notification.Notification) (string, error) {
	args := m.Called(ctx, n)
	return args.String(0), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) DispatchPending(ctx context.Context, limit int) (service.DispatchResult, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).(service.DispatchResult), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) HandleEvent(e eventbus.Event) {
	m.Called(e)
}

//nolint:revive
func (m *MockNotificationService) ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.NotificationLogEntry), args.Error(1)
}
