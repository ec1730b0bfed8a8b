package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/storage"
)

// MockNotificationStore is a mock implementation of storage.NotificationStore.
type MockNotificationStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotificationStore) GetUserEmailFromNotification(ctx context.Context, notificationID string) (string, error) {
	args := m.Called(ctx, notificationID)
	return args.String(0), args.Error(1)
}

//nolint:revive
func (m *MockNotificationStore) CreateUser(ctx context.Context, u storage.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationStore) CreateNotification(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationStore) GetNotification(ctx context.Context, id string) (*notification.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

//nolint:revive
func (m *MockNotificationStore) ListPendingNotifications(
	ctx context.Context, now time.Time, limit int,
) ([]*notification.Notification, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

//nolint:revive
func (m *MockNotificationStore) TransitionStatus(ctx context.Context, id, to string, from ...string) (bool, error) {
	args := m.Called(ctx, id, to, from)
	return args.Bool(0), args.Error(1)
}

//nolint:revive
func (m *MockNotificationStore) MarkAsSent(ctx context.Context, id, adapterKey string, at time.Time) error {
	args := m.Called(ctx, id, adapterKey, at)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationStore) MarkAsFailed(ctx context.Context, id, adapterKey string) error {
	args := m.Called(ctx, id, adapterKey)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationStore) LogNotification(ctx context.Context, entry storage.NotificationLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationStore) ListNotifications(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.NotificationLogEntry), args.Error(1)
}
