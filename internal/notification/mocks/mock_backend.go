package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of notification.Backend.
type MockBackend struct {
	mock.Mock
}

//nolint:revive
func (m *MockBackend) GetUserEmailFromNotification(ctx context.Context, notificationID string) (string, error) {
	args := m.Called(ctx, notificationID)
	return args.String(0), args.Error(1)
}
