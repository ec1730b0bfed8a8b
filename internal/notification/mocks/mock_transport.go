package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/mailadapter/internal/notification"
)

// MockTransport is a mock implementation of notification.Transport.
type MockTransport struct {
	mock.Mock
}

//nolint:revive
func (m *MockTransport) SendMail(ctx context.Context, req notification.SendRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
