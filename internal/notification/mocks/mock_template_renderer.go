package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/mailadapter/internal/notification"
)

// MockTemplateRenderer is a mock implementation of notification.TemplateRenderer.
type MockTemplateRenderer struct {
	mock.Mock
}

//nolint:revive
func (m *MockTemplateRenderer) Render(
	ctx context.Context, n *notification.Notification, data notification.Context,
) (notification.RenderedTemplate, error) {
	args := m.Called(ctx, n, data)
	return args.Get(0).(notification.RenderedTemplate), args.Error(1)
}
