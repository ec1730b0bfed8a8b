package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAttachmentFile is a mock implementation of notification.AttachmentFile.
type MockAttachmentFile struct {
	mock.Mock
}

//nolint:revive
func (m *MockAttachmentFile) Read(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
