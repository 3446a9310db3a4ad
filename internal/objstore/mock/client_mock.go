package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// ClientMock mocks the objstore.Client interface
type ClientMock struct {
	mock.Mock
}

// Upload mocks the Upload method
func (m *ClientMock) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.Error(0)
}

// PublicURL mocks the PublicURL method
func (m *ClientMock) PublicURL(bucket, key string) string {
	args := m.Called(bucket, key)
	return args.String(0)
}
