package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) PostJSON(ctx context.Context, url string, headers map[string]string, body []byte) (int, error) {
	args := m.Called(ctx, url, headers, body)
	return args.Int(0), args.Error(1)
}
