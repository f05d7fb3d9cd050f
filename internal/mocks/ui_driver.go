package mocks

import (
	"context"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/stretchr/testify/mock"
)

type UIDriver struct {
	mock.Mock
}

func (m *UIDriver) Authenticate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *UIDriver) Open(ctx context.Context, r model.Recipient) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}

func (m *UIDriver) Send(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *UIDriver) Close() error {
	args := m.Called()
	return args.Error(0)
}
