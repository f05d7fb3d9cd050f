package mocks

import (
	"context"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/stretchr/testify/mock"
)

type Observer struct {
	mock.Mock
}

func (m *Observer) OnStart(ctx context.Context, report *model.SendReport) {
	m.Called(ctx, report)
}

func (m *Observer) OnOutcome(ctx context.Context, report *model.SendReport, e model.Entry) {
	m.Called(ctx, report, e)
}

func (m *Observer) OnFinish(ctx context.Context, report *model.SendReport) {
	m.Called(ctx, report)
}
