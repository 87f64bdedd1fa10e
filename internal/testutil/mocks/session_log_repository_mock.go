package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/flashdeck/internal/models"
)

// MockSessionLogRepository is a mock implementation of repository.SessionLogRepository
type MockSessionLogRepository struct {
	mock.Mock
}

func (m *MockSessionLogRepository) Append(ctx context.Context, session models.ReviewSession) (models.ReviewSession, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return models.ReviewSession{}, args.Error(1)
	}
	return args.Get(0).(models.ReviewSession), args.Error(1)
}

func (m *MockSessionLogRepository) LoadAll(ctx context.Context) ([]models.ReviewSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewSession), args.Error(1)
}

func (m *MockSessionLogRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
