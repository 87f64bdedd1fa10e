package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/flashdeck/internal/models"
)

// MockCardStateRepository is a mock implementation of repository.CardStateRepository
type MockCardStateRepository struct {
	mock.Mock
}

func (m *MockCardStateRepository) Load(ctx context.Context, categoryID string, baseline []models.Card) ([]models.Card, error) {
	args := m.Called(ctx, categoryID, baseline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Card), args.Error(1)
}

func (m *MockCardStateRepository) Save(ctx context.Context, categoryID string, cards []models.Card) error {
	args := m.Called(ctx, categoryID, cards)
	return args.Error(0)
}

func (m *MockCardStateRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
