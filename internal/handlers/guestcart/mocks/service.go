package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

func (m *Service) Add(ctx context.Context, guestId string, productId string, quantity int) (models.CartEntry, error) {
	args := m.Called(ctx, guestId, productId, quantity)
	return args.Get(0).(models.CartEntry), args.Error(1)
}

func (m *Service) UpdateQuantity(ctx context.Context, guestId string, productId string, delta int) (models.CartEntry, error) {
	args := m.Called(ctx, guestId, productId, delta)
	return args.Get(0).(models.CartEntry), args.Error(1)
}

func (m *Service) Remove(ctx context.Context, guestId string, productId string) error {
	args := m.Called(ctx, guestId, productId)
	return args.Error(0)
}

func (m *Service) ReadAll(ctx context.Context, guestId string) ([]models.CartEntry, error) {
	args := m.Called(ctx, guestId)
	return args.Get(0).([]models.CartEntry), args.Error(1)
}

func (m *Service) Clear(ctx context.Context, guestId string) error {
	args := m.Called(ctx, guestId)
	return args.Error(0)
}
