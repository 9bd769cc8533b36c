package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

func (m *Service) View(ctx context.Context, userId string) (models.Cart, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(models.Cart), args.Error(1)
}

func (m *Service) SetQuantity(ctx context.Context, userId string, productId string, quantity int) (models.CartEntry, error) {
	args := m.Called(ctx, userId, productId, quantity)
	return args.Get(0).(models.CartEntry), args.Error(1)
}

func (m *Service) RemoveEntry(ctx context.Context, userId string, productId string) error {
	args := m.Called(ctx, userId, productId)
	return args.Error(0)
}

func (m *Service) Clear(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *Service) MergeEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.MergeResult, error) {
	args := m.Called(ctx, userId, entries)
	return args.Get(0).(models.MergeResult), args.Error(1)
}
