package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Storage struct {
	mock.Mock
}

func (m *Storage) CartEntries(ctx context.Context, userId string) ([]models.CartEntry, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).([]models.CartEntry), args.Error(1)
}
func (m *Storage) MergeCartEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.Cart, int, error) {
	args := m.Called(ctx, userId, entries)
	return args.Get(0).(models.Cart), args.Int(1), args.Error(2)
}
func (m *Storage) SetCartEntry(ctx context.Context, userId string, productId string, quantity int) (models.CartEntry, error) {
	args := m.Called(ctx, userId, productId, quantity)
	return args.Get(0).(models.CartEntry), args.Error(1)
}
func (m *Storage) RemoveCartEntry(ctx context.Context, userId string, productId string) error {
	args := m.Called(ctx, userId, productId)
	return args.Error(0)
}
func (m *Storage) ClearCart(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}
