package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Storage struct {
	mock.Mock
}

func (m *Storage) GuestEntries(ctx context.Context, guestId string) ([]models.CartEntry, error) {
	args := m.Called(ctx, guestId)
	return args.Get(0).([]models.CartEntry), args.Error(1)
}
func (m *Storage) AddGuestEntry(ctx context.Context, guestId string, productId string, quantity int) (models.CartEntry, error) {
	args := m.Called(ctx, guestId, productId, quantity)
	return args.Get(0).(models.CartEntry), args.Error(1)
}
func (m *Storage) UpdateGuestQuantity(ctx context.Context, guestId string, productId string, delta int) (models.CartEntry, error) {
	args := m.Called(ctx, guestId, productId, delta)
	return args.Get(0).(models.CartEntry), args.Error(1)
}
func (m *Storage) RemoveGuestEntry(ctx context.Context, guestId string, productId string) error {
	args := m.Called(ctx, guestId, productId)
	return args.Error(0)
}
func (m *Storage) ClearGuestCart(ctx context.Context, guestId string) error {
	args := m.Called(ctx, guestId)
	return args.Error(0)
}
