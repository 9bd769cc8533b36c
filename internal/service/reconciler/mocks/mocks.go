package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type GuestStore struct {
	mock.Mock
}

func (m *GuestStore) ReadAll(ctx context.Context, guestId string) ([]models.CartEntry, error) {
	args := m.Called(ctx, guestId)
	return args.Get(0).([]models.CartEntry), args.Error(1)
}
func (m *GuestStore) Clear(ctx context.Context, guestId string) error {
	args := m.Called(ctx, guestId)
	return args.Error(0)
}

type Merger struct {
	mock.Mock
}

func (m *Merger) MergeEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.MergeResult, error) {
	args := m.Called(ctx, userId, entries)
	return args.Get(0).(models.MergeResult), args.Error(1)
}
