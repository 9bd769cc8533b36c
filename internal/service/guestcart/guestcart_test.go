package guestcartservice_test

import (
	"context"
	"testing"

	databaseerrors "cartsync/internal/database"
	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	guestcartservice "cartsync/internal/service/guestcart"
	"cartsync/internal/service/guestcart/mocks"
	"cartsync/pkg/lib/logger/slogdiscard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestService(storage *mocks.Storage) *guestcartservice.Service {
	logger := slogdiscard.NewDiscardLogger()
	return guestcartservice.New(logger, storage)
}

func TestAdd_PublishesChange(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	entry := models.CartEntry{ProductId: "A", Quantity: 2}
	mockStorage.On("AddGuestEntry", mock.Anything, "guest_1", "A", 2).Return(entry, nil)
	mockStorage.On("GuestEntries", mock.Anything, "guest_1").
		Return([]models.CartEntry{entry}, nil)

	var changes []guestcartservice.Change
	svc.Subscribe(func(c guestcartservice.Change) { changes = append(changes, c) })

	got, err := svc.Add(context.Background(), "guest_1", "A", 2)

	assert.NoError(t, err)
	assert.Equal(t, entry, got)
	assert.Equal(t, []guestcartservice.Change{{GuestId: "guest_1", Count: 1}}, changes)
	mockStorage.AssertExpectations(t)
}

func TestAdd_ProductNotFound(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	mockStorage.On("AddGuestEntry", mock.Anything, "guest_1", "missing", 1).
		Return(models.CartEntry{}, databaseerrors.ErrNotFound)

	var notified bool
	svc.Subscribe(func(guestcartservice.Change) { notified = true })

	_, err := svc.Add(context.Background(), "guest_1", "missing", 1)

	assert.ErrorIs(t, err, serviceerrors.ErrNotFound)
	assert.False(t, notified, "failed mutation must not notify")
	mockStorage.AssertExpectations(t)
}

func TestUpdateQuantity_AbsentEntryIsNoop(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	mockStorage.On("UpdateGuestQuantity", mock.Anything, "guest_1", "A", 1).
		Return(models.CartEntry{}, databaseerrors.ErrNotFound)

	var notified bool
	svc.Subscribe(func(guestcartservice.Change) { notified = true })

	entry, err := svc.UpdateQuantity(context.Background(), "guest_1", "A", 1)

	assert.NoError(t, err)
	assert.Equal(t, models.CartEntry{}, entry)
	assert.False(t, notified)
	mockStorage.AssertNotCalled(t, "GuestEntries", mock.Anything, mock.Anything)
}

func TestUpdateQuantity_Success(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	entry := models.CartEntry{ProductId: "A", Quantity: 3}
	mockStorage.On("UpdateGuestQuantity", mock.Anything, "guest_1", "A", -2).Return(entry, nil)
	mockStorage.On("GuestEntries", mock.Anything, "guest_1").
		Return([]models.CartEntry{entry}, nil)

	got, err := svc.UpdateQuantity(context.Background(), "guest_1", "A", -2)

	assert.NoError(t, err)
	assert.Equal(t, entry, got)
	mockStorage.AssertExpectations(t)
}

func TestRemove_AbsentEntryIsNoop(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	mockStorage.On("RemoveGuestEntry", mock.Anything, "guest_1", "A").
		Return(databaseerrors.ErrNotFound)

	var notified bool
	svc.Subscribe(func(guestcartservice.Change) { notified = true })

	err := svc.Remove(context.Background(), "guest_1", "A")

	assert.NoError(t, err)
	assert.False(t, notified)
}

func TestRemove_PublishesChange(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	mockStorage.On("RemoveGuestEntry", mock.Anything, "guest_1", "A").Return(nil)
	mockStorage.On("GuestEntries", mock.Anything, "guest_1").
		Return([]models.CartEntry{}, nil)

	var changes []guestcartservice.Change
	svc.Subscribe(func(c guestcartservice.Change) { changes = append(changes, c) })

	assert.NoError(t, svc.Remove(context.Background(), "guest_1", "A"))
	assert.Equal(t, []guestcartservice.Change{{GuestId: "guest_1", Count: 0}}, changes)
}

func TestReadAll_DoesNotMutateOrNotify(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	entries := []models.CartEntry{
		{ProductId: "A", Quantity: 2},
		{ProductId: "B", Quantity: 1},
	}
	mockStorage.On("GuestEntries", mock.Anything, "guest_1").Return(entries, nil)

	var notified bool
	svc.Subscribe(func(guestcartservice.Change) { notified = true })

	got, err := svc.ReadAll(context.Background(), "guest_1")

	assert.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.False(t, notified)
	mockStorage.AssertExpectations(t)
}

func TestClear_PublishesZeroCount(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	mockStorage.On("ClearGuestCart", mock.Anything, "guest_1").Return(nil)

	var changes []guestcartservice.Change
	svc.Subscribe(func(c guestcartservice.Change) { changes = append(changes, c) })

	assert.NoError(t, svc.Clear(context.Background(), "guest_1"))
	assert.Equal(t, []guestcartservice.Change{{GuestId: "guest_1", Count: 0}}, changes)
	mockStorage.AssertNotCalled(t, "GuestEntries", mock.Anything, mock.Anything)
}

func TestClear_StorageErrorDoesNotNotify(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	mockStorage.On("ClearGuestCart", mock.Anything, "guest_1").Return(assert.AnError)

	var notified bool
	svc.Subscribe(func(guestcartservice.Change) { notified = true })

	assert.Error(t, svc.Clear(context.Background(), "guest_1"))
	assert.False(t, notified)
}

func TestContextCanceled(t *testing.T) {
	mockStorage := new(mocks.Storage)
	svc := newTestService(mockStorage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Add(ctx, "guest_1", "A", 1)
	assert.ErrorIs(t, err, serviceerrors.ErrContextCanceled)

	_, err = svc.ReadAll(ctx, "guest_1")
	assert.ErrorIs(t, err, serviceerrors.ErrContextCanceled)

	err = svc.Clear(ctx, "guest_1")
	assert.ErrorIs(t, err, serviceerrors.ErrContextCanceled)

	mockStorage.AssertExpectations(t)
}
