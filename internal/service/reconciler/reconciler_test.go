package reconcilerservice_test

import (
	"testing"
	"time"

	"cartsync/internal/models"
	reconcilerservice "cartsync/internal/service/reconciler"
	"cartsync/internal/service/reconciler/mocks"
	"cartsync/pkg/lib/logger/slogdiscard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestService(guest *mocks.GuestStore, merger *mocks.Merger) *reconcilerservice.Service {
	logger := slogdiscard.NewDiscardLogger()
	return reconcilerservice.New(logger, guest, merger, time.Second*5)
}

func guestEntries() []models.CartEntry {
	return []models.CartEntry{
		{ProductId: "A", Quantity: 2},
	}
}

func TestMergeSuccessClearsGuestCart(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	entries := guestEntries()
	merged := models.MergeResult{
		Cart: models.Cart{
			OwnerId: "user_1",
			Entries: []models.CartEntry{{ProductId: "A", Quantity: 2}},
		},
	}

	guest.On("ReadAll", mock.Anything, "guest_1").Return(entries, nil)
	merger.On("MergeEntries", mock.Anything, "user_1", entries).Return(merged, nil)
	guest.On("Clear", mock.Anything, "guest_1").Return(nil)

	out := <-svc.Trigger("evt_1", "user_1", "guest_1")

	assert.Equal(t, reconcilerservice.StateMerged, out.State)
	assert.NoError(t, out.Err)
	assert.Equal(t, merged, out.Result)

	guest.AssertExpectations(t)
	merger.AssertExpectations(t)
}

func TestMergeFailurePreservesGuestCart(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	entries := guestEntries()

	guest.On("ReadAll", mock.Anything, "guest_1").Return(entries, nil)
	merger.On("MergeEntries", mock.Anything, "user_1", entries).
		Return(models.MergeResult{}, assert.AnError)

	out := <-svc.Trigger("evt_1", "user_1", "guest_1")

	assert.Equal(t, reconcilerservice.StateFailed, out.State)
	assert.Error(t, out.Err)

	guest.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	guest.AssertExpectations(t)
	merger.AssertExpectations(t)
}

func TestEmptyGuestCartIssuesNoMerge(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	guest.On("ReadAll", mock.Anything, "guest_1").Return([]models.CartEntry{}, nil)

	out := <-svc.Trigger("evt_1", "user_1", "guest_1")

	assert.Equal(t, reconcilerservice.StateIdle, out.State)

	merger.AssertNotCalled(t, "MergeEntries", mock.Anything, mock.Anything, mock.Anything)
	guest.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	guest.AssertExpectations(t)
}

func TestNoGuestSessionIsIdle(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	out := <-svc.Trigger("evt_1", "user_1", "")

	assert.Equal(t, reconcilerservice.StateIdle, out.State)
	guest.AssertNotCalled(t, "ReadAll", mock.Anything, mock.Anything)
	merger.AssertNotCalled(t, "MergeEntries", mock.Anything, mock.Anything, mock.Anything)
}

func TestSingleMergePerLoginEvent(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	release := make(chan struct{})
	entries := guestEntries()

	guest.On("ReadAll", mock.Anything, "guest_1").Return(entries, nil)
	merger.On("MergeEntries", mock.Anything, "user_1", entries).
		Run(func(_ mock.Arguments) { <-release }).
		Return(models.MergeResult{}, nil)
	guest.On("Clear", mock.Anything, "guest_1").Return(nil)

	// retrigger while the first merge is still in flight
	first := svc.Trigger("evt_1", "user_1", "guest_1")
	second := svc.Trigger("evt_1", "user_1", "guest_1")

	out := <-second
	assert.Equal(t, reconcilerservice.StateIdle, out.State)

	close(release)
	<-first

	merger.AssertNumberOfCalls(t, "MergeEntries", 1)
}

func TestEventGuardReleasedAfterCompletion(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	entries := guestEntries()

	guest.On("ReadAll", mock.Anything, "guest_1").Return(entries, nil)
	merger.On("MergeEntries", mock.Anything, "user_1", entries).
		Return(models.MergeResult{}, nil)
	guest.On("Clear", mock.Anything, "guest_1").Return(nil)

	first := <-svc.Trigger("evt_1", "user_1", "guest_1")
	assert.Equal(t, reconcilerservice.StateMerged, first.State)

	// once the run is done its event id is forgotten: the guard spans
	// only the async window, it is not a permanent ledger
	second := <-svc.Trigger("evt_1", "user_1", "guest_1")
	assert.Equal(t, reconcilerservice.StateMerged, second.State)

	merger.AssertNumberOfCalls(t, "MergeEntries", 2)
}

func TestReadFailurePreservesGuestCart(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	guest.On("ReadAll", mock.Anything, "guest_1").Return([]models.CartEntry{}, assert.AnError)

	out := <-svc.Trigger("evt_1", "user_1", "guest_1")

	assert.Equal(t, reconcilerservice.StateFailed, out.State)
	merger.AssertNotCalled(t, "MergeEntries", mock.Anything, mock.Anything, mock.Anything)
	guest.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestClearFailureStillReportsMerged(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	entries := guestEntries()

	guest.On("ReadAll", mock.Anything, "guest_1").Return(entries, nil)
	merger.On("MergeEntries", mock.Anything, "user_1", entries).
		Return(models.MergeResult{}, nil)
	guest.On("Clear", mock.Anything, "guest_1").Return(assert.AnError)

	out := <-svc.Trigger("evt_1", "user_1", "guest_1")

	assert.Equal(t, reconcilerservice.StateMerged, out.State)
	assert.Error(t, out.Err)
}

func TestTriggerDoesNotBlockCaller(t *testing.T) {
	guest := new(mocks.GuestStore)
	merger := new(mocks.Merger)
	svc := newTestService(guest, merger)

	release := make(chan struct{})
	entries := guestEntries()

	guest.On("ReadAll", mock.Anything, "guest_1").Return(entries, nil)
	merger.On("MergeEntries", mock.Anything, "user_1", entries).
		Run(func(_ mock.Arguments) { <-release }).
		Return(models.MergeResult{}, nil)
	guest.On("Clear", mock.Anything, "guest_1").Return(nil)

	start := time.Now()
	done := svc.Trigger("evt_1", "user_1", "guest_1")
	assert.Less(t, time.Since(start), time.Second, "Trigger must return before the merge completes")

	select {
	case <-done:
		t.Fatal("outcome arrived before the merge was released")
	case <-time.After(time.Millisecond * 50):
	}

	close(release)

	out := <-done
	assert.Equal(t, reconcilerservice.StateMerged, out.State)
}
