package mocks

import (
	"cartsync/internal/models"
	reconcilerservice "cartsync/internal/service/reconciler"
	"context"

	"github.com/stretchr/testify/mock"
)

type UserStorage struct {
	mock.Mock
}

func (m *UserStorage) CreateUser(ctx context.Context, email string, passHash []byte) (models.User, error) {
	args := m.Called(ctx, email, passHash)
	return args.Get(0).(models.User), args.Error(1)
}
func (m *UserStorage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

type SessionStorage struct {
	mock.Mock
}

func (m *SessionStorage) CreateGuestSession(ctx context.Context, session models.GuestSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

type Reconciler struct {
	mock.Mock
}

func (m *Reconciler) Trigger(eventId string, userId string, guestId string) <-chan reconcilerservice.Outcome {
	args := m.Called(eventId, userId, guestId)
	return args.Get(0).(<-chan reconcilerservice.Outcome)
}

// ClosedOutcome is a ready channel for Trigger stubs.
func ClosedOutcome(out reconcilerservice.Outcome) <-chan reconcilerservice.Outcome {
	ch := make(chan reconcilerservice.Outcome, 1)
	ch <- out
	close(ch)
	return ch
}
