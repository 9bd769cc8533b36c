package mocks

import (
	"cartsync/internal/models"
	authservice "cartsync/internal/service/auth"
	"context"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

func (m *Service) NewGuestSession(ctx context.Context) (models.GuestSession, string, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.GuestSession), args.String(1), args.Error(2)
}

func (m *Service) SignUp(ctx context.Context, email string, password string, guestId string) (authservice.AuthResult, error) {
	args := m.Called(ctx, email, password, guestId)
	return args.Get(0).(authservice.AuthResult), args.Error(1)
}

func (m *Service) LogIn(ctx context.Context, email string, password string, guestId string) (authservice.AuthResult, error) {
	args := m.Called(ctx, email, password, guestId)
	return args.Get(0).(authservice.AuthResult), args.Error(1)
}
