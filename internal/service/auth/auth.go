package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	databaseerrors "cartsync/internal/database"
	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	reconcilerservice "cartsync/internal/service/reconciler"
	jwtlib "cartsync/pkg/lib/jwt"
	"cartsync/pkg/lib/logger/sl"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MergeStatusNoGuestCart = "no-guest-cart"
	MergeStatusMerging     = "merging"
)

type UserStorage interface {
	CreateUser(ctx context.Context, email string, passHash []byte) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

type SessionStorage interface {
	CreateGuestSession(ctx context.Context, session models.GuestSession) error
}

type Reconciler interface {
	Trigger(eventId string, userId string, guestId string) <-chan reconcilerservice.Outcome
}

type AuthResult struct {
	UserId      string `json:"user_id"`
	Token       string `json:"token"`
	MergeStatus string `json:"merge_status"`
}

type Service struct {
	log        *slog.Logger
	users      UserStorage
	sessions   SessionStorage
	reconciler Reconciler
	tokens     *jwtlib.Manager
	guestTTL   time.Duration
}

func New(
	log *slog.Logger,
	users UserStorage,
	sessions SessionStorage,
	reconciler Reconciler,
	tokens *jwtlib.Manager,
	guestTTL time.Duration,
) *Service {
	return &Service{
		log:        log,
		users:      users,
		sessions:   sessions,
		reconciler: reconciler,
		tokens:     tokens,
		guestTTL:   guestTTL,
	}
}

// NewGuestSession creates an anonymous session and mints its token, so
// an unauthenticated visitor can hold a cart.
func (s *Service) NewGuestSession(ctx context.Context) (models.GuestSession, string, error) {
	const op = "service.auth.NewGuestSession"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return models.GuestSession{}, "", fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return models.GuestSession{}, "", fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return models.GuestSession{}, "", fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	session := models.GuestSession{
		Id:        "guest_" + uuid.NewString(),
		ExpiresAt: time.Now().Add(s.guestTTL),
	}

	if err := s.sessions.CreateGuestSession(ctx, session); err != nil {
		log.Error("Failed to create guest session", sl.Err(err))
		return models.GuestSession{}, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.NewGuestToken(session.Id)
	if err != nil {
		log.Error("Failed to mint guest token", sl.Err(err))
		return models.GuestSession{}, "", fmt.Errorf("%s: %w", op, err)
	}

	return session, token, nil
}

func (s *Service) SignUp(ctx context.Context, email string, password string, guestId string) (AuthResult, error) {
	const op = "service.auth.SignUp"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return AuthResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return AuthResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return AuthResult{}, fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, databaseerrors.ErrAlreadyExists) {
			log.Warn("user already exists", sl.Err(serviceerrors.ErrAlreadyExists))
			return AuthResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrAlreadyExists)
		}

		log.Error("Failed to create user", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.finishLogin(log, user, guestId)
}

func (s *Service) LogIn(ctx context.Context, email string, password string, guestId string) (AuthResult, error) {
	const op = "service.auth.LogIn"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return AuthResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return AuthResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return AuthResult{}, fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, databaseerrors.ErrNotFound) {
			log.Warn("user doesn't exist", sl.Err(serviceerrors.ErrInvalidCredentials))
			return AuthResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrInvalidCredentials)
		}

		log.Error("Failed to query user", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Warn("wrong password", sl.Err(serviceerrors.ErrInvalidCredentials))
		return AuthResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrInvalidCredentials)
	}

	return s.finishLogin(log, user, guestId)
}

// finishLogin mints the credential first and only then fires the
// reconciler: the merge must run as the authenticated principal. The
// response does not wait for the merge.
func (s *Service) finishLogin(log *slog.Logger, user models.User, guestId string) (AuthResult, error) {
	const op = "service.auth.finishLogin"

	token, err := s.tokens.NewUserToken(user.Id)
	if err != nil {
		log.Error("Failed to mint token", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	status := MergeStatusNoGuestCart
	if guestId != "" {
		s.reconciler.Trigger(uuid.NewString(), user.Id, guestId)
		status = MergeStatusMerging
	}

	return AuthResult{
		UserId:      user.Id,
		Token:       token,
		MergeStatus: status,
	}, nil
}
