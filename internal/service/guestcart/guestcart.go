package guestcartservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	databaseerrors "cartsync/internal/database"
	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/lib/logger/sl"
)

// GuestCartStorage is the injectable store behind the guest cart, so the
// reconciler and these operations can be exercised against an in-memory
// fake as well as postgres.
type GuestCartStorage interface {
	GuestEntries(ctx context.Context, guestId string) ([]models.CartEntry, error)
	AddGuestEntry(ctx context.Context, guestId string, productId string, quantity int) (models.CartEntry, error)
	UpdateGuestQuantity(ctx context.Context, guestId string, productId string, delta int) (models.CartEntry, error)
	RemoveGuestEntry(ctx context.Context, guestId string, productId string) error
	ClearGuestCart(ctx context.Context, guestId string) error
}

// Change is published to subscribers after every mutation of a guest
// cart, carrying the new number of entries for badge-style displays.
type Change struct {
	GuestId string `json:"guest_id"`
	Count   int    `json:"count"`
}

type Service struct {
	log     *slog.Logger
	storage GuestCartStorage

	mu          sync.Mutex
	subscribers []func(Change)
}

func New(log *slog.Logger, storage GuestCartStorage) *Service {
	return &Service{
		log:     log,
		storage: storage,
	}
}

// Subscribe registers an observer for cart changes. Replaces the
// original app's global "cart changed" event with an explicit
// subscription.
func (s *Service) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Service) publish(change Change) {
	s.mu.Lock()
	subscribers := make([]func(Change), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(change)
	}
}

func (s *Service) notify(ctx context.Context, guestId string) {
	const op = "service.guestcart.notify"

	entries, err := s.storage.GuestEntries(ctx, guestId)
	if err != nil {
		s.log.With("op", op).Warn("Failed to read entries for change notification", sl.Err(err))
		return
	}

	s.publish(Change{GuestId: guestId, Count: len(entries)})
}

// Add increments the quantity when the product is already in the cart,
// otherwise appends a new entry.
func (s *Service) Add(ctx context.Context, guestId string, productId string, quantity int) (models.CartEntry, error) {
	const op = "service.guestcart.Add"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	entry, err := s.storage.AddGuestEntry(ctx, guestId, productId, quantity)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else if errors.Is(err, databaseerrors.ErrNotFound) {
			log.Warn("product not found", sl.Err(serviceerrors.ErrNotFound))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrNotFound)
		} else if errors.Is(err, databaseerrors.ErrProductUnavailable) {
			log.Warn("product unavailable", sl.Err(serviceerrors.ErrProductUnavailable))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrProductUnavailable)
		} else {
			log.Error("Failed to add entry to guest cart", sl.Err(err))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.notify(ctx, guestId)

	return entry, nil
}

// UpdateQuantity adjusts an entry's quantity by delta, floored at 1.
// A missing entry is a no-op and reports no error; removal is a
// separate explicit action.
func (s *Service) UpdateQuantity(ctx context.Context, guestId string, productId string, delta int) (models.CartEntry, error) {
	const op = "service.guestcart.UpdateQuantity"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	entry, err := s.storage.UpdateGuestQuantity(ctx, guestId, productId, delta)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else if errors.Is(err, databaseerrors.ErrNotFound) {
			log.Info("Entry absent, quantity update is a no-op")
			return models.CartEntry{}, nil
		} else {
			log.Error("Failed to update guest quantity", sl.Err(err))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.notify(ctx, guestId)

	return entry, nil
}

// Remove deletes the entry when present, no-op otherwise.
func (s *Service) Remove(ctx context.Context, guestId string, productId string) error {
	const op = "service.guestcart.Remove"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	err := s.storage.RemoveGuestEntry(ctx, guestId, productId)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else if errors.Is(err, databaseerrors.ErrNotFound) {
			log.Info("Entry absent, remove is a no-op")
			return nil
		} else {
			log.Error("Failed to remove guest entry", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.notify(ctx, guestId)

	return nil
}

// ReadAll returns the current ordered entries without mutating anything.
func (s *Service) ReadAll(ctx context.Context, guestId string) ([]models.CartEntry, error) {
	const op = "service.guestcart.ReadAll"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return nil, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return nil, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	entries, err := s.storage.GuestEntries(ctx, guestId)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return nil, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return nil, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else {
			log.Error("Failed to read guest cart", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return entries, nil
}

// Clear empties the guest cart. Used by the reconciler after a
// successful merge and by checkout completion.
func (s *Service) Clear(ctx context.Context, guestId string) error {
	const op = "service.guestcart.Clear"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	if err := s.storage.ClearGuestCart(ctx, guestId); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else {
			log.Error("Failed to clear guest cart", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.publish(Change{GuestId: guestId, Count: 0})

	return nil
}
