package servercartservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	databaseerrors "cartsync/internal/database"
	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/lib/logger/sl"
)

type CartStorage interface {
	CartEntries(ctx context.Context, userId string) ([]models.CartEntry, error)
	MergeCartEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.Cart, int, error)
	SetCartEntry(ctx context.Context, userId string, productId string, quantity int) (models.CartEntry, error)
	RemoveCartEntry(ctx context.Context, userId string, productId string) error
	ClearCart(ctx context.Context, userId string) error
}

type Service struct {
	log     *slog.Logger
	storage CartStorage
}

func New(log *slog.Logger, storage CartStorage) *Service {
	return &Service{
		log:     log,
		storage: storage,
	}
}

// MergeEntries folds a batch of entries into the principal's cart.
// Quantities for a product already in the cart are added, never
// overwritten. Entries for missing or unavailable products are dropped
// without failing the operation. An empty batch is a success no-op.
// Calling this twice with the same entries doubles quantities; issuing
// it exactly once per login event is the reconciler's job.
func (s *Service) MergeEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.MergeResult, error) {
	const op = "service.servercart.MergeEntries"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return models.MergeResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return models.MergeResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return models.MergeResult{}, fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	if len(entries) == 0 {
		current, err := s.storage.CartEntries(ctx, userId)
		if err != nil {
			log.Error("Failed to read cart", sl.Err(err))
			return models.MergeResult{}, fmt.Errorf("%s: %w", op, err)
		}

		return models.MergeResult{
			Cart: models.Cart{OwnerId: userId, Entries: current},
		}, nil
	}

	cart, dropped, err := s.storage.MergeCartEntries(ctx, userId, entries)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return models.MergeResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return models.MergeResult{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else {
			log.Error("Failed to merge entries", sl.Err(err))
			return models.MergeResult{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if dropped > 0 {
		log.Warn("Dropped unavailable products from merge", slog.Int("dropped", dropped))
	}

	return models.MergeResult{
		Cart:    cart,
		Dropped: dropped,
	}, nil
}

func (s *Service) View(ctx context.Context, userId string) (models.Cart, error) {
	const op = "service.servercart.View"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("context canceled", sl.Err(err))
				return models.Cart{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
			} else if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("deadline exceeded", sl.Err(err))
				return models.Cart{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
			} else {
				log.Error("unexpected error", sl.Err(err))
				return models.Cart{}, fmt.Errorf("%s: %w", op, err)
			}
		}
	default:
	}

	entries, err := s.storage.CartEntries(ctx, userId)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return models.Cart{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return models.Cart{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else {
			log.Error("Failed to read cart", sl.Err(err))
			return models.Cart{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return models.Cart{
		OwnerId: userId,
		Entries: entries,
	}, nil
}

func (s *Service) SetQuantity(ctx context.Context, userId string, productId string, quantity int) (models.CartEntry, error) {
	const op = "service.servercart.SetQuantity"
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

	entry, err := s.storage.SetCartEntry(ctx, userId, productId, quantity)
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
			log.Error("Failed to set cart entry", sl.Err(err))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return entry, nil
}

func (s *Service) RemoveEntry(ctx context.Context, userId string, productId string) error {
	const op = "service.servercart.RemoveEntry"
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

	err := s.storage.RemoveCartEntry(ctx, userId, productId)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else if errors.Is(err, databaseerrors.ErrNotFound) {
			log.Warn("cart entry doesn't exist", sl.Err(serviceerrors.ErrNotFound))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrNotFound)
		} else {
			log.Error("Failed to remove cart entry", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (s *Service) Clear(ctx context.Context, userId string) error {
	const op = "service.servercart.Clear"
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

	if err := s.storage.ClearCart(ctx, userId); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		} else {
			log.Error("Failed to clear cart", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}
