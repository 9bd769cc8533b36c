package psql

import (
	databaseerrors "cartsync/internal/database"
	"cartsync/internal/models"
	"cartsync/pkg/lib/logger/sl"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

type Storage struct {
	log *slog.Logger
	db  *sqlx.DB
}

func New(log *slog.Logger, connStr string, migrationsPath string) *Storage {
	const op = "database.psql.New"
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		log.With("op", op).Error("Error connect to database", sl.Err(err))
		panic(fmt.Errorf("%s: %w", op, err))
	}

	if err := goose.Up(db.DB, migrationsPath); err != nil {
		log.With("op", op).Error("Error applying migrations", sl.Err(err))
		panic(fmt.Errorf("%s: %w", op, err))
	}

	return &Storage{
		log: log,
		db:  db,
	}
}

func NewWithParams(log *slog.Logger, db *sqlx.DB) *Storage {
	return &Storage{
		log: log,
		db:  db,
	}
}

func (s *Storage) Close() {
	s.db.Close()
}

// ---------- guest cart ----------

func (s *Storage) GuestEntries(ctx context.Context, guestId string) ([]models.CartEntry, error) {
	const op = "database.psql.GuestEntries"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT product_id, quantity, name, unit_price, thumbnail
		FROM guest_cart_entries
		WHERE guest_id=$1
		ORDER BY added_at, product_id;
	`, guestId)
	if err != nil {
		log.Error("Failed to query guest entries", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := make([]models.CartEntry, 0, 10)
	var tmp models.CartEntry
	for rows.Next() {
		if err := rows.StructScan(&tmp); err != nil {
			log.Error("Failed to scan row", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		entries = append(entries, tmp)
	}

	return entries, nil
}

func (s *Storage) AddGuestEntry(ctx context.Context, guestId string, productId string, quantity int) (models.CartEntry, error) {
	const op = "database.psql.AddGuestEntry"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.db.Beginx()
	if err != nil {
		log.Error("Failed to begin transaction", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var product models.Product
	if err := tx.QueryRowxContext(ctx, `
		SELECT id, name, price, thumbnail, stock, available FROM products
		WHERE id=$1;
	`, productId).StructScan(&product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Product doesn't exist", sl.Err(databaseerrors.ErrNotFound))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
		}

		log.Error("Error checking product existence", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	if !product.Available || product.Stock <= 0 {
		log.Warn("Product unavailable", slog.String("product_id", productId))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrProductUnavailable)
	}

	var entry models.CartEntry
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO guest_cart_entries (guest_id, product_id, quantity, name, unit_price, thumbnail, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guest_id, product_id)
		DO UPDATE SET quantity = guest_cart_entries.quantity + EXCLUDED.quantity
		RETURNING product_id, quantity, name, unit_price, thumbnail;
	`, guestId, productId, quantity, product.Name, product.Price, product.Thumbnail, time.Now()).StructScan(&entry); err != nil {
		log.Error("Failed to upsert guest entry", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	return entry, nil
}

func (s *Storage) UpdateGuestQuantity(ctx context.Context, guestId string, productId string, delta int) (models.CartEntry, error) {
	const op = "database.psql.UpdateGuestQuantity"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var entry models.CartEntry
	err := s.db.QueryRowxContext(ctx, `
		UPDATE guest_cart_entries
		SET quantity = GREATEST(1, quantity + $3)
		WHERE guest_id=$1 AND product_id=$2
		RETURNING product_id, quantity, name, unit_price, thumbnail;
	`, guestId, productId, delta).StructScan(&entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Guest entry doesn't exist", sl.Err(databaseerrors.ErrNotFound))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
		}

		log.Error("Failed to update guest quantity", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	return entry, nil
}

func (s *Storage) RemoveGuestEntry(ctx context.Context, guestId string, productId string) error {
	const op = "database.psql.RemoveGuestEntry"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM guest_cart_entries
		WHERE guest_id=$1 AND product_id=$2;
	`, guestId, productId)
	if err != nil {
		log.Error("Failed to delete guest entry", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		log.Error("Failed to read rows affected", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		log.Warn("Guest entry doesn't exist", sl.Err(databaseerrors.ErrNotFound))
		return fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
	}

	return nil
}

func (s *Storage) ClearGuestCart(ctx context.Context, guestId string) error {
	const op = "database.psql.ClearGuestCart"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM guest_cart_entries
		WHERE guest_id=$1;
	`, guestId); err != nil {
		log.Error("Failed to clear guest cart", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ---------- server cart ----------

func (s *Storage) CartEntries(ctx context.Context, userId string) ([]models.CartEntry, error) {
	const op = "database.psql.CartEntries"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT product_id, quantity, name, unit_price, thumbnail
		FROM cart_entries
		WHERE user_id=$1
		ORDER BY added_at, product_id;
	`, userId)
	if err != nil {
		log.Error("Failed to query cart entries", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := make([]models.CartEntry, 0, 10)
	var tmp models.CartEntry
	for rows.Next() {
		if err := rows.StructScan(&tmp); err != nil {
			log.Error("Failed to scan row", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		entries = append(entries, tmp)
	}

	return entries, nil
}

// MergeCartEntries folds incoming entries into the user's cart in one
// transaction. Quantities are added on product conflict, entries for
// missing or unavailable products are dropped, and the count of dropped
// entries is returned alongside the updated cart. Guest rows are not
// touched here; clearing the guest cart is the caller's decision.
func (s *Storage) MergeCartEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.Cart, int, error) {
	const op = "database.psql.MergeCartEntries"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.Cart{}, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.db.Beginx()
	if err != nil {
		log.Error("Failed to begin transaction", sl.Err(err))
		return models.Cart{}, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductId)
	}

	rows, err := tx.QueryxContext(ctx, `
		SELECT id, name, price, thumbnail, stock, available FROM products
		WHERE id = ANY($1) AND available = TRUE AND stock > 0;
	`, pq.Array(ids))
	if err != nil {
		log.Error("Failed to query products", sl.Err(err))
		return models.Cart{}, 0, fmt.Errorf("%s: %w", op, err)
	}

	valid := make(map[string]models.Product, len(entries))
	var product models.Product
	for rows.Next() {
		if err := rows.StructScan(&product); err != nil {
			rows.Close()
			log.Error("Failed to scan product row", sl.Err(err))
			return models.Cart{}, 0, fmt.Errorf("%s: %w", op, err)
		}
		valid[product.Id] = product
	}
	rows.Close()

	dropped := 0
	for _, e := range entries {
		p, ok := valid[e.ProductId]
		if !ok {
			dropped++
			continue
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_entries (user_id, product_id, quantity, name, unit_price, thumbnail, added_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity;
		`, userId, e.ProductId, e.Quantity, p.Name, p.Price, p.Thumbnail, time.Now()); err != nil {
			log.Error("Failed to fold entry into cart", sl.Err(err))
			return models.Cart{}, 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	merged := make([]models.CartEntry, 0, 10)
	rows, err = tx.QueryxContext(ctx, `
		SELECT product_id, quantity, name, unit_price, thumbnail
		FROM cart_entries
		WHERE user_id=$1
		ORDER BY added_at, product_id;
	`, userId)
	if err != nil {
		log.Error("Failed to query merged cart", sl.Err(err))
		return models.Cart{}, 0, fmt.Errorf("%s: %w", op, err)
	}

	var tmp models.CartEntry
	for rows.Next() {
		if err := rows.StructScan(&tmp); err != nil {
			rows.Close()
			log.Error("Failed to scan row", sl.Err(err))
			return models.Cart{}, 0, fmt.Errorf("%s: %w", op, err)
		}
		merged = append(merged, tmp)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction", sl.Err(err))
		return models.Cart{}, 0, fmt.Errorf("%s: %w", op, err)
	}

	return models.Cart{
		OwnerId: userId,
		Entries: merged,
	}, dropped, nil
}

func (s *Storage) SetCartEntry(ctx context.Context, userId string, productId string, quantity int) (models.CartEntry, error) {
	const op = "database.psql.SetCartEntry"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.db.Beginx()
	if err != nil {
		log.Error("Failed to begin transaction", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var product models.Product
	if err := tx.QueryRowxContext(ctx, `
		SELECT id, name, price, thumbnail, stock, available FROM products
		WHERE id=$1;
	`, productId).StructScan(&product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Product doesn't exist", sl.Err(databaseerrors.ErrNotFound))
			return models.CartEntry{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
		}

		log.Error("Error checking product existence", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	if !product.Available || product.Stock <= 0 {
		log.Warn("Product unavailable", slog.String("product_id", productId))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrProductUnavailable)
	}

	var entry models.CartEntry
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO cart_entries (user_id, product_id, quantity, name, unit_price, thumbnail, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
		RETURNING product_id, quantity, name, unit_price, thumbnail;
	`, userId, productId, quantity, product.Name, product.Price, product.Thumbnail, time.Now()).StructScan(&entry); err != nil {
		log.Error("Failed to upsert cart entry", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction", sl.Err(err))
		return models.CartEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	return entry, nil
}

func (s *Storage) RemoveCartEntry(ctx context.Context, userId string, productId string) error {
	const op = "database.psql.RemoveCartEntry"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_entries
		WHERE user_id=$1 AND product_id=$2;
	`, userId, productId)
	if err != nil {
		log.Error("Failed to delete cart entry", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		log.Error("Failed to read rows affected", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		log.Warn("Cart entry doesn't exist", sl.Err(databaseerrors.ErrNotFound))
		return fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
	}

	return nil
}

func (s *Storage) ClearCart(ctx context.Context, userId string) error {
	const op = "database.psql.ClearCart"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_entries
		WHERE user_id=$1;
	`, userId); err != nil {
		log.Error("Failed to clear cart", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ---------- sessions and users ----------

func (s *Storage) CreateGuestSession(ctx context.Context, session models.GuestSession) error {
	const op = "database.psql.CreateGuestSession"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO guest_sessions (id, expires_at)
		VALUES ($1, $2);
	`, session.Id, session.ExpiresAt); err != nil {
		log.Error("Failed to create guest session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) CreateUser(ctx context.Context, email string, passHash []byte) (models.User, error) {
	const op = "database.psql.CreateUser"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.User{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var user models.User
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO users (id, email, pass_hash)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, email, pass_hash;
	`, email, passHash).StructScan(&user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			log.Warn("User already exists", sl.Err(databaseerrors.ErrAlreadyExists))
			return models.User{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrAlreadyExists)
		}

		log.Error("Failed to create user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "database.psql.UserByEmail"
	log := s.log.With("op", op)

	select {
	case <-ctx.Done():
		log.Error("Context is over", sl.Err(ctx.Err()))
		return models.User{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var user models.User
	err := s.db.QueryRowxContext(ctx, `
		SELECT id, email, pass_hash FROM users
		WHERE email=$1;
	`, email).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("User doesn't exist", sl.Err(databaseerrors.ErrNotFound))
			return models.User{}, fmt.Errorf("%s: %w", op, databaseerrors.ErrNotFound)
		}

		log.Error("Failed to query user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
