package app

import (
	authhandler "cartsync/internal/handlers/auth"
	carthandler "cartsync/internal/handlers/cart"
	guestcarthandler "cartsync/internal/handlers/guestcart"
	"cartsync/internal/models"
	"cartsync/internal/routes"
	authservice "cartsync/internal/service/auth"
	guestcartservice "cartsync/internal/service/guestcart"
	reconcilerservice "cartsync/internal/service/reconciler"
	servercartservice "cartsync/internal/service/servercart"
	"cartsync/internal/ws"
	"cartsync/pkg/config"
	jwtlib "cartsync/pkg/lib/jwt"
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Storage is everything the application needs from the database layer.
type Storage interface {
	GuestEntries(ctx context.Context, guestId string) ([]models.CartEntry, error)
	AddGuestEntry(ctx context.Context, guestId string, productId string, quantity int) (models.CartEntry, error)
	UpdateGuestQuantity(ctx context.Context, guestId string, productId string, delta int) (models.CartEntry, error)
	RemoveGuestEntry(ctx context.Context, guestId string, productId string) error
	ClearGuestCart(ctx context.Context, guestId string) error

	CartEntries(ctx context.Context, userId string) ([]models.CartEntry, error)
	MergeCartEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.Cart, int, error)
	SetCartEntry(ctx context.Context, userId string, productId string, quantity int) (models.CartEntry, error)
	RemoveCartEntry(ctx context.Context, userId string, productId string) error
	ClearCart(ctx context.Context, userId string) error

	CreateGuestSession(ctx context.Context, session models.GuestSession) error
	CreateUser(ctx context.Context, email string, passHash []byte) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

type App struct {
	log     *slog.Logger
	cfg     *config.Config
	storage Storage
}

func New(log *slog.Logger, cfg *config.Config, storage Storage) *App {
	return &App{
		log:     log,
		cfg:     cfg,
		storage: storage,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "app.Run"

	tokens := jwtlib.NewManager(a.cfg.Auth.Secret, a.cfg.Auth.TokenTTL, a.cfg.Auth.GuestTTL)
	hub := ws.NewHub(a.log)

	guestCartService := guestcartservice.New(a.log, a.storage)
	guestCartService.Subscribe(hub.Publish)

	serverCartService := servercartservice.New(a.log, a.storage)
	reconcilerService := reconcilerservice.New(a.log, guestCartService, serverCartService, a.cfg.Merge.Timeout)
	authService := authservice.New(a.log, a.storage, a.storage, reconcilerService, tokens, a.cfg.Auth.GuestTTL)

	authHandler := authhandler.New(a.log, authService)
	guestCartHandler := guestcarthandler.New(a.log, guestCartService)
	cartHandler := carthandler.New(a.log, serverCartService)

	mux := http.NewServeMux()
	routes.New(a.log, tokens, authHandler, guestCartHandler, cartHandler, hub).Register(mux)

	if err := http.ListenAndServe(
		fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		mux,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
