package guestcarthandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cartsync/internal/middleware"
	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/lib/logger/sl"
	"cartsync/pkg/lib/urlparser"

	"github.com/go-playground/validator/v10"
)

const StatusClientClosedRequest = 499

type GuestCartService interface {
	Add(ctx context.Context, guestId string, productId string, quantity int) (models.CartEntry, error)
	UpdateQuantity(ctx context.Context, guestId string, productId string, delta int) (models.CartEntry, error)
	Remove(ctx context.Context, guestId string, productId string) error
	ReadAll(ctx context.Context, guestId string) ([]models.CartEntry, error)
	Clear(ctx context.Context, guestId string) error
}

type Handler struct {
	log     *slog.Logger
	service GuestCartService
}

func New(log *slog.Logger, service GuestCartService) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

type addRequest struct {
	ProductId string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// GET /guest/cart
func (h *Handler) ReadAll(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.guestcart.ReadAll"
	log := h.log.With("op", op)

	guestId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.service.ReadAll(r.Context(), guestId)
	if err != nil {
		h.writeServiceError(w, log, err, "Failed to read guest cart")
		return
	}

	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// POST /guest/cart
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.guestcart.Add"
	log := h.log.With("op", op)

	guestId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("Cannot unmarshal request body", sl.Err(err))
		http.Error(w, "Cannot unmarshal request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := validator.New().Struct(req); err != nil {
		log.Error("Failed to validate", sl.Err(err))
		http.Error(w, "Failed to validate", http.StatusBadRequest)
		return
	}

	entry, err := h.service.Add(r.Context(), guestId, req.ProductId, req.Quantity)
	if err != nil {
		if errors.Is(err, serviceerrors.ErrNotFound) {
			log.Warn("Product doesn't exist", sl.Err(serviceerrors.ErrNotFound))
			http.Error(w, "Product doesn't exist", http.StatusBadRequest)
			return
		} else if errors.Is(err, serviceerrors.ErrProductUnavailable) {
			log.Warn("Product unavailable", sl.Err(serviceerrors.ErrProductUnavailable))
			http.Error(w, "Product unavailable", http.StatusConflict)
			return
		}
		h.writeServiceError(w, log, err, "Failed to add to guest cart")
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(entry); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// PATCH /guest/cart/items/{productId}
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.guestcart.UpdateQuantity"
	log := h.log.With("op", op)

	guestId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productId, err := urlparser.ProductIdFromPath(r.URL.Path)
	if err != nil {
		log.Error("Invalid path", sl.Err(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("Cannot unmarshal request body", sl.Err(err))
		http.Error(w, "Cannot unmarshal request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := validator.New().Struct(req); err != nil {
		log.Error("Failed to validate", sl.Err(err))
		http.Error(w, "Failed to validate", http.StatusBadRequest)
		return
	}

	entry, err := h.service.UpdateQuantity(r.Context(), guestId, productId, req.Delta)
	if err != nil {
		h.writeServiceError(w, log, err, "Failed to update quantity")
		return
	}

	if err := json.NewEncoder(w).Encode(entry); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// DELETE /guest/cart/items/{productId}
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.guestcart.Remove"
	log := h.log.With("op", op)

	guestId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productId, err := urlparser.ProductIdFromPath(r.URL.Path)
	if err != nil {
		log.Error("Invalid path", sl.Err(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Remove(r.Context(), guestId, productId); err != nil {
		h.writeServiceError(w, log, err, "Failed to remove from guest cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /guest/cart
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.guestcart.Clear"
	log := h.log.With("op", op)

	guestId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.service.Clear(r.Context(), guestId); err != nil {
		h.writeServiceError(w, log, err, "Failed to clear guest cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, err error, msg string) {
	if errors.Is(err, serviceerrors.ErrContextCanceled) {
		log.Warn("Context canceled", sl.Err(serviceerrors.ErrContextCanceled))
		http.Error(w, "Context canceled", StatusClientClosedRequest)
		return
	} else if errors.Is(err, serviceerrors.ErrDeadlineExceeded) {
		log.Warn("Deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
		http.Error(w, "Deadline exceeded", http.StatusGatewayTimeout)
		return
	}

	log.Error(msg, sl.Err(err))
	http.Error(w, msg, http.StatusInternalServerError)
}
