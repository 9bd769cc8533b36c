package carthandler

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

type CartService interface {
	View(ctx context.Context, userId string) (models.Cart, error)
	SetQuantity(ctx context.Context, userId string, productId string, quantity int) (models.CartEntry, error)
	RemoveEntry(ctx context.Context, userId string, productId string) error
	Clear(ctx context.Context, userId string) error
	MergeEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.MergeResult, error)
}

type Handler struct {
	log     *slog.Logger
	service CartService
}

func New(log *slog.Logger, service CartService) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

type setQuantityRequest struct {
	ProductId string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type mergeEntry struct {
	ProductId string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type mergeRequest struct {
	Entries []mergeEntry `json:"entries" validate:"dive"`
}

// GET /cart
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.View"
	log := h.log.With("op", op)

	userId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cart, err := h.service.View(r.Context(), userId)
	if err != nil {
		h.writeServiceError(w, log, err, "Failed to read cart")
		return
	}

	if err := json.NewEncoder(w).Encode(cart); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// POST /cart
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.SetQuantity"
	log := h.log.With("op", op)

	userId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req setQuantityRequest
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

	entry, err := h.service.SetQuantity(r.Context(), userId, req.ProductId, req.Quantity)
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
		h.writeServiceError(w, log, err, "Failed to set cart entry")
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(entry); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// POST /cart/merge
//
// Wire contract for clients that held cart state locally: a batch of
// {product_id, quantity} pairs folded additively into the principal's
// cart. The response is the full updated cart plus the count of entries
// dropped for unavailable products.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.Merge"
	log := h.log.With("op", op)

	userId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req mergeRequest
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

	entries := make([]models.CartEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, models.CartEntry{
			ProductId: e.ProductId,
			Quantity:  e.Quantity,
		})
	}

	result, err := h.service.MergeEntries(r.Context(), userId, entries)
	if err != nil {
		h.writeServiceError(w, log, err, "Failed to merge entries")
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// DELETE /cart/items/{productId}
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.RemoveEntry"
	log := h.log.With("op", op)

	userId, ok := middleware.Subject(r.Context())
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

	if err := h.service.RemoveEntry(r.Context(), userId, productId); err != nil {
		if errors.Is(err, serviceerrors.ErrNotFound) {
			log.Warn("Cart entry doesn't exist", sl.Err(serviceerrors.ErrNotFound))
			http.NotFound(w, r)
			return
		}
		h.writeServiceError(w, log, err, "Failed to remove cart entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /cart
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.Clear"
	log := h.log.With("op", op)

	userId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.service.Clear(r.Context(), userId); err != nil {
		h.writeServiceError(w, log, err, "Failed to clear cart")
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
