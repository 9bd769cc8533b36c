package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	authservice "cartsync/internal/service/auth"
	"cartsync/pkg/lib/logger/sl"

	"github.com/go-playground/validator/v10"
)

const StatusClientClosedRequest = 499

type AuthService interface {
	NewGuestSession(ctx context.Context) (models.GuestSession, string, error)
	SignUp(ctx context.Context, email string, password string, guestId string) (authservice.AuthResult, error)
	LogIn(ctx context.Context, email string, password string, guestId string) (authservice.AuthResult, error)
}

type Handler struct {
	log     *slog.Logger
	service AuthService
}

func New(log *slog.Logger, service AuthService) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	GuestId  string `json:"guest_id" validate:"omitempty"`
}

type guestSessionResponse struct {
	GuestId   string `json:"guest_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// POST /auth/guest
func (h *Handler) CreateGuestSession(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.CreateGuestSession"
	log := h.log.With("op", op)

	session, token, err := h.service.NewGuestSession(r.Context())
	if err != nil {
		if errors.Is(err, serviceerrors.ErrContextCanceled) {
			log.Warn("Context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			http.Error(w, "Context canceled", StatusClientClosedRequest)
			return
		} else if errors.Is(err, serviceerrors.ErrDeadlineExceeded) {
			log.Warn("Deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			http.Error(w, "Deadline exceeded", http.StatusGatewayTimeout)
			return
		} else {
			log.Error("Failed to create guest session", sl.Err(err))
			http.Error(w, "Failed to create guest session", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(guestSessionResponse{
		GuestId:   session.Id,
		Token:     token,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// POST /auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.SignUp"
	log := h.log.With("op", op)

	req, ok := h.decodeCredentials(w, r, log)
	if !ok {
		return
	}

	result, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.GuestId)
	if err != nil {
		if errors.Is(err, serviceerrors.ErrContextCanceled) {
			log.Warn("Context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			http.Error(w, "Context canceled", StatusClientClosedRequest)
			return
		} else if errors.Is(err, serviceerrors.ErrDeadlineExceeded) {
			log.Warn("Deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			http.Error(w, "Deadline exceeded", http.StatusGatewayTimeout)
			return
		} else if errors.Is(err, serviceerrors.ErrAlreadyExists) {
			log.Warn("User already exists", sl.Err(serviceerrors.ErrAlreadyExists))
			http.Error(w, "User already exists", http.StatusConflict)
			return
		} else {
			log.Error("Failed to sign up", sl.Err(err))
			http.Error(w, "Failed to sign up", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

// POST /auth/login
func (h *Handler) LogIn(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.LogIn"
	log := h.log.With("op", op)

	req, ok := h.decodeCredentials(w, r, log)
	if !ok {
		return
	}

	result, err := h.service.LogIn(r.Context(), req.Email, req.Password, req.GuestId)
	if err != nil {
		if errors.Is(err, serviceerrors.ErrContextCanceled) {
			log.Warn("Context canceled", sl.Err(serviceerrors.ErrContextCanceled))
			http.Error(w, "Context canceled", StatusClientClosedRequest)
			return
		} else if errors.Is(err, serviceerrors.ErrDeadlineExceeded) {
			log.Warn("Deadline exceeded", sl.Err(serviceerrors.ErrDeadlineExceeded))
			http.Error(w, "Deadline exceeded", http.StatusGatewayTimeout)
			return
		} else if errors.Is(err, serviceerrors.ErrInvalidCredentials) {
			log.Warn("Invalid credentials", sl.Err(serviceerrors.ErrInvalidCredentials))
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		} else {
			log.Error("Failed to log in", sl.Err(err))
			http.Error(w, "Failed to log in", http.StatusInternalServerError)
			return
		}
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("Failed to respond", sl.Err(err))
		http.Error(w, "Failed to respond", http.StatusInternalServerError)
		return
	}
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request, log *slog.Logger) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("Cannot unmarshal request body", sl.Err(err))
		http.Error(w, "Cannot unmarshal request body", http.StatusBadRequest)
		return credentialsRequest{}, false
	}
	defer r.Body.Close()

	if err := validator.New().Struct(req); err != nil {
		log.Error("Failed to validate", sl.Err(err))
		http.Error(w, "Failed to validate", http.StatusBadRequest)
		return credentialsRequest{}, false
	}

	return req, true
}
