package carthandler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	carthandler "cartsync/internal/handlers/cart"
	"cartsync/internal/handlers/cart/mocks"
	"cartsync/internal/middleware"
	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/lib/logger/slogdiscard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestHandler(service *mocks.Service) *carthandler.Handler {
	logger := slogdiscard.NewDiscardLogger()
	return carthandler.New(logger, service)
}

func asUser(r *http.Request, userId string) *http.Request {
	return r.WithContext(middleware.WithSubject(r.Context(), userId))
}

func TestHandler_View(t *testing.T) {
	tests := []struct {
		name         string
		userId       string
		setupMock    func(s *mocks.Service)
		expectedCode int
		checkBody    bool
	}{
		{
			name:   "Success",
			userId: "user_1",
			setupMock: func(s *mocks.Service) {
				s.On("View", mock.Anything, "user_1").
					Return(models.Cart{
						OwnerId: "user_1",
						Entries: []models.CartEntry{{ProductId: "A", Quantity: 3}},
					}, nil)
			},
			expectedCode: http.StatusOK,
			checkBody:    true,
		},
		{
			name:         "No identity",
			userId:       "",
			setupMock:    func(s *mocks.Service) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:   "Service failure",
			userId: "user_1",
			setupMock: func(s *mocks.Service) {
				s.On("View", mock.Anything, "user_1").
					Return(models.Cart{}, errors.New("error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.Service)
			tt.setupMock(mockService)

			handler := newTestHandler(mockService)
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tt.userId != "" {
				req = asUser(req, tt.userId)
			}
			ww := httptest.NewRecorder()

			handler.View(ww, req)
			resp := ww.Result()
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)

			if tt.checkBody {
				var got models.Cart
				err := json.NewDecoder(resp.Body).Decode(&got)
				assert.NoError(t, err)
				assert.Equal(t, "user_1", got.OwnerId)
				assert.Len(t, got.Entries, 1)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_SetQuantity(t *testing.T) {
	tests := []struct {
		name         string
		body         []byte
		setupMock    func(s *mocks.Service)
		expectedCode int
	}{
		{
			name: "Success",
			body: []byte(`{"product_id":"A","quantity":4}`),
			setupMock: func(s *mocks.Service) {
				s.On("SetQuantity", mock.Anything, "user_1", "A", 4).
					Return(models.CartEntry{ProductId: "A", Quantity: 4}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Empty body",
			body:         nil,
			setupMock:    func(s *mocks.Service) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Product doesn't exist",
			body: []byte(`{"product_id":"missing","quantity":1}`),
			setupMock: func(s *mocks.Service) {
				s.On("SetQuantity", mock.Anything, "user_1", "missing", 1).
					Return(models.CartEntry{}, serviceerrors.ErrNotFound)
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Product unavailable",
			body: []byte(`{"product_id":"A","quantity":1}`),
			setupMock: func(s *mocks.Service) {
				s.On("SetQuantity", mock.Anything, "user_1", "A", 1).
					Return(models.CartEntry{}, serviceerrors.ErrProductUnavailable)
			},
			expectedCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.Service)
			tt.setupMock(mockService)

			handler := newTestHandler(mockService)
			req := asUser(httptest.NewRequest(http.MethodPost, "/cart", bytes.NewReader(tt.body)), "user_1")
			ww := httptest.NewRecorder()

			handler.SetQuantity(ww, req)
			resp := ww.Result()
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Merge(t *testing.T) {
	tests := []struct {
		name         string
		body         []byte
		setupMock    func(s *mocks.Service)
		expectedCode int
		checkBody    bool
	}{
		{
			name: "Quantities are added for shared products",
			body: []byte(`{"entries":[{"product_id":"A","quantity":2}]}`),
			setupMock: func(s *mocks.Service) {
				s.On("MergeEntries", mock.Anything, "user_1",
					[]models.CartEntry{{ProductId: "A", Quantity: 2}}).
					Return(models.MergeResult{
						Cart: models.Cart{
							OwnerId: "user_1",
							Entries: []models.CartEntry{{ProductId: "A", Quantity: 5}},
						},
					}, nil)
			},
			expectedCode: http.StatusOK,
			checkBody:    true,
		},
		{
			name: "Empty batch succeeds",
			body: []byte(`{"entries":[]}`),
			setupMock: func(s *mocks.Service) {
				s.On("MergeEntries", mock.Anything, "user_1", []models.CartEntry{}).
					Return(models.MergeResult{Cart: models.Cart{OwnerId: "user_1"}}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Dropped entries reported",
			body: []byte(`{"entries":[{"product_id":"A","quantity":2},{"product_id":"gone","quantity":1}]}`),
			setupMock: func(s *mocks.Service) {
				s.On("MergeEntries", mock.Anything, "user_1", []models.CartEntry{
					{ProductId: "A", Quantity: 2},
					{ProductId: "gone", Quantity: 1},
				}).Return(models.MergeResult{
					Cart: models.Cart{
						OwnerId: "user_1",
						Entries: []models.CartEntry{{ProductId: "A", Quantity: 2}},
					},
					Dropped: 1,
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Empty body",
			body:         nil,
			setupMock:    func(s *mocks.Service) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Invalid entry",
			body:         []byte(`{"entries":[{"product_id":"","quantity":0}]}`),
			setupMock:    func(s *mocks.Service) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Service failure",
			body: []byte(`{"entries":[{"product_id":"A","quantity":2}]}`),
			setupMock: func(s *mocks.Service) {
				s.On("MergeEntries", mock.Anything, "user_1",
					[]models.CartEntry{{ProductId: "A", Quantity: 2}}).
					Return(models.MergeResult{}, errors.New("error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.Service)
			tt.setupMock(mockService)

			handler := newTestHandler(mockService)
			req := asUser(httptest.NewRequest(http.MethodPost, "/cart/merge", bytes.NewReader(tt.body)), "user_1")
			ww := httptest.NewRecorder()

			handler.Merge(ww, req)
			resp := ww.Result()
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)

			if tt.checkBody {
				var got models.MergeResult
				err := json.NewDecoder(resp.Body).Decode(&got)
				assert.NoError(t, err)
				assert.Equal(t, 5, got.Cart.Entries[0].Quantity)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_RemoveEntry(t *testing.T) {
	tests := []struct {
		name         string
		setupMock    func(s *mocks.Service)
		expectedCode int
	}{
		{
			name: "Success",
			setupMock: func(s *mocks.Service) {
				s.On("RemoveEntry", mock.Anything, "user_1", "A").Return(nil)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name: "Entry doesn't exist",
			setupMock: func(s *mocks.Service) {
				s.On("RemoveEntry", mock.Anything, "user_1", "A").
					Return(serviceerrors.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name: "Service failure",
			setupMock: func(s *mocks.Service) {
				s.On("RemoveEntry", mock.Anything, "user_1", "A").
					Return(errors.New("error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.Service)
			tt.setupMock(mockService)

			handler := newTestHandler(mockService)
			req := asUser(httptest.NewRequest(http.MethodDelete, "/cart/items/A", nil), "user_1")
			ww := httptest.NewRecorder()

			handler.RemoveEntry(ww, req)
			resp := ww.Result()
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Clear(t *testing.T) {
	mockService := new(mocks.Service)
	mockService.On("Clear", mock.Anything, "user_1").Return(nil)

	handler := newTestHandler(mockService)
	req := asUser(httptest.NewRequest(http.MethodDelete, "/cart", nil), "user_1")
	ww := httptest.NewRecorder()

	handler.Clear(ww, req)
	resp := ww.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mockService.AssertExpectations(t)
}
