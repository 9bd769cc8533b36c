package routes

import (
	authhandler "cartsync/internal/handlers/auth"
	carthandler "cartsync/internal/handlers/cart"
	guestcarthandler "cartsync/internal/handlers/guestcart"
	"cartsync/internal/middleware"
	"cartsync/internal/ws"
	jwtlib "cartsync/pkg/lib/jwt"
	"log/slog"
	"net/http"
)

type Routes struct {
	log       *slog.Logger
	tokens    *jwtlib.Manager
	auth      *authhandler.Handler
	guestCart *guestcarthandler.Handler
	cart      *carthandler.Handler
	hub       *ws.Hub
}

func New(
	log *slog.Logger,
	tokens *jwtlib.Manager,
	auth *authhandler.Handler,
	guestCart *guestcarthandler.Handler,
	cart *carthandler.Handler,
	hub *ws.Hub,
) *Routes {
	return &Routes{
		log:       log,
		tokens:    tokens,
		auth:      auth,
		guestCart: guestCart,
		cart:      cart,
		hub:       hub,
	}
}

func (r *Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth/guest", post(r.auth.CreateGuestSession))
	mux.HandleFunc("/auth/signup", post(r.auth.SignUp))
	mux.HandleFunc("/auth/login", post(r.auth.LogIn))

	mux.HandleFunc("/guest/cart", r.asGuest(r.guestCartRoot))
	mux.HandleFunc("/guest/cart/items/", r.asGuest(r.guestCartItems))
	mux.HandleFunc("/ws/cart", r.asGuest(r.hub.Handle))

	mux.HandleFunc("/cart", r.asUser(r.cartRoot))
	mux.HandleFunc("/cart/merge", r.asUser(post(r.cart.Merge)))
	mux.HandleFunc("/cart/items/", r.asUser(r.cartItems))
}

func (r *Routes) asGuest(next http.HandlerFunc) http.HandlerFunc {
	return middleware.Auth(r.log, r.tokens, jwtlib.RoleGuest, next)
}

func (r *Routes) asUser(next http.HandlerFunc) http.HandlerFunc {
	return middleware.Auth(r.log, r.tokens, jwtlib.RoleUser, next)
}

func post(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.NotFound(w, req)
			return
		}
		next(w, req)
	}
}

// GET|POST|DELETE /guest/cart
func (r *Routes) guestCartRoot(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.guestCart.ReadAll(w, req)
	case http.MethodPost:
		r.guestCart.Add(w, req)
	case http.MethodDelete:
		r.guestCart.Clear(w, req)
	default:
		http.NotFound(w, req)
	}
}

// PATCH|DELETE /guest/cart/items/{productId}
func (r *Routes) guestCartItems(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPatch:
		r.guestCart.UpdateQuantity(w, req)
	case http.MethodDelete:
		r.guestCart.Remove(w, req)
	default:
		http.NotFound(w, req)
	}
}

// GET|POST|DELETE /cart
func (r *Routes) cartRoot(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.cart.View(w, req)
	case http.MethodPost:
		r.cart.SetQuantity(w, req)
	case http.MethodDelete:
		r.cart.Clear(w, req)
	default:
		http.NotFound(w, req)
	}
}

// DELETE /cart/items/{productId}
func (r *Routes) cartItems(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		http.NotFound(w, req)
		return
	}
	r.cart.RemoveEntry(w, req)
}
