package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleGuest = "guest"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Subject string
	Role    string
}

// Manager mints and verifies HS256 bearer tokens for both principals
// and guest sessions.
type Manager struct {
	secret   []byte
	userTTL  time.Duration
	guestTTL time.Duration
}

func NewManager(secret string, userTTL, guestTTL time.Duration) *Manager {
	return &Manager{
		secret:   []byte(secret),
		userTTL:  userTTL,
		guestTTL: guestTTL,
	}
}

func (m *Manager) NewUserToken(userId string) (string, error) {
	return m.newToken(userId, RoleUser, m.userTTL)
}

func (m *Manager) NewGuestToken(guestId string) (string, error) {
	return m.newToken(guestId, RoleGuest, m.guestTTL)
}

func (m *Manager) newToken(subject, role string, ttl time.Duration) (string, error) {
	const op = "lib.jwt.newToken"

	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (m *Manager) Parse(raw string) (Claims, error) {
	const op = "lib.jwt.Parse"

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	subject, _ := mapClaims["sub"].(string)
	role, _ := mapClaims["role"].(string)
	if subject == "" || role == "" {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return Claims{
		Subject: subject,
		Role:    role,
	}, nil
}
