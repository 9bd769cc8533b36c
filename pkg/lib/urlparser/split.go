package urlparser

import (
	"errors"
	"strings"
)

// ProductIdFromPath extracts the product id from cart item paths:
// /cart/items/{productId} and /guest/cart/items/{productId}.
func ProductIdFromPath(path string) (string, error) {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")

	switch len(parts) {
	case 3:
		if parts[0] != "cart" || parts[1] != "items" || parts[2] == "" {
			return "", errors.New("invalid path, expected /cart/items/{productId}")
		}
		return parts[2], nil
	case 4:
		if parts[0] != "guest" || parts[1] != "cart" || parts[2] != "items" || parts[3] == "" {
			return "", errors.New("invalid path, expected /guest/cart/items/{productId}")
		}
		return parts[3], nil
	default:
		return "", errors.New("wrong url format")
	}
}
