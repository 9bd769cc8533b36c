package models

import "time"

// CartEntry is one product line in a cart. ProductId is unique within a
// single cart; a stored quantity is never below 1.
type CartEntry struct {
	ProductId string  `json:"product_id" db:"product_id"`
	Quantity  int     `json:"quantity" db:"quantity"`
	Name      string  `json:"name,omitempty" db:"name"`
	UnitPrice float64 `json:"unit_price,omitempty" db:"unit_price"`
	Thumbnail string  `json:"thumbnail,omitempty" db:"thumbnail"`
}

type Cart struct {
	OwnerId string      `json:"owner_id"`
	Entries []CartEntry `json:"entries"`
}

// MergeResult is what a merge hands back: the full updated cart plus the
// number of incoming entries dropped for unavailable products.
type MergeResult struct {
	Cart    Cart `json:"cart"`
	Dropped int  `json:"dropped"`
}

type Product struct {
	Id        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Price     float64 `json:"price" db:"price"`
	Thumbnail string  `json:"thumbnail" db:"thumbnail"`
	Stock     int     `json:"stock" db:"stock"`
	Available bool    `json:"available" db:"available"`
}

type GuestSession struct {
	Id        string    `json:"id" db:"id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

type User struct {
	Id       string `json:"id" db:"id"`
	Email    string `json:"email" db:"email"`
	PassHash []byte `json:"-" db:"pass_hash"`
}
