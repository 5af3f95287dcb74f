package models

import "time"

// CartItem is a product snapshot plus the buyer's quantity. Product fields are
// copied by value at add time, so later catalog edits or deletes never change
// what the buyer sees in the cart or in an order snapshot.
type CartItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Image     string    `json:"image"`
	Quantity  int       `json:"quantity"`
	Username  string    `json:"username"`
	IsDeleted bool      `json:"is_deleted"`
	AddedAt   time.Time `json:"added_at"`
}

// Live reports whether the item is visible to its owner (not tombstoned).
func (i CartItem) Live(username string) bool {
	return !i.IsDeleted && i.Username == username
}

// LineTotal is the item's contribution to an order total.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}
