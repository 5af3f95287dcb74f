package models

import "time"

// OrderStatus is the delivery progression of an order.
type OrderStatus string

const (
	StatusPending        OrderStatus = "Pending"
	StatusPacked         OrderStatus = "Packed"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusCompleted      OrderStatus = "Completed"
)

var statusRank = map[OrderStatus]int{
	StatusPending:        0,
	StatusPacked:         1,
	StatusOutForDelivery: 2,
	StatusCompleted:      3,
}

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether the status may move to next. Transitions are
// strictly forward; skipping intermediate states is allowed.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// PaymentMethod is how the buyer pays for an order.
type PaymentMethod string

const (
	PaymentCOD        PaymentMethod = "COD"
	PaymentCreditCard PaymentMethod = "Credit Card"
	PaymentDebitCard  PaymentMethod = "Debit Card"
)

// Valid reports whether p is a known payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCOD, PaymentCreditCard, PaymentDebitCard:
		return true
	}
	return false
}

// Order is a checkout of a cart snapshot. TotalPrice is frozen at creation and
// never recomputed from the live cart. AssignedTo is write-once.
type Order struct {
	Code           string        `json:"code"`
	RandomCode     string        `json:"random_code"`
	Name           string        `json:"name"`
	Address        string        `json:"address"`
	Payment        PaymentMethod `json:"payment_code"`
	Username       string        `json:"username"`
	Status         OrderStatus   `json:"status"`
	TotalPrice     float64       `json:"total_price"`
	Cart           []CartItem    `json:"cart"`
	CreatedAt      time.Time     `json:"created_at"`
	AssignedTo     string        `json:"assigned_to,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

// BuyerInfo is the checkout form accompanying a placed order.
type BuyerInfo struct {
	Name           string        `json:"name" validate:"required"`
	Address        string        `json:"address" validate:"required"`
	Payment        PaymentMethod `json:"payment_code" validate:"required"`
	Username       string        `json:"username"`
	IdempotencyKey string        `json:"idempotency_key"`
}
