package models

// Product represents a catalog entry managed by a farmer.
type Product struct {
	ID          string  `json:"id" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description string  `json:"description" validate:"required,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Image       string  `json:"image" validate:"required"`
	Owner       string  `json:"owner"`
}

// ProductPatch carries the fields EditProduct may change. Zero values are
// treated as "leave unchanged".
type ProductPatch struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Image       string  `json:"image"`
}
