package models

// Role determines which ledger operations a user may perform.
type Role string

const (
	RoleWholesaler  Role = "wholesaler"
	RoleFarmer      Role = "farmer"
	RoleDeliveryMan Role = "deliveryMan"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleWholesaler, RoleFarmer, RoleDeliveryMan:
		return true
	}
	return false
}

// User represents an account. Farmer and delivery accounts are gated by a
// role-specific secret code at registration. Password and SecretCode must be
// blanked before a record leaves the API; the store needs them serialized.
type User struct {
	Username   string `json:"username" validate:"required,min=3,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password,omitempty" validate:"required,min=6"`
	Role       Role   `json:"role" validate:"required"`
	SecretCode string `json:"secret_code,omitempty"`
}

// Sanitized returns a copy safe to return from the API.
func (u User) Sanitized() User {
	u.Password = ""
	u.SecretCode = ""
	return u
}
