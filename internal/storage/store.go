// Package storage provides the durable key-value store the ledgers persist
// through. Values are JSON-encoded blobs keyed by string; the ledgers own all
// entity semantics and use only Get/Set/Remove.
package storage

// Store is a generic persistent key-value store.
type Store interface {
	// Get decodes the value at key into out. It returns a NotFoundError
	// when the key is absent.
	Get(key string, out any) error
	// Set encodes value and upserts it at key.
	Set(key string, value any) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
}

// Well-known store keys shared by the ledgers.
const (
	KeyCart     = "cart"
	KeyOrders   = "orders"
	KeyProducts = "products"
	KeyUsers    = "usersData"
)
