package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"agromart/internal/apperr"
	"agromart/internal/models"
	"agromart/internal/storage"
)

// CartService owns the cart ledger. The stored cart is append-only: removal
// tombstones an entry instead of erasing it, so the list never shrinks.
type CartService struct {
	store storage.Store
	mu    sync.Mutex
}

// NewCartService creates a new CartService.
func NewCartService(store storage.Store) *CartService {
	return &CartService{store: store}
}

// loadAll reads the full cart ledger. An absent key means an empty ledger.
func (s *CartService) loadAll() ([]models.CartItem, error) {
	var items []models.CartItem
	if err := s.store.Get(storage.KeyCart, &items); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

// AddToCart adds quantity of product to username's cart. If the user already
// has a live entry for the product, its quantity is incremented; otherwise a
// new entry is appended. Returns the user's live cart after the change.
func (s *CartService) AddToCart(product models.Product, quantity int, username string) ([]models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.NewValidation("quantity")
	}
	if username == "" {
		return nil, apperr.NewValidation("username")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadAll()
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range items {
		if items[i].ProductID == product.ID && items[i].Live(username) {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, models.CartItem{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  quantity,
			Username:  username,
			AddedAt:   time.Now(),
		})
	}

	if err := s.store.Set(storage.KeyCart, items); err != nil {
		return nil, err
	}
	return activeFor(items, username), nil
}

// IncreaseQuantity increments the quantity of the caller's live item by one.
func (s *CartService) IncreaseQuantity(itemID, username string) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadAll()
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].ID == itemID && items[i].Live(username) {
			items[i].Quantity++
			if err := s.store.Set(storage.KeyCart, items); err != nil {
				return nil, err
			}
			item := items[i]
			return &item, nil
		}
	}
	return nil, apperr.NewNotFound("cart item", itemID)
}

// RemoveItem tombstones the caller's live item. The entry stays in storage
// with IsDeleted set, it is never physically erased.
func (s *CartService) RemoveItem(itemID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadAll()
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].ID == itemID && items[i].Live(username) {
			items[i].IsDeleted = true
			return s.store.Set(storage.KeyCart, items)
		}
	}
	return apperr.NewNotFound("cart item", itemID)
}

// ListActiveCart returns the user's live items in insertion order.
func (s *CartService) ListActiveCart(username string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	return activeFor(items, username), nil
}

// Clear tombstones all of the user's live items. Other users' entries are
// untouched; the stored blob is shared across accounts.
func (s *CartService) Clear(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadAll()
	if err != nil {
		return err
	}

	changed := false
	for i := range items {
		if items[i].Live(username) {
			items[i].IsDeleted = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.store.Set(storage.KeyCart, items)
}

// ClearItems tombstones exactly the given live items of the user. Checkout
// uses this with the ordered snapshot's IDs, so items added between snapshot
// and clear stay live instead of vanishing without ever reaching an order.
func (s *CartService) ClearItems(itemIDs []string, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadAll()
	if err != nil {
		return err
	}

	ids := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		ids[id] = true
	}

	changed := false
	for i := range items {
		if ids[items[i].ID] && items[i].Live(username) {
			items[i].IsDeleted = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.store.Set(storage.KeyCart, items)
}

func activeFor(items []models.CartItem, username string) []models.CartItem {
	active := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Live(username) {
			active = append(active, item)
		}
	}
	return active
}
