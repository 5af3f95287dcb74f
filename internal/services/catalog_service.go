package services

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"agromart/internal/apperr"
	"agromart/internal/models"
	"agromart/internal/storage"
)

// CatalogService owns the product catalog. Unlike the cart ledger, deletes
// here are physical: cart and order entries keep their own product snapshots,
// so removing a product never cascades.
type CatalogService struct {
	store storage.Store
	mu    sync.Mutex
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store storage.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) loadAll() ([]models.Product, error) {
	var products []models.Product
	if err := s.store.Get(storage.KeyProducts, &products); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return products, nil
}

// AddProduct validates and appends a new product owned by owner.
func (s *CatalogService) AddProduct(product models.Product, owner string) (*models.Product, error) {
	var missing []string
	if product.Name == "" {
		missing = append(missing, "name")
	}
	if product.Quantity <= 0 {
		missing = append(missing, "quantity")
	}
	if product.Price <= 0 {
		missing = append(missing, "price")
	}
	if product.Description == "" {
		missing = append(missing, "description")
	}
	if product.Image == "" {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return nil, apperr.NewValidation(missing...)
	}

	product.ID = uuid.New().String()
	product.Owner = owner

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	products = append(products, product)
	if err := s.store.Set(storage.KeyProducts, products); err != nil {
		return nil, err
	}
	return &product, nil
}

// EditProduct merges the non-zero patch fields into the matching product.
func (s *CatalogService) EditProduct(id string, patch models.ProductPatch) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadAll()
	if err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].ID != id {
			continue
		}
		if patch.Name != "" {
			products[i].Name = patch.Name
		}
		if patch.Description != "" {
			products[i].Description = patch.Description
		}
		if patch.Price > 0 {
			products[i].Price = patch.Price
		}
		if patch.Quantity > 0 {
			products[i].Quantity = patch.Quantity
		}
		if patch.Image != "" {
			products[i].Image = patch.Image
		}
		if err := s.store.Set(storage.KeyProducts, products); err != nil {
			return nil, err
		}
		product := products[i]
		return &product, nil
	}
	return nil, apperr.NewNotFound("product", id)
}

// DeleteProduct physically removes the product.
func (s *CatalogService) DeleteProduct(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadAll()
	if err != nil {
		return err
	}

	for i := range products {
		if products[i].ID == id {
			products = append(products[:i], products[i+1:]...)
			return s.store.Set(storage.KeyProducts, products)
		}
	}
	return apperr.NewNotFound("product", id)
}

// GetByID returns a single product.
func (s *CatalogService) GetByID(id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, apperr.NewNotFound("product", id)
}

// List returns all products in storage order.
func (s *CatalogService) List() ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAll()
}

// ListByOwner returns the products created by owner.
func (s *CatalogService) ListByOwner(owner string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	owned := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Owner == owner {
			owned = append(owned, p)
		}
	}
	return owned, nil
}
