package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"agromart/internal/apperr"
	"agromart/internal/models"
	"agromart/internal/storage"
)

// EventPublisher publishes order lifecycle events. Publish failures are
// logged by the service, never returned to the caller.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderService owns the order ledger: creation from a cart snapshot, delivery
// assignment and the status progression up to the PIN-confirmed completion.
type OrderService struct {
	store     storage.Store
	cart      *CartService
	publisher EventPublisher
	mu        sync.Mutex
}

// NewOrderService creates a new OrderService. publisher may be nil, in which
// case events are skipped.
func NewOrderService(store storage.Store, cart *CartService, publisher EventPublisher) *OrderService {
	return &OrderService{store: store, cart: cart, publisher: publisher}
}

func (s *OrderService) loadAll() ([]models.Order, error) {
	var orders []models.Order
	if err := s.store.Get(storage.KeyOrders, &orders); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return orders, nil
}

// PlaceOrder creates an order from the buyer's live cart and clears the cart.
// TotalPrice is computed from the snapshot once and never recomputed. A
// repeated idempotency key returns the order created by the first attempt.
func (s *OrderService) PlaceOrder(info models.BuyerInfo) (*models.Order, error) {
	var missing []string
	if info.Name == "" {
		missing = append(missing, "name")
	}
	if info.Address == "" {
		missing = append(missing, "address")
	}
	if info.Payment == "" {
		missing = append(missing, "payment_code")
	}
	if len(missing) > 0 {
		return nil, apperr.NewValidation(missing...)
	}
	if !info.Payment.Valid() {
		return nil, apperr.NewValidation("payment_code")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadAll()
	if err != nil {
		return nil, err
	}

	// Retried submissions with the same key must not append a duplicate.
	// This runs before any cart inspection: the first attempt already
	// cleared the cart, so a retry would otherwise fail the empty check.
	if info.IdempotencyKey != "" {
		for i := range orders {
			if orders[i].IdempotencyKey == info.IdempotencyKey && orders[i].Username == info.Username {
				return &orders[i], nil
			}
		}
	}

	snapshot, err := s.cart.ListActiveCart(info.Username)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, apperr.NewValidation("cart")
	}

	var total float64
	for _, item := range snapshot {
		total += item.LineTotal()
	}

	now := time.Now()
	order := models.Order{
		Code:           nextOrderCode(orders, now),
		RandomCode:     fmt.Sprintf("%d", 10000+rand.Intn(90000)),
		Name:           info.Name,
		Address:        info.Address,
		Payment:        info.Payment,
		Username:       info.Username,
		Status:         models.StatusPending,
		TotalPrice:     total,
		Cart:           snapshot,
		CreatedAt:      now,
		IdempotencyKey: info.IdempotencyKey,
	}

	orders = append(orders, order)
	if err := s.store.Set(storage.KeyOrders, orders); err != nil {
		return nil, err
	}

	snapshotIDs := make([]string, len(snapshot))
	for i, item := range snapshot {
		snapshotIDs[i] = item.ID
	}
	if err := s.cart.ClearItems(snapshotIDs, info.Username); err != nil {
		log.Printf("Warning: order %s placed but cart clear failed for %s: %v", order.Code, info.Username, err)
	}

	s.publish("order.created", map[string]any{
		"code":     order.Code,
		"username": order.Username,
		"status":   order.Status,
		"total":    order.TotalPrice,
	})
	return &order, nil
}

// AssignDelivery assigns the order to a delivery agent. AssignedTo is
// write-once: an already-assigned order is left untouched and the existing
// assignee is returned.
func (s *OrderService) AssignDelivery(code, deliveryUsername string) (string, error) {
	if deliveryUsername == "" {
		return "", apperr.NewValidation("delivery_username")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadAll()
	if err != nil {
		return "", err
	}

	for i := range orders {
		if orders[i].Code != code {
			continue
		}
		if orders[i].AssignedTo != "" {
			return orders[i].AssignedTo, nil
		}
		orders[i].AssignedTo = deliveryUsername
		if err := s.store.Set(storage.KeyOrders, orders); err != nil {
			return "", err
		}
		s.publish("order.assigned", map[string]any{
			"code":        code,
			"assigned_to": deliveryUsername,
		})
		return deliveryUsername, nil
	}
	return "", apperr.NewNotFound("order", code)
}

// UpdateStatus moves the order to next. Transitions must be strictly forward;
// Completed is rejected here and only reachable through ConfirmCompletion.
func (s *OrderService) UpdateStatus(code string, next models.OrderStatus) error {
	if !next.Valid() {
		return apperr.NewValidation("status")
	}
	if next == models.StatusCompleted {
		return &apperr.AuthorizationError{Reason: "completion requires confirmation code"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadAll()
	if err != nil {
		return err
	}

	for i := range orders {
		if orders[i].Code != code {
			continue
		}
		if !orders[i].Status.CanTransition(next) {
			return apperr.NewValidation("status")
		}
		orders[i].Status = next
		if err := s.store.Set(storage.KeyOrders, orders); err != nil {
			return err
		}
		s.publish("order.status_updated", map[string]any{
			"code":   code,
			"status": next,
		})
		return nil
	}
	return apperr.NewNotFound("order", code)
}

// ConfirmCompletion completes the order if suppliedCode matches its random
// code. The code is communicated out of band, so a match proves the agent
// actually reached the recipient.
func (s *OrderService) ConfirmCompletion(code, suppliedCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadAll()
	if err != nil {
		return err
	}

	for i := range orders {
		if orders[i].Code != code {
			continue
		}
		if suppliedCode != orders[i].RandomCode {
			return &apperr.InvalidCodeError{OrderCode: code}
		}
		orders[i].Status = models.StatusCompleted
		if err := s.store.Set(storage.KeyOrders, orders); err != nil {
			return err
		}
		s.publish("order.completed", map[string]any{
			"code":        code,
			"assigned_to": orders[i].AssignedTo,
		})
		return nil
	}
	return apperr.NewNotFound("order", code)
}

// GetByCode returns a single order.
func (s *OrderService) GetByCode(code string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].Code == code {
			return &orders[i], nil
		}
	}
	return nil, apperr.NewNotFound("order", code)
}

// ListForBuyer returns the buyer's orders.
func (s *OrderService) ListForBuyer(username string) ([]models.Order, error) {
	return s.filter(func(o models.Order) bool { return o.Username == username })
}

// ListForDeliveryAgent returns orders assigned to the agent.
func (s *OrderService) ListForDeliveryAgent(username string) ([]models.Order, error) {
	return s.filter(func(o models.Order) bool { return o.AssignedTo == username })
}

// ListUnassigned returns orders awaiting a delivery agent.
func (s *OrderService) ListUnassigned() ([]models.Order, error) {
	return s.filter(func(o models.Order) bool { return o.AssignedTo == "" })
}

func (s *OrderService) filter(keep func(models.Order) bool) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	matched := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if keep(o) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

// nextOrderCode derives a code from the creation timestamp, bumping the
// millisecond count past any existing code so two checkouts in the same
// millisecond never collide.
func nextOrderCode(orders []models.Order, now time.Time) string {
	millis := now.UnixMilli()
	for {
		code := fmt.Sprintf("ORD-%d", millis)
		taken := false
		for i := range orders {
			if orders[i].Code == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
		millis++
	}
}

func (s *OrderService) publish(routingKey string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := s.publisher.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
