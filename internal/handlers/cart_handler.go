package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/middleware"
	"agromart/internal/models"
	"agromart/internal/services"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	cartService    *services.CartService
	catalogService *services.CatalogService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cartService *services.CartService, catalogService *services.CatalogService) *CartHandler {
	return &CartHandler{
		cartService:    cartService,
		catalogService: catalogService,
	}
}

// RegisterRoutes registers the cart routes. Carts belong to buyers, so the
// whole group is wholesaler-only.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart", middleware.RoleRequired(string(models.RoleWholesaler)))
	cartRoutes.Get("/", h.HandleListCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Post("/items/:id/increase", h.HandleIncreaseQuantity)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// HandleListCart returns the caller's live cart items.
func (h *CartHandler) HandleListCart(c *fiber.Ctx) error {
	items, err := h.cartService.ListActiveCart(currentUsername(c))
	if err != nil {
		log.Printf("Error listing cart: %v", err)
		return fail(c, "Could not retrieve cart", err)
	}
	return c.JSON(items)
}

// AddItemRequest represents the request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// HandleAddItem adds a product snapshot to the caller's cart, merging with an
// existing live entry for the same product.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-to-cart body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	product, err := h.catalogService.GetByID(req.ProductID)
	if err != nil {
		log.Printf("Error resolving product %s: %v", req.ProductID, err)
		return fail(c, "Could not add item to cart", err)
	}

	items, err := h.cartService.AddToCart(*product, req.Quantity, currentUsername(c))
	if err != nil {
		log.Printf("Error adding to cart: %v", err)
		return fail(c, "Could not add item to cart", err)
	}
	return c.Status(fiber.StatusCreated).JSON(items)
}

// HandleIncreaseQuantity increments the quantity of one of the caller's items.
func (h *CartHandler) HandleIncreaseQuantity(c *fiber.Ctx) error {
	item, err := h.cartService.IncreaseQuantity(c.Params("id"), currentUsername(c))
	if err != nil {
		log.Printf("Error increasing quantity for item %s: %v", c.Params("id"), err)
		return fail(c, "Could not increase quantity", err)
	}
	return c.JSON(item)
}

// HandleRemoveItem tombstones one of the caller's cart items.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	if err := h.cartService.RemoveItem(c.Params("id"), currentUsername(c)); err != nil {
		log.Printf("Error removing item %s: %v", c.Params("id"), err)
		return fail(c, "Could not remove item", err)
	}
	return c.JSON(fiber.Map{
		"message": "Item removed from cart",
	})
}

// HandleClearCart tombstones all of the caller's cart items.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.cartService.Clear(currentUsername(c)); err != nil {
		log.Printf("Error clearing cart: %v", err)
		return fail(c, "Could not clear cart", err)
	}
	return c.JSON(fiber.Map{
		"message": "Cart cleared",
	})
}
