package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/middleware"
	"agromart/internal/models"
	"agromart/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *services.OrderService
	authService  *services.AuthService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *services.OrderService, authService *services.AuthService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		authService:  authService,
	}
}

// RegisterRoutes registers the order routes. Placement is buyer-side,
// assignment is farmer-side, status progression is delivery-side.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", middleware.RoleRequired(string(models.RoleWholesaler)), h.HandlePlaceOrder)
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/unassigned", middleware.RoleRequired(string(models.RoleFarmer)), h.HandleListUnassigned)
	orderRoutes.Get("/assigned", middleware.RoleRequired(string(models.RoleDeliveryMan)), h.HandleListAssigned)
	orderRoutes.Get("/:code", h.HandleGetOrder)
	orderRoutes.Post("/:code/assign", middleware.RoleRequired(string(models.RoleFarmer)), h.HandleAssignDelivery)
	orderRoutes.Patch("/:code/status", middleware.RoleRequired(string(models.RoleDeliveryMan)), h.HandleUpdateStatus)
	orderRoutes.Post("/:code/confirm", middleware.RoleRequired(string(models.RoleDeliveryMan)), h.HandleConfirmCompletion)

	router.Get("/users/delivery-agents", middleware.RoleRequired(string(models.RoleFarmer)), h.HandleListDeliveryAgents)
}

// HandlePlaceOrder checks out the caller's cart into a new order.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	var info models.BuyerInfo
	if err := c.BodyParser(&info); err != nil {
		log.Printf("Error parsing place-order body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	info.Username = currentUsername(c)

	order, err := h.orderService.PlaceOrder(info)
	if err != nil {
		log.Printf("Error placing order for %s: %v", info.Username, err)
		return fail(c, "Could not place order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleListOrders returns the caller's own orders.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.orderService.ListForBuyer(currentUsername(c))
	if err != nil {
		log.Printf("Error listing orders: %v", err)
		return fail(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleListUnassigned returns orders without a delivery agent.
func (h *OrderHandler) HandleListUnassigned(c *fiber.Ctx) error {
	orders, err := h.orderService.ListUnassigned()
	if err != nil {
		log.Printf("Error listing unassigned orders: %v", err)
		return fail(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleListAssigned returns orders assigned to the calling delivery agent.
func (h *OrderHandler) HandleListAssigned(c *fiber.Ctx) error {
	orders, err := h.orderService.ListForDeliveryAgent(currentUsername(c))
	if err != nil {
		log.Printf("Error listing assigned orders: %v", err)
		return fail(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrder returns a single order by code.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.orderService.GetByCode(c.Params("code"))
	if err != nil {
		log.Printf("Error getting order %s: %v", c.Params("code"), err)
		return fail(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// AssignRequest represents the request body for delivery assignment.
type AssignRequest struct {
	DeliveryUsername string `json:"delivery_username"`
}

// HandleAssignDelivery assigns a delivery agent to an order. Assignment is
// write-once; repeating it reports the original assignee.
func (h *OrderHandler) HandleAssignDelivery(c *fiber.Ctx) error {
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing assign body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	assignee, err := h.orderService.AssignDelivery(c.Params("code"), req.DeliveryUsername)
	if err != nil {
		log.Printf("Error assigning order %s: %v", c.Params("code"), err)
		return fail(c, "Could not assign delivery", err)
	}
	return c.JSON(fiber.Map{
		"message":     "Order assigned",
		"assigned_to": assignee,
	})
}

// StatusUpdateRequest represents the request body for a status update.
type StatusUpdateRequest struct {
	Status models.OrderStatus `json:"status"`
}

// HandleUpdateStatus moves an order forward through its status progression.
func (h *OrderHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	var req StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing status update body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required for order status update.",
		})
	}

	if err := h.orderService.UpdateStatus(c.Params("code"), req.Status); err != nil {
		log.Printf("Error updating status for order %s: %v", c.Params("code"), err)
		return fail(c, "Could not update order status", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"status":  req.Status,
	})
}

// ConfirmRequest represents the request body for the completion handshake.
type ConfirmRequest struct {
	Code string `json:"code"`
}

// HandleConfirmCompletion completes an order when the supplied PIN matches.
func (h *OrderHandler) HandleConfirmCompletion(c *fiber.Ctx) error {
	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing confirm body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.orderService.ConfirmCompletion(c.Params("code"), req.Code); err != nil {
		log.Printf("Error confirming order %s: %v", c.Params("code"), err)
		return fail(c, "Could not confirm completion", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order completed",
	})
}

// HandleListDeliveryAgents returns registered delivery agents for assignment.
func (h *OrderHandler) HandleListDeliveryAgents(c *fiber.Ctx) error {
	agents, err := h.authService.ListDeliveryAgents()
	if err != nil {
		log.Printf("Error listing delivery agents: %v", err)
		return fail(c, "Could not retrieve delivery agents", err)
	}
	sanitized := make([]models.User, 0, len(agents))
	for _, agent := range agents {
		sanitized = append(sanitized, agent.Sanitized())
	}
	return c.JSON(sanitized)
}
