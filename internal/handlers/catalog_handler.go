package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/middleware"
	"agromart/internal/models"
	"agromart/internal/services"
)

// CatalogHandler handles HTTP requests for the product catalog.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers the catalog routes. Mutations are farmer-only.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/mine", middleware.RoleRequired(string(models.RoleFarmer)), h.HandleListOwnProducts)
	productRoutes.Post("/", middleware.RoleRequired(string(models.RoleFarmer)), h.HandleAddProduct)
	productRoutes.Put("/:id", middleware.RoleRequired(string(models.RoleFarmer)), h.HandleEditProduct)
	productRoutes.Delete("/:id", middleware.RoleRequired(string(models.RoleFarmer)), h.HandleDeleteProduct)
}

// HandleListProducts returns the whole catalog.
func (h *CatalogHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.List()
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return fail(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleListOwnProducts returns the calling farmer's products.
func (h *CatalogHandler) HandleListOwnProducts(c *fiber.Ctx) error {
	products, err := h.service.ListByOwner(currentUsername(c))
	if err != nil {
		log.Printf("Error listing own products: %v", err)
		return fail(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleAddProduct creates a new product owned by the calling farmer.
func (h *CatalogHandler) HandleAddProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		log.Printf("Error parsing product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	created, err := h.service.AddProduct(product, currentUsername(c))
	if err != nil {
		log.Printf("Error adding product: %v", err)
		return fail(c, "Could not add product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleEditProduct merges patch fields into an existing product.
func (h *CatalogHandler) HandleEditProduct(c *fiber.Ctx) error {
	var patch models.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		log.Printf("Error parsing product patch body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	updated, err := h.service.EditProduct(c.Params("id"), patch)
	if err != nil {
		log.Printf("Error editing product %s: %v", c.Params("id"), err)
		return fail(c, "Could not edit product", err)
	}
	return c.JSON(updated)
}

// HandleDeleteProduct removes a product from the catalog.
func (h *CatalogHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(id); err != nil {
		log.Printf("Error deleting product %s: %v", id, err)
		return fail(c, "Could not delete product", err)
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
	})
}
