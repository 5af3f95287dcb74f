package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"agromart/internal/handlers"
	"agromart/internal/middleware"
	"agromart/internal/models"
	"agromart/internal/services"
	"agromart/internal/storage"
)

var dbSeq atomic.Int64

// setupApp builds a Fiber app over an in-memory sqlite store with all
// handlers and services wired, mirroring main.go. Each call gets its own
// named shared-cache database so tests stay isolated.
func setupApp() (*fiber.App, error) {
	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}
	store, err := storage.NewGormStore(db, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	authService := services.NewAuthService(store, "test_jwt_secret")
	catalogService := services.NewCatalogService(store)
	cartService := services.NewCartService(store)
	orderService := services.NewOrderService(store, cartService, nil)

	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService, catalogService)
	orderHandler := handlers.NewOrderHandler(orderService, authService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	catalogHandler.RegisterRoutes(protected)
	cartHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)

	return app, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, path, reader)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		assert.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func doJSONList(t *testing.T, app *fiber.App, method, path, token string) (*http.Response, []map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, path, nil)
	assert.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	resp.Body.Close()

	var decoded []map[string]any
	assert.NoError(t, json.Unmarshal(raw, &decoded))
	return resp, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, username, role, secretCode string) string {
	t.Helper()

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":    username,
		"email":       username + "@example.com",
		"password":    "password123",
		"role":        role,
		"secret_code": secretCode,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"username": username,
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

func TestAuthFlow(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)

	// Farmer registration with a bad secret code is rejected.
	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":    "frank",
		"email":       "frank@example.com",
		"password":    "password123",
		"role":        "farmer",
		"secret_code": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	token := registerAndLogin(t, app, "frank", "farmer", "farmer001")
	assert.NotEmpty(t, token)

	// Duplicate username conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":    "frank",
		"email":       "frank2@example.com",
		"password":    "password123",
		"role":        "farmer",
		"secret_code": "farmer001",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Protected routes without a token are unauthorized.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOrderLifecycle(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)

	farmerToken := registerAndLogin(t, app, "frank", "farmer", "farmer001")
	buyerToken := registerAndLogin(t, app, "alice", "wholesaler", "")
	deliveryToken := registerAndLogin(t, app, "bob", "deliveryMan", "delivery001")

	// Farmer creates a product; buyers may not.
	resp, product := doJSON(t, app, http.MethodPost, "/api/v1/products", farmerToken, map[string]any{
		"name":        "Tomatoes",
		"description": "fresh from the field",
		"price":       10.0,
		"quantity":    100,
		"image":       "https://example.com/t.png",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	productID, _ := product["id"].(string)
	assert.NotEmpty(t, productID)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/products", buyerToken, map[string]any{
		"name": "Contraband",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Carts are buyer-side: other roles cannot touch them.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", farmerToken, map[string]any{
		"product_id": productID,
		"quantity":   1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/cart", deliveryToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Buyer adds the product twice; the entries merge.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", buyerToken, map[string]any{
		"product_id": productID,
		"quantity":   2,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", buyerToken, map[string]any{
		"product_id": productID,
		"quantity":   3,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, cartItems := doJSONList(t, app, http.MethodGet, "/api/v1/cart", buyerToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, cartItems, 1)
	assert.Equal(t, float64(5), cartItems[0]["quantity"])

	// Placing an order without the form fields fails.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders", buyerToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Checkout freezes the total at 5 * 10.0.
	resp, order := doJSON(t, app, http.MethodPost, "/api/v1/orders", buyerToken, map[string]any{
		"name":         "Alice Smith",
		"address":      "12 Market Road",
		"payment_code": "COD",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	orderCode, _ := order["code"].(string)
	assert.NotEmpty(t, orderCode)
	assert.Equal(t, float64(50), order["total_price"])

	resp, cartItems = doJSONList(t, app, http.MethodGet, "/api/v1/cart", buyerToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, cartItems)

	// Farmer sees the unassigned order and assigns bob; carol is a no-op.
	resp, unassigned := doJSONList(t, app, http.MethodGet, "/api/v1/orders/unassigned", farmerToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, unassigned, 1)

	resp, assignBody := doJSON(t, app, http.MethodPost, "/api/v1/orders/"+orderCode+"/assign", farmerToken, map[string]any{
		"delivery_username": "bob",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bob", assignBody["assigned_to"])

	resp, assignBody = doJSON(t, app, http.MethodPost, "/api/v1/orders/"+orderCode+"/assign", farmerToken, map[string]any{
		"delivery_username": "carol",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bob", assignBody["assigned_to"])

	// Delivery agent sees the order and moves it forward.
	resp, assigned := doJSONList(t, app, http.MethodGet, "/api/v1/orders/assigned", deliveryToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, assigned, 1)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+orderCode+"/status", deliveryToken, map[string]any{
		"status": "Packed",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+orderCode+"/status", deliveryToken, map[string]any{
		"status": "Out for Delivery",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Direct completion is forbidden without the PIN handshake.
	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+orderCode+"/status", deliveryToken, map[string]any{
		"status": "Completed",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Wrong PIN fails, correct PIN completes.
	resp, fetched := doJSON(t, app, http.MethodGet, "/api/v1/orders/"+orderCode, buyerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	pin, _ := fetched["random_code"].(string)
	assert.Len(t, pin, 5)

	wrong := "00000"
	if pin == wrong {
		wrong = "99999"
	}
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/"+orderCode+"/confirm", deliveryToken, map[string]any{
		"code": wrong,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/"+orderCode+"/confirm", deliveryToken, map[string]any{
		"code": pin,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, fetched = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+orderCode, buyerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusCompleted), fetched["status"])
}

func TestCatalogEndpoints(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)

	farmerToken := registerAndLogin(t, app, "frank", "farmer", "farmer002")

	resp, product := doJSON(t, app, http.MethodPost, "/api/v1/products", farmerToken, map[string]any{
		"name":        "Carrots",
		"description": "crunchy",
		"price":       3.5,
		"quantity":    40,
		"image":       "https://example.com/c.png",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	productID, _ := product["id"].(string)

	// Missing fields are listed in the validation failure.
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/products", farmerToken, map[string]any{
		"name": "Nameless",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "price")

	resp, updated := doJSON(t, app, http.MethodPut, "/api/v1/products/"+productID, farmerToken, map[string]any{
		"price": 4.0,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), updated["price"])
	assert.Equal(t, "Carrots", updated["name"])

	resp, mine := doJSONList(t, app, http.MethodGet, "/api/v1/products/mine", farmerToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, mine, 1)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/products/"+productID, farmerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/products/"+productID, farmerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
