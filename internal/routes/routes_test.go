package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/testutil"
)

type APISuite struct {
	suite.Suite

	app     *fiber.App
	db      *gorm.DB
	gateway *testutil.FakeGateway
	shirt   testutil.CatalogItem
	token   string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.gateway = testutil.NewFakeGateway()

	cfg := &config.Config{
		JWTSecret:        "test-secret",
		TokenExpires:     time.Hour,
		PaymentCurrency:  "usd",
		GatewayTimeout:   time.Second,
		AdminAPIKey:      "admin-key",
		CORSAllowOrigins: "*",
	}

	s.app = fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.Register(s.app, s.db, cfg, s.gateway)

	s.shirt = testutil.CreateItem(s.T(), s.db, testutil.ItemSpec{
		Slug:  "oxford-shirt",
		Price: "20.00",
		Options: []testutil.OptionSpec{
			{Name: "Size", Values: map[string]string{"M": "0", "L": "2.50"}},
		},
	})
	testutil.CreateCoupon(s.T(), s.db, "FIVE", "5.00")

	status, body := s.request("POST", "/api/auth/register", "", fiber.Map{
		"email":      "Ann@Example.com",
		"password":   "s3cret-pass",
		"first_name": "Ann",
	})
	s.Require().Equal(fiber.StatusCreated, status, body)
	s.token = body["token"].(string)
}

func (s *APISuite) request(method, path, token string, payload any) (int, map[string]any) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var body map[string]any
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func (s *APISuite) adminRequest(method, path string, payload any) (int, map[string]any) {
	raw, err := json.Marshal(payload)
	s.Require().NoError(err)

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", "admin-key")

	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func (s *APISuite) createAddress(addressType string) string {
	status, body := s.request("POST", "/api/addresses", s.token, fiber.Map{
		"street_address": "1 Main St",
		"country":        "US",
		"zip":            "10001",
		"address_type":   addressType,
		"default":        true,
	})
	s.Require().Equal(fiber.StatusCreated, status, body)
	return body["data"].(map[string]any)["id"].(string)
}

func (s *APISuite) addShirt(size string) {
	status, body := s.request("POST", "/api/cart/add", s.token, fiber.Map{
		"slug":       "oxford-shirt",
		"variations": []string{s.shirt.Values[size].String()},
	})
	s.Require().Equal(fiber.StatusOK, status, body)
}

func (s *APISuite) TestRequiresAuthentication() {
	status, body := s.request("GET", "/api/order-summary", "", nil)
	s.Equal(fiber.StatusUnauthorized, status)
	s.Equal(false, body["success"])
}

func (s *APISuite) TestLoginAndUserID() {
	status, body := s.request("POST", "/api/auth/login", "", fiber.Map{"email": "ann@example.com", "password": "s3cret-pass"})
	s.Require().Equal(fiber.StatusOK, status, body)
	token := body["token"].(string)

	status, body = s.request("GET", "/api/user/id", token, nil)
	s.Require().Equal(fiber.StatusOK, status)
	s.NotEmpty(body["data"].(map[string]any)["userID"])

	status, _ = s.request("POST", "/api/auth/login", "", fiber.Map{"email": "ann@example.com", "password": "wrong"})
	s.Equal(fiber.StatusUnauthorized, status)

	status, _ = s.request("POST", "/api/auth/register", "", fiber.Map{"email": "ann@example.com", "password": "another-pass"})
	s.Equal(fiber.StatusConflict, status)
}

func (s *APISuite) TestCatalog() {
	status, body := s.request("GET", "/api/items?limit=5", "", nil)
	s.Require().Equal(fiber.StatusOK, status)
	items := body["data"].([]any)
	s.Require().Len(items, 1)
	s.Equal("20.00", items[0].(map[string]any)["price"])

	status, body = s.request("GET", "/api/items/oxford-shirt", "", nil)
	s.Require().Equal(fiber.StatusOK, status)
	item := body["data"].(map[string]any)
	s.Len(item["options"].([]any), 1)

	status, _ = s.request("GET", "/api/items/missing", "", nil)
	s.Equal(fiber.StatusNotFound, status)
}

func (s *APISuite) TestCartLifecycle() {
	status, body := s.request("GET", "/api/order-summary", s.token, nil)
	s.Equal(fiber.StatusNotFound, status)
	s.Equal(services.ErrNoActiveOrder.Message, body["message"])

	s.addShirt("M")
	s.addShirt("M")
	s.addShirt("L")

	status, body = s.request("GET", "/api/order-summary", s.token, nil)
	s.Require().Equal(fiber.StatusOK, status)
	order := body["data"].(map[string]any)
	s.Len(order["order_items"].([]any), 2)
	s.Equal("62.50", order["total"])

	status, body = s.request("POST", "/api/coupon", s.token, fiber.Map{"code": "FIVE"})
	s.Require().Equal(fiber.StatusOK, status, body)
	_, body = s.request("GET", "/api/order-summary", s.token, nil)
	s.Equal("57.50", body["data"].(map[string]any)["total"])

	status, body = s.request("POST", "/api/cart/subtract", s.token, fiber.Map{
		"slug":       "oxford-shirt",
		"variations": []string{s.shirt.Values["M"].String()},
	})
	s.Require().Equal(fiber.StatusOK, status)
	s.Equal(services.MessageQuantityUpdated, body["message"])

	lineID := order["order_items"].([]any)[1].(map[string]any)["id"].(string)
	status, _ = s.request("DELETE", "/api/order-items/"+lineID, s.token, nil)
	s.Equal(fiber.StatusNoContent, status)
	status, _ = s.request("DELETE", "/api/order-items/"+lineID, s.token, nil)
	s.Equal(fiber.StatusNotFound, status)
}

func (s *APISuite) TestAddToCartErrors() {
	status, body := s.request("POST", "/api/cart/add", s.token, fiber.Map{"slug": "oxford-shirt"})
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal(services.ErrInsufficientOptions.Message, body["message"])

	status, _ = s.request("POST", "/api/cart/add", s.token, fiber.Map{"slug": "missing"})
	s.Equal(fiber.StatusNotFound, status)

	status, _ = s.request("POST", "/api/cart/add", s.token, fiber.Map{"slug": "oxford-shirt", "variations": []string{"nope"}})
	s.Equal(fiber.StatusBadRequest, status)

	status, body = s.request("POST", "/api/cart/subtract", s.token, fiber.Map{"slug": "oxford-shirt"})
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal(services.ErrNoActiveOrder.Message, body["message"])

	status, _ = s.request("POST", "/api/coupon", s.token, fiber.Map{"code": "FIVE"})
	s.Equal(fiber.StatusBadRequest, status)
}

func (s *APISuite) TestCheckoutFlow() {
	billing := s.createAddress("B")
	shipping := s.createAddress("S")
	s.addShirt("L")

	s.gateway.FailStep = testutil.StepCharge
	s.gateway.FailCode = services.GatewayCardDeclined
	status, body := s.request("POST", "/api/checkout", s.token, fiber.Map{
		"stripeToken":             "tok_visa",
		"selectedBillingAddress":  billing,
		"selectedShippingAddress": shipping,
	})
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal("Your card was declined.", body["message"])

	s.gateway.FailStep = ""
	status, body = s.request("POST", "/api/checkout", s.token, fiber.Map{
		"stripeToken":             "tok_visa",
		"selectedBillingAddress":  billing,
		"selectedShippingAddress": shipping,
	})
	s.Require().Equal(fiber.StatusOK, status, body)
	s.Equal("22.50", body["data"].(map[string]any)["total"])
	orderID := body["data"].(map[string]any)["order_id"].(string)

	status, _ = s.request("GET", "/api/order-summary", s.token, nil)
	s.Equal(fiber.StatusNotFound, status)

	_, body = s.request("GET", "/api/payments", s.token, nil)
	payments := body["data"].([]any)
	s.Require().Len(payments, 1)
	s.Equal("22.50", payments[0].(map[string]any)["amount"])

	_, body = s.request("GET", "/api/orders", s.token, nil)
	s.Len(body["data"].([]any), 1)

	status, body = s.request("POST", "/api/refunds", s.token, fiber.Map{
		"order_id": orderID,
		"reason":   "too small",
		"email":    "ann@example.com",
	})
	s.Require().Equal(fiber.StatusCreated, status, body)

	status, body = s.adminRequest("POST", "/api/admin/orders/refund-granted", fiber.Map{"order_ids": []string{orderID}})
	s.Require().Equal(fiber.StatusOK, status, body)
	s.Equal(float64(1), body["data"].(map[string]any)["updated"])

	status, body = s.adminRequest("GET", "/api/admin/stats", nil)
	s.Require().Equal(fiber.StatusOK, status, body)
	stats := body["data"].(map[string]any)
	s.Equal(float64(1), stats["paid_orders"])
	s.Equal("22.50", stats["total_revenue"])
}

func (s *APISuite) TestCheckoutWithoutCart() {
	billing := s.createAddress("billing")
	shipping := s.createAddress("shipping")

	status, body := s.request("POST", "/api/checkout", s.token, fiber.Map{
		"stripeToken":             "tok_visa",
		"selectedBillingAddress":  billing,
		"selectedShippingAddress": shipping,
	})
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal(services.ErrNoActiveOrder.Message, body["message"])
	s.Zero(s.gateway.CallCount())
}

func (s *APISuite) TestAddressBook() {
	first := s.createAddress("billing")
	second := s.createAddress("billing")

	status, body := s.request("GET", "/api/addresses?address_type=billing", s.token, nil)
	s.Require().Equal(fiber.StatusOK, status)
	addresses := body["data"].([]any)
	s.Require().Len(addresses, 2)
	defaults := 0
	for _, a := range addresses {
		if a.(map[string]any)["default"] == true {
			defaults++
			s.Equal(second, a.(map[string]any)["id"])
		}
	}
	s.Equal(1, defaults)

	status, body = s.request("PUT", "/api/addresses/"+first, s.token, fiber.Map{"default": true})
	s.Require().Equal(fiber.StatusOK, status, body)

	var count int64
	s.Require().NoError(s.db.Model(&models.Address{}).Where("is_default = ?", true).Count(&count).Error)
	s.Equal(int64(1), count)

	status, _ = s.request("DELETE", "/api/addresses/"+second, s.token, nil)
	s.Equal(fiber.StatusNoContent, status)

	status, _ = s.request("POST", "/api/addresses", s.token, fiber.Map{"street_address": "x", "country": "US", "zip": "1", "address_type": "home"})
	s.Equal(fiber.StatusBadRequest, status)
}

func (s *APISuite) TestAdminRequiresKey() {
	req := httptest.NewRequest("GET", "/api/admin/stats", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

func TestErrorHandlerRendersJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error { return services.ErrEmptyCart })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, services.ErrEmptyCart.Message, body["message"])
}
