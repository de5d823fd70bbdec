package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

// AdminHandler manages operator endpoints.
type AdminHandler struct {
	db     *gorm.DB
	orders *services.OrderService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, orders *services.OrderService) *AdminHandler {
	return &AdminHandler{db: db, orders: orders}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var paidOrders int64
	if err := h.db.Model(&models.Order{}).Where("ordered = ?", true).Count(&paidOrders).Error; err != nil {
		return err
	}

	var activeCarts int64
	if err := h.db.Model(&models.Order{}).Where("ordered = ?", false).Count(&activeCarts).Error; err != nil {
		return err
	}

	var refundRequests int64
	if err := h.db.Model(&models.Order{}).Where("refund_requested = ?", true).Count(&refundRequests).Error; err != nil {
		return err
	}

	revenue := decimal.Zero
	if err := h.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&revenue); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":     totalUsers,
			"paid_orders":     paidOrders,
			"active_carts":    activeCarts,
			"refund_requests": refundRequests,
			"total_revenue":   revenue.StringFixed(2),
		},
	})
}

type fulfillmentRequest struct {
	OrderIDs []string `json:"order_ids"`
}

// ApplyFulfillment runs a bulk action (refund-granted, being-delivered,
// received) on the listed finalized orders.
func (h *AdminHandler) ApplyFulfillment(c *fiber.Ctx) error {
	var req fulfillmentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ids, err := parseUUIDs(req.OrderIDs, "order_ids")
	if err != nil {
		return err
	}

	updated, err := h.orders.ApplyFulfillment(c.UserContext(), services.FulfillmentAction(c.Params("action")), ids)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"updated": updated}})
}
