package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/services"
)

// CheckoutHandler charges and finalizes the active order.
type CheckoutHandler struct {
	checkout *services.CheckoutService
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequest struct {
	StripeToken             string `json:"stripeToken"`
	SelectedBillingAddress  string `json:"selectedBillingAddress"`
	SelectedShippingAddress string `json:"selectedShippingAddress"`
}

// Checkout charges the caller's active order.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	billingID, err := uuid.Parse(req.SelectedBillingAddress)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid billing address")
	}
	shippingID, err := uuid.Parse(req.SelectedShippingAddress)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid shipping address")
	}

	order, err := h.checkout.Checkout(c.UserContext(), userID, services.CheckoutInput{
		Token:             req.StripeToken,
		BillingAddressID:  billingID,
		ShippingAddressID: shippingID,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id": order.ID,
			"total":    order.Total().StringFixed(2),
		},
	})
}
