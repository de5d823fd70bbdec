package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// CartHandler exposes add, subtract and delete operations on the active order.
type CartHandler struct {
	cart *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(cart *services.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type cartRequest struct {
	Slug       string   `json:"slug"`
	Variations []string `json:"variations"`
}

// AddToCart adds one unit of an item with the selected option values.
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req cartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
	}

	optionIDs, err := parseUUIDs(req.Variations, "variations")
	if err != nil {
		return err
	}

	line, err := h.cart.AddToCart(c.UserContext(), userID, services.AddToCartInput{
		Slug:           req.Slug,
		OptionValueIDs: optionIDs,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":       line.ID,
			"quantity": line.Quantity,
		},
	})
}

// SubtractFromCart removes one unit of an item from the active order.
func (h *CartHandler) SubtractFromCart(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req cartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid data")
	}

	optionIDs, err := parseUUIDs(req.Variations, "variations")
	if err != nil {
		return err
	}

	message, err := h.cart.SubtractFromCart(c.UserContext(), userID, services.SubtractInput{
		Slug:           req.Slug,
		OptionValueIDs: optionIDs,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": message})
}

// DeleteOrderItem removes a whole line from the active order.
func (h *CartHandler) DeleteOrderItem(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := h.cart.DeleteOrderItem(c.UserContext(), userID, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
