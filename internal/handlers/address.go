package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// AddressHandler manages the caller's address book.
type AddressHandler struct {
	addresses *services.AddressService
}

// NewAddressHandler constructs AddressHandler.
func NewAddressHandler(addresses *services.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

// ListAddresses returns the caller's addresses, optionally filtered by
// ?address_type=billing|shipping|B|S.
func (h *AddressHandler) ListAddresses(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	addresses, err := h.addresses.ListAddresses(c.UserContext(), userID, c.Query("address_type"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type createAddressRequest struct {
	StreetAddress    string `json:"street_address"`
	ApartmentAddress string `json:"apartment_address"`
	Country          string `json:"country"`
	Zip              string `json:"zip"`
	AddressType      string `json:"address_type"`
	Default          bool   `json:"default"`
}

// CreateAddress creates an address for the caller.
func (h *AddressHandler) CreateAddress(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createAddressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	address, err := h.addresses.CreateAddress(c.UserContext(), userID, services.AddressInput{
		StreetAddress:    req.StreetAddress,
		ApartmentAddress: req.ApartmentAddress,
		Country:          req.Country,
		Zip:              req.Zip,
		AddressType:      req.AddressType,
		Default:          req.Default,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

type updateAddressRequest struct {
	StreetAddress    *string `json:"street_address"`
	ApartmentAddress *string `json:"apartment_address"`
	Country          *string `json:"country"`
	Zip              *string `json:"zip"`
	AddressType      *string `json:"address_type"`
	Default          *bool   `json:"default"`
}

// UpdateAddress updates one of the caller's addresses.
func (h *AddressHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req updateAddressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	address, err := h.addresses.UpdateAddress(c.UserContext(), userID, id, services.AddressUpdate{
		StreetAddress:    req.StreetAddress,
		ApartmentAddress: req.ApartmentAddress,
		Country:          req.Country,
		Zip:              req.Zip,
		AddressType:      req.AddressType,
		Default:          req.Default,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress deletes one of the caller's addresses.
func (h *AddressHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := h.addresses.DeleteAddress(c.UserContext(), userID, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
