package models

import (
	"strings"

	"github.com/google/uuid"
)

// AddressType distinguishes billing from shipping addresses.
type AddressType string

const (
	AddressTypeBilling  AddressType = "billing"
	AddressTypeShipping AddressType = "shipping"
)

// ParseAddressType accepts the long names and the B/S short codes.
func ParseAddressType(value string) (AddressType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "billing", "b":
		return AddressTypeBilling, true
	case "shipping", "s":
		return AddressTypeShipping, true
	}
	return "", false
}

// Address is an entry of a user's address book. At most one address per
// (user, address_type) may be the default; the partial unique index enforces it.
type Address struct {
	BaseModel
	UserID           uuid.UUID   `gorm:"type:uuid;index;uniqueIndex:idx_addresses_one_default,where:is_default = true" json:"user_id"`
	StreetAddress    string      `json:"street_address"`
	ApartmentAddress string      `json:"apartment_address"`
	Country          string      `json:"country"`
	Zip              string      `json:"zip"`
	AddressType      AddressType `gorm:"type:varchar(16);uniqueIndex:idx_addresses_one_default,where:is_default = true" json:"address_type"`
	Default          bool        `gorm:"column:is_default" json:"default"`
}
