package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

// AddressService manages the address book and keeps at most one default
// address per user and address type.
type AddressService struct {
	db *gorm.DB
}

// NewAddressService constructs AddressService.
func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// AddressInput holds the fields of a new address.
type AddressInput struct {
	StreetAddress    string
	ApartmentAddress string
	Country          string
	Zip              string
	AddressType      string
	Default          bool
}

// AddressUpdate holds the fields to change on an address. Nil fields are
// left as they are.
type AddressUpdate struct {
	StreetAddress    *string
	ApartmentAddress *string
	Country          *string
	Zip              *string
	AddressType      *string
	Default          *bool
}

// ListAddresses returns the user's addresses, optionally filtered by type.
func (s *AddressService) ListAddresses(ctx context.Context, userID uuid.UUID, addressType string) ([]models.Address, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if addressType != "" {
		t, ok := models.ParseAddressType(addressType)
		if !ok {
			return nil, validationError("address_type must be billing or shipping")
		}
		query = query.Where("address_type = ?", t)
	}

	var addresses []models.Address
	if err := query.Order("created_at").Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// CreateAddress saves a new address. A default address demotes the previous
// default of the same type.
func (s *AddressService) CreateAddress(ctx context.Context, userID uuid.UUID, in AddressInput) (*models.Address, error) {
	addressType, ok := models.ParseAddressType(in.AddressType)
	if !ok {
		return nil, validationError("address_type must be billing or shipping")
	}

	address := models.Address{
		UserID:           userID,
		StreetAddress:    strings.TrimSpace(in.StreetAddress),
		ApartmentAddress: strings.TrimSpace(in.ApartmentAddress),
		Country:          strings.TrimSpace(in.Country),
		Zip:              strings.TrimSpace(in.Zip),
		AddressType:      addressType,
		Default:          in.Default,
	}
	if err := validateAddress(&address); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, userID); err != nil {
			return err
		}
		if address.Default {
			if err := demoteDefaults(tx, userID, addressType, uuid.Nil); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// UpdateAddress changes one of the user's addresses. Promoting it to default
// demotes the other default of the address's (possibly new) type.
func (s *AddressService) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, in AddressUpdate) (*models.Address, error) {
	var address models.Address
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, userID); err != nil {
			return err
		}

		found, err := findUserAddress(tx, userID, addressID)
		if err != nil {
			return err
		}
		address = *found

		if in.StreetAddress != nil {
			address.StreetAddress = strings.TrimSpace(*in.StreetAddress)
		}
		if in.ApartmentAddress != nil {
			address.ApartmentAddress = strings.TrimSpace(*in.ApartmentAddress)
		}
		if in.Country != nil {
			address.Country = strings.TrimSpace(*in.Country)
		}
		if in.Zip != nil {
			address.Zip = strings.TrimSpace(*in.Zip)
		}
		if in.AddressType != nil {
			t, ok := models.ParseAddressType(*in.AddressType)
			if !ok {
				return validationError("address_type must be billing or shipping")
			}
			address.AddressType = t
		}
		if in.Default != nil {
			address.Default = *in.Default
		}
		if err := validateAddress(&address); err != nil {
			return err
		}

		if address.Default {
			if err := demoteDefaults(tx, userID, address.AddressType, address.ID); err != nil {
				return err
			}
		}

		return tx.Model(&models.Address{}).Where("id = ?", address.ID).Updates(map[string]any{
			"street_address":    address.StreetAddress,
			"apartment_address": address.ApartmentAddress,
			"country":           address.Country,
			"zip":               address.Zip,
			"address_type":      address.AddressType,
			"is_default":        address.Default,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// DeleteAddress removes one of the user's addresses. Orders that referenced
// it keep their other data.
func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&models.Address{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func validateAddress(a *models.Address) error {
	if a.StreetAddress == "" {
		return validationError("street_address is required")
	}
	if a.Country == "" {
		return validationError("country is required")
	}
	if a.Zip == "" {
		return validationError("zip is required")
	}
	return nil
}

// demoteDefaults clears the default flag on the user's addresses of the
// given type, except keep.
func demoteDefaults(tx *gorm.DB, userID uuid.UUID, addressType models.AddressType, keep uuid.UUID) error {
	query := tx.Model(&models.Address{}).
		Where("user_id = ? AND address_type = ? AND is_default = ?", userID, addressType, true)
	if keep != uuid.Nil {
		query = query.Where("id <> ?", keep)
	}
	return query.Update("is_default", false).Error
}
