package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
)

// lockUser takes a row lock on the user for the rest of tx. Every cart,
// checkout and address-book write of a user runs under this lock, which
// serializes find-or-create sequences per user.
func lockUser(tx *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func findActiveOrder(tx *gorm.DB, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := tx.Where("user_id = ? AND ordered = ?", userID, false).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveOrder
		}
		return nil, err
	}
	return &order, nil
}

func preloadOrder(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at")
		}).
		Preload("Items.Item").
		Preload("Items.OptionValues.Option").
		Preload("Coupon")
}
