package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

const (
	MessageQuantityUpdated = "This item quantity was updated."
	MessageItemRemoved     = "This item was removed from your cart."
)

// CartService maintains the user's active order and its lines.
type CartService struct {
	db *gorm.DB
}

// NewCartService constructs CartService.
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// AddToCartInput selects an item by slug and the option values chosen for it.
type AddToCartInput struct {
	Slug           string
	OptionValueIDs []uuid.UUID
}

// AddToCart adds one unit of the item with exactly the given option value
// set. An existing active line with the same set is incremented, otherwise
// a new line is created. The active order is created on demand.
//
// The caller must supply at least as many option values as the item has
// options. Only the count is checked, not that every option is covered.
func (s *CartService) AddToCart(ctx context.Context, userID uuid.UUID, in AddToCartInput) (*models.OrderItem, error) {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return nil, validationError("slug is required")
	}

	var line models.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findItemBySlug(tx, slug)
		if err != nil {
			return err
		}

		var optionCount int64
		if err := tx.Model(&models.Option{}).Where("item_id = ?", item.ID).Count(&optionCount).Error; err != nil {
			return err
		}
		if int64(len(in.OptionValueIDs)) < optionCount {
			return ErrInsufficientOptions
		}

		values, err := resolveOptionValues(tx, item.ID, in.OptionValueIDs)
		if err != nil {
			return err
		}

		if _, err := lockUser(tx, userID); err != nil {
			return err
		}

		order, err := findOrCreateActiveOrder(tx, userID)
		if err != nil {
			return err
		}

		key := models.OptionKey(in.OptionValueIDs)
		err = tx.Where("user_id = ? AND item_id = ? AND ordered = ? AND option_key = ?", userID, item.ID, false, key).
			First(&line).Error
		switch {
		case err == nil:
			line.Quantity++
			line.OrderID = &order.ID
			return tx.Model(&models.OrderItem{}).Where("id = ?", line.ID).
				Updates(map[string]any{"quantity": line.Quantity, "order_id": order.ID}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.OrderItem{
				UserID:       userID,
				ItemID:       item.ID,
				OptionKey:    key,
				OrderID:      &order.ID,
				Quantity:     1,
				OptionValues: values,
			}
			if err := tx.Omit("OptionValues.*").Create(&line).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrConcurrentCartUpdate.Wrap(err)
				}
				return err
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Cart] user %s: line %s quantity %d", userID, line.ID, line.Quantity)
	return &line, nil
}

// SubtractInput selects the line to decrement. When OptionValueIDs is nil
// the oldest line of the item in the active order is used.
type SubtractInput struct {
	Slug           string
	OptionValueIDs []uuid.UUID
}

// SubtractFromCart removes one unit of an item from the active order. A
// line at quantity one is deleted instead of reaching zero.
func (s *CartService) SubtractFromCart(ctx context.Context, userID uuid.UUID, in SubtractInput) (string, error) {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return "", validationError("slug is required")
	}

	var message string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findItemBySlug(tx, slug)
		if err != nil {
			return err
		}

		if _, err := lockUser(tx, userID); err != nil {
			return err
		}

		order, err := findActiveOrder(tx, userID)
		if err != nil {
			return err
		}

		query := tx.Where("order_id = ? AND item_id = ? AND ordered = ?", order.ID, item.ID, false)
		if in.OptionValueIDs != nil {
			query = query.Where("option_key = ?", models.OptionKey(in.OptionValueIDs))
		}

		var line models.OrderItem
		if err := query.Order("created_at").First(&line).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotInCart
			}
			return err
		}

		if line.Quantity > 1 {
			message = MessageQuantityUpdated
			return tx.Model(&models.OrderItem{}).Where("id = ?", line.ID).
				Update("quantity", line.Quantity-1).Error
		}

		message = MessageItemRemoved
		return deleteLine(tx, &line)
	})
	if err != nil {
		return "", err
	}
	return message, nil
}

// DeleteOrderItem removes one of the caller's active lines regardless of
// its quantity.
func (s *CartService) DeleteOrderItem(ctx context.Context, userID, orderItemID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, userID); err != nil {
			return err
		}

		var line models.OrderItem
		if err := tx.First(&line, "id = ? AND user_id = ?", orderItemID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderItemNotFound
			}
			return err
		}
		if line.Ordered {
			return ErrOrderItemFinalized
		}
		return deleteLine(tx, &line)
	})
}

func findItemBySlug(tx *gorm.DB, slug string) (*models.Item, error) {
	var item models.Item
	if err := tx.First(&item, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// resolveOptionValues loads the selected values and checks that each one
// belongs to an option of the item.
func resolveOptionValues(tx *gorm.DB, itemID uuid.UUID, ids []uuid.UUID) ([]models.OptionValue, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var values []models.OptionValue
	if err := tx.
		Where("id IN ?", unique).
		Where("option_id IN (?)", tx.Model(&models.Option{}).Select("id").Where("item_id = ?", itemID)).
		Find(&values).Error; err != nil {
		return nil, err
	}
	if len(values) != len(unique) {
		return nil, ErrUnknownOptionValue
	}
	return values, nil
}

func findOrCreateActiveOrder(tx *gorm.DB, userID uuid.UUID) (*models.Order, error) {
	order, err := findActiveOrder(tx, userID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, ErrNoActiveOrder) {
		return nil, err
	}

	order = &models.Order{UserID: userID, OrderedDate: time.Now()}
	if err := tx.Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConcurrentCartUpdate.Wrap(err)
		}
		return nil, err
	}
	return order, nil
}

func deleteLine(tx *gorm.DB, line *models.OrderItem) error {
	return tx.Select("OptionValues").Delete(line).Error
}
