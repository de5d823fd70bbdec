package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// OrderService owns the order lifecycle outside of checkout: reading the
// active order, coupons, history, refunds and fulfillment flags.
type OrderService struct {
	db *gorm.DB
}

// NewOrderService constructs OrderService.
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// GetActiveOrder returns the user's cart with lines, items, options and coupon.
func (s *OrderService) GetActiveOrder(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := preloadOrder(s.db.WithContext(ctx)).
		Where("user_id = ? AND ordered = ?", userID, false).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveOrder
		}
		return nil, err
	}
	return &order, nil
}

// ApplyCoupon attaches the coupon with the given code to the active order,
// replacing any coupon attached before.
func (s *OrderService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationError("Invalid coupon code.")
	}

	var coupon models.Coupon
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, userID); err != nil {
			return err
		}

		order, err := findActiveOrder(tx, userID)
		if err != nil {
			return err
		}

		if err := tx.First(&coupon, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCouponNotFound
			}
			return err
		}

		return tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("coupon_id", coupon.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ListOrders returns the user's finalized orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ? AND ordered = ?", userID, true).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := preloadOrder(query).
		Preload("Payment").
		Order("ordered_date desc").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListPayments returns the user's payments, newest first.
func (s *OrderService) ListPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// RefundInput is a customer's refund request.
type RefundInput struct {
	OrderID uuid.UUID
	Reason  string
	Email   string
}

// RequestRefund flags one of the user's finalized orders for refund.
func (s *OrderService) RequestRefund(ctx context.Context, userID uuid.UUID, in RefundInput) (*models.Refund, error) {
	if in.OrderID == uuid.Nil {
		return nil, validationError("order_id is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, validationError("reason is required")
	}
	if !utils.ValidEmail(strings.TrimSpace(in.Email)) {
		return nil, validationError("a valid email is required")
	}

	var refund models.Refund
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, userID); err != nil {
			return err
		}

		var order models.Order
		if err := tx.First(&order, "id = ? AND user_id = ? AND ordered = ?", in.OrderID, userID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.RefundRequested || order.RefundGranted {
			return ErrRefundAlreadyRequested
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("refund_requested", true).Error; err != nil {
			return err
		}

		refund = models.Refund{
			OrderID: order.ID,
			UserID:  userID,
			Reason:  strings.TrimSpace(in.Reason),
			Email:   strings.TrimSpace(in.Email),
		}
		return tx.Create(&refund).Error
	})
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// FulfillmentAction is a bulk operator action on finalized orders.
type FulfillmentAction string

const (
	ActionRefundGranted  FulfillmentAction = "refund-granted"
	ActionBeingDelivered FulfillmentAction = "being-delivered"
	ActionReceived       FulfillmentAction = "received"
)

var fulfillmentUpdates = map[FulfillmentAction]map[string]any{
	ActionRefundGranted:  {"refund_requested": false, "refund_granted": true},
	ActionBeingDelivered: {"being_delivered": true},
	ActionReceived:       {"being_delivered": false, "received": true},
}

// ApplyFulfillment applies action to the given finalized orders and reports
// how many were updated. Active orders are never touched.
func (s *OrderService) ApplyFulfillment(ctx context.Context, action FulfillmentAction, orderIDs []uuid.UUID) (int64, error) {
	updates, ok := fulfillmentUpdates[action]
	if !ok {
		return 0, validationError("unknown fulfillment action")
	}
	if len(orderIDs) == 0 {
		return 0, validationError("order_ids is required")
	}

	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ? AND ordered = ?", orderIDs, true).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
