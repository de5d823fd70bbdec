package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a cart line: one distinct (item, selected option values)
// combination with a quantity. OptionKey is the canonical form of the
// option value set and takes part in the active-line uniqueness index.
type OrderItem struct {
	BaseModel
	UserID       uuid.UUID     `gorm:"type:uuid;index;uniqueIndex:idx_order_items_active_line,where:ordered = false" json:"user_id"`
	ItemID       uuid.UUID     `gorm:"type:uuid;index;uniqueIndex:idx_order_items_active_line,where:ordered = false" json:"item_id"`
	Item         *Item         `json:"item,omitempty"`
	OptionKey    string        `gorm:"uniqueIndex:idx_order_items_active_line,where:ordered = false" json:"-"`
	OrderID      *uuid.UUID    `gorm:"type:uuid;index" json:"order_id"`
	Ordered      bool          `json:"ordered"`
	Quantity     int           `json:"quantity"`
	OptionValues []OptionValue `gorm:"many2many:order_item_option_values;" json:"item_options"`
}

// UnitPrice is the item base price plus the additional price of every
// selected option value.
func (oi *OrderItem) UnitPrice() decimal.Decimal {
	if oi.Item == nil {
		return decimal.Zero
	}
	price := oi.Item.BasePrice()
	for _, value := range oi.OptionValues {
		price = price.Add(value.AdditionalPrice)
	}
	return price
}

// FinalPrice is the unit price times the quantity.
func (oi *OrderItem) FinalPrice() decimal.Decimal {
	return oi.UnitPrice().Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// AmountSaved reports how much the discount price saves across the line.
func (oi *OrderItem) AmountSaved() decimal.Decimal {
	if oi.Item == nil || !oi.Item.DiscountPrice.Valid {
		return decimal.Zero
	}
	diff := oi.Item.Price.Sub(oi.Item.DiscountPrice.Decimal)
	return diff.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// OptionKey returns the canonical key of an option value set: ids are
// de-duplicated, sorted and joined, so two selections match exactly when
// they contain the same values regardless of order.
func OptionKey(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		s := id.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		keys = append(keys, s)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// Order is a user's cart while Ordered is false and an immutable receipt
// once checkout finalizes it. A partial unique index allows one active order
// per user.
type Order struct {
	BaseModel
	UserID            uuid.UUID   `gorm:"type:uuid;index;uniqueIndex:idx_orders_one_active,where:ordered = false" json:"user_id"`
	Ordered           bool        `json:"ordered"`
	OrderedDate       time.Time   `json:"ordered_date"`
	Items             []OrderItem `json:"order_items,omitempty"`
	CouponID          *uuid.UUID  `gorm:"type:uuid" json:"-"`
	Coupon            *Coupon     `gorm:"constraint:OnDelete:SET NULL;" json:"coupon"`
	BillingAddressID  *uuid.UUID  `gorm:"type:uuid" json:"billing_address_id"`
	BillingAddress    *Address    `gorm:"constraint:OnDelete:SET NULL;" json:"billing_address,omitempty"`
	ShippingAddressID *uuid.UUID  `gorm:"type:uuid" json:"shipping_address_id"`
	ShippingAddress   *Address    `gorm:"constraint:OnDelete:SET NULL;" json:"shipping_address,omitempty"`
	PaymentID         *uuid.UUID  `gorm:"type:uuid" json:"-"`
	Payment           *Payment    `gorm:"constraint:OnDelete:SET NULL;" json:"payment,omitempty"`
	BeingDelivered    bool        `json:"being_delivered"`
	Received          bool        `json:"received"`
	RefundRequested   bool        `json:"refund_requested"`
	RefundGranted     bool        `json:"refund_granted"`
}

// Subtotal sums the final price of every attached line.
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].FinalPrice())
	}
	return total
}

// Total is the subtotal minus the coupon amount, never below zero. It is
// always computed from the loaded lines.
func (o *Order) Total() decimal.Decimal {
	total := o.Subtotal()
	if o.Coupon != nil {
		total = total.Sub(o.Coupon.Amount)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// MinorUnits converts an amount to integer cents, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Payment records a successful gateway charge.
type Payment struct {
	BaseModel
	GatewayChargeID string          `gorm:"uniqueIndex" json:"-"`
	UserID          uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Currency        string          `json:"currency"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Refund is a customer's refund request for a finalized order.
type Refund struct {
	BaseModel
	OrderID  uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	UserID   uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Reason   string    `json:"reason"`
	Accepted bool      `json:"accepted"`
	Email    string    `json:"email"`
}
