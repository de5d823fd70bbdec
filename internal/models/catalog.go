package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item categories.
const (
	CategoryShirt     = "shirt"
	CategorySportWear = "sport_wear"
	CategoryOutwear   = "outwear"
)

// Item labels used by the storefront to badge products.
const (
	LabelPrimary   = "primary"
	LabelSecondary = "secondary"
	LabelDanger    = "danger"
)

// Item is a catalog product. The cart never mutates it.
type Item struct {
	BaseModel
	Title            string              `json:"title"`
	Price            decimal.Decimal     `gorm:"type:numeric(12,2)" json:"price"`
	DiscountPrice    decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"discount_price"`
	Category         string              `gorm:"index" json:"category"`
	Label            string              `json:"label"`
	Slug             string              `gorm:"uniqueIndex" json:"slug"`
	ShortDescription string              `json:"short_description"`
	LongDescription  string              `json:"long_description"`
	Image            string              `json:"image"`
	Options          []Option            `json:"options,omitempty"`
}

// BasePrice returns the discount price when one is set, otherwise the list price.
func (i *Item) BasePrice() decimal.Decimal {
	if i.DiscountPrice.Valid {
		return i.DiscountPrice.Decimal
	}
	return i.Price
}

// Option is a choice axis of an item, e.g. "Size".
type Option struct {
	BaseModel
	ItemID uuid.UUID     `gorm:"type:uuid;index" json:"item_id"`
	Name   string        `json:"name"`
	Values []OptionValue `json:"values,omitempty"`
}

// OptionValue is a selectable value of an Option.
type OptionValue struct {
	BaseModel
	OptionID        uuid.UUID       `gorm:"type:uuid;index" json:"option_id"`
	Option          *Option         `json:"option,omitempty"`
	Value           string          `json:"value"`
	AdditionalPrice decimal.Decimal `gorm:"type:numeric(12,2)" json:"additional_price"`
	Default         bool            `gorm:"column:is_default" json:"default"`
	Attachment      string          `json:"attachment"`
}

// Coupon is a flat discount subtracted from an order total.
type Coupon struct {
	BaseModel
	Code   string          `gorm:"uniqueIndex" json:"code"`
	Amount decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
}
