package database

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

// CatalogFixture is the YAML document accepted by SeedCatalog.
type CatalogFixture struct {
	Items   []ItemFixture   `yaml:"items"`
	Coupons []CouponFixture `yaml:"coupons"`
}

type ItemFixture struct {
	Slug             string          `yaml:"slug"`
	Title            string          `yaml:"title"`
	Price            string          `yaml:"price"`
	DiscountPrice    string          `yaml:"discount_price"`
	Category         string          `yaml:"category"`
	Label            string          `yaml:"label"`
	ShortDescription string          `yaml:"short_description"`
	LongDescription  string          `yaml:"long_description"`
	Image            string          `yaml:"image"`
	Options          []OptionFixture `yaml:"options"`
}

type OptionFixture struct {
	Name   string               `yaml:"name"`
	Values []OptionValueFixture `yaml:"values"`
}

type OptionValueFixture struct {
	Value           string `yaml:"value"`
	AdditionalPrice string `yaml:"additional_price"`
	Default         bool   `yaml:"default"`
	Attachment      string `yaml:"attachment"`
}

type CouponFixture struct {
	Code   string `yaml:"code"`
	Amount string `yaml:"amount"`
}

// SeedResult counts what SeedCatalog wrote.
type SeedResult struct {
	Items   int
	Coupons int
}

// SeedCatalog upserts items (by slug) and coupons (by code) from a YAML
// fixture.
func SeedCatalog(conn *gorm.DB, r io.Reader) (SeedResult, error) {
	var fixture CatalogFixture
	if err := yaml.NewDecoder(r).Decode(&fixture); err != nil {
		return SeedResult{}, fmt.Errorf("decode catalog fixture: %w", err)
	}

	var result SeedResult
	err := conn.Transaction(func(tx *gorm.DB) error {
		for _, f := range fixture.Items {
			if err := seedItem(tx, f); err != nil {
				return fmt.Errorf("item %q: %w", f.Slug, err)
			}
			result.Items++
		}
		for _, f := range fixture.Coupons {
			if err := seedCoupon(tx, f); err != nil {
				return fmt.Errorf("coupon %q: %w", f.Code, err)
			}
			result.Coupons++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}

func seedItem(tx *gorm.DB, f ItemFixture) error {
	if f.Slug == "" {
		return errors.New("slug is required")
	}

	price, err := parseAmount(f.Price)
	if err != nil {
		return err
	}

	var item models.Item
	err = tx.Where("slug = ?", f.Slug).First(&item).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	item.Slug = f.Slug
	item.Title = f.Title
	item.Price = price
	item.DiscountPrice = decimal.NullDecimal{}
	if f.DiscountPrice != "" {
		discount, err := parseAmount(f.DiscountPrice)
		if err != nil {
			return err
		}
		item.DiscountPrice = decimal.NewNullDecimal(discount)
	}
	item.Category = f.Category
	item.Label = f.Label
	item.ShortDescription = f.ShortDescription
	item.LongDescription = f.LongDescription
	item.Image = f.Image

	if err := tx.Save(&item).Error; err != nil {
		return err
	}

	for _, of := range f.Options {
		if err := seedOption(tx, item.ID, of); err != nil {
			return err
		}
	}

	return nil
}

// seedOption upserts an option by (item, name) and its values by
// (option, value). Values missing from the fixture are left in place since
// cart lines may still reference them.
func seedOption(tx *gorm.DB, itemID uuid.UUID, f OptionFixture) error {
	var option models.Option
	err := tx.Where("item_id = ? AND name = ?", itemID, f.Name).First(&option).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		option = models.Option{ItemID: itemID, Name: f.Name}
		err = tx.Create(&option).Error
	}
	if err != nil {
		return err
	}

	for _, vf := range f.Values {
		extra, err := parseAmount(vf.AdditionalPrice)
		if err != nil {
			return err
		}

		var value models.OptionValue
		err = tx.Where("option_id = ? AND value = ?", option.ID, vf.Value).First(&value).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		value.OptionID = option.ID
		value.Value = vf.Value
		value.AdditionalPrice = extra
		value.Default = vf.Default
		value.Attachment = vf.Attachment
		if err := tx.Save(&value).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedCoupon(tx *gorm.DB, f CouponFixture) error {
	if f.Code == "" {
		return errors.New("code is required")
	}
	amount, err := parseAmount(f.Amount)
	if err != nil {
		return err
	}

	var coupon models.Coupon
	err = tx.Where("code = ?", f.Code).First(&coupon).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	coupon.Code = f.Code
	coupon.Amount = amount
	return tx.Save(&coupon).Error
}

func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", value)
	}
	return amount, nil
}
