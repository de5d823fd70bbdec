// Package testutil builds migrated in-memory databases and catalog fixtures
// for package tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/models"
)

// NewDB opens a private in-memory SQLite database and runs the production
// migrations against it. The pool is limited to one connection so the
// database outlives individual queries and transactions serialize.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with the given email.
func CreateUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	user := models.User{Email: email, FirstName: "Test", LastName: "User"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// ItemSpec describes an item fixture. Options maps an option name to its
// values and their additional prices.
type ItemSpec struct {
	Slug          string
	Price         string
	DiscountPrice string
	Options       []OptionSpec
}

type OptionSpec struct {
	Name   string
	Values map[string]string
}

// CatalogItem is a created item plus its option value ids keyed by value.
type CatalogItem struct {
	Item   models.Item
	Values map[string]uuid.UUID
}

// CreateItem inserts an item with its options.
func CreateItem(t *testing.T, db *gorm.DB, spec ItemSpec) CatalogItem {
	t.Helper()

	item := models.Item{
		Title: spec.Slug,
		Slug:  spec.Slug,
		Price: decimal.RequireFromString(spec.Price),
	}
	if spec.DiscountPrice != "" {
		item.DiscountPrice = decimal.NewNullDecimal(decimal.RequireFromString(spec.DiscountPrice))
	}
	require.NoError(t, db.Create(&item).Error)

	values := make(map[string]uuid.UUID)
	for _, optSpec := range spec.Options {
		option := models.Option{ItemID: item.ID, Name: optSpec.Name}
		require.NoError(t, db.Create(&option).Error)
		for value, extra := range optSpec.Values {
			ov := models.OptionValue{
				OptionID:        option.ID,
				Value:           value,
				AdditionalPrice: decimal.RequireFromString(extra),
			}
			require.NoError(t, db.Create(&ov).Error)
			values[value] = ov.ID
		}
	}

	return CatalogItem{Item: item, Values: values}
}

// CreateCoupon inserts a coupon.
func CreateCoupon(t *testing.T, db *gorm.DB, code, amount string) models.Coupon {
	t.Helper()

	coupon := models.Coupon{Code: code, Amount: decimal.RequireFromString(amount)}
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

// CreateAddress inserts an address for a user.
func CreateAddress(t *testing.T, db *gorm.DB, userID uuid.UUID, addressType models.AddressType, isDefault bool) models.Address {
	t.Helper()

	address := models.Address{
		UserID:        userID,
		StreetAddress: "1 Main St",
		Country:       "US",
		Zip:           "10001",
		AddressType:   addressType,
		Default:       isDefault,
	}
	require.NoError(t, db.Create(&address).Error)
	return address
}
