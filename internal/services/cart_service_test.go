package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/testutil"
)

func shirtSpec() testutil.ItemSpec {
	return testutil.ItemSpec{
		Slug:  "oxford-shirt",
		Price: "20.00",
		Options: []testutil.OptionSpec{
			{Name: "Size", Values: map[string]string{"M": "0", "L": "2.50"}},
			{Name: "Color", Values: map[string]string{"Red": "0", "Blue": "1.00"}},
		},
	}
}

func activeLines(t *testing.T, db *gorm.DB, userID uuid.UUID) []models.OrderItem {
	t.Helper()
	var lines []models.OrderItem
	require.NoError(t, db.Where("user_id = ? AND ordered = ?", userID, false).
		Order("created_at").Find(&lines).Error)
	return lines
}

func TestAddToCart_SameOptionsIncrementQuantity(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	shirt := testutil.CreateItem(t, db, shirtSpec())
	svc := services.NewCartService(db)
	ctx := context.Background()

	in := services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["M"], shirt.Values["Red"]},
	}
	_, err := svc.AddToCart(ctx, user.ID, in)
	require.NoError(t, err)
	line, err := svc.AddToCart(ctx, user.ID, in)
	require.NoError(t, err)

	assert.Equal(t, 2, line.Quantity)
	lines := activeLines(t, db, user.ID)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	require.NotNil(t, lines[0].OrderID)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Where("user_id = ?", user.ID).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestAddToCart_OptionOrderDoesNotMatter(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	shirt := testutil.CreateItem(t, db, shirtSpec())
	svc := services.NewCartService(db)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["L"], shirt.Values["Blue"]},
	})
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, user.ID, services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["Blue"], shirt.Values["L"]},
	})
	require.NoError(t, err)

	lines := activeLines(t, db, user.ID)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddToCart_DifferentOptionsCreateSeparateLines(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	shirt := testutil.CreateItem(t, db, shirtSpec())
	svc := services.NewCartService(db)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["M"], shirt.Values["Red"]},
	})
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, user.ID, services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["L"], shirt.Values["Red"]},
	})
	require.NoError(t, err)

	lines := activeLines(t, db, user.ID)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, 1, line.Quantity)
		assert.Equal(t, *lines[0].OrderID, *line.OrderID)
	}

	order, err := services.NewOrderService(db).GetActiveOrder(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Len(t, order.Items[1].OptionValues, 2)
	// 20 + 20 + 2.50
	assert.True(t, decimal.RequireFromString("42.50").Equal(order.Total()), order.Total().String())
}

func TestAddToCart_InsufficientOptions(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	shirt := testutil.CreateItem(t, db, shirtSpec())
	svc := services.NewCartService(db)

	_, err := svc.AddToCart(context.Background(), user.ID, services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["M"]},
	})
	require.ErrorIs(t, err, services.ErrInsufficientOptions)
	assert.Empty(t, activeLines(t, db, user.ID))

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestAddToCart_RejectsForeignOptionValue(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	shirt := testutil.CreateItem(t, db, shirtSpec())
	hat := testutil.CreateItem(t, db, testutil.ItemSpec{
		Slug:    "cap",
		Price:   "5",
		Options: []testutil.OptionSpec{{Name: "Size", Values: map[string]string{"One": "0"}}},
	})
	svc := services.NewCartService(db)

	_, err := svc.AddToCart(context.Background(), user.ID, services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["M"], hat.Values["One"]},
	})
	require.ErrorIs(t, err, services.ErrUnknownOptionValue)
}

func TestAddToCart_UnknownSlug(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	svc := services.NewCartService(db)

	_, err := svc.AddToCart(context.Background(), user.ID, services.AddToCartInput{Slug: "missing"})
	require.ErrorIs(t, err, services.ErrItemNotFound)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestAddToCart_ItemWithoutOptions(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	testutil.CreateItem(t, db, testutil.ItemSpec{Slug: "socks", Price: "4.00"})
	svc := services.NewCartService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{Slug: "socks"})
		require.NoError(t, err)
	}

	lines := activeLines(t, db, user.ID)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAddToCart_ConcurrentAddsKeepOneActiveOrder(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	testutil.CreateItem(t, db, testutil.ItemSpec{Slug: "socks", Price: "4.00"})
	svc := services.NewCartService(db)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddToCart(context.Background(), user.ID, services.AddToCartInput{Slug: "socks"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).
		Where("user_id = ? AND ordered = ?", user.ID, false).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)

	lines := activeLines(t, db, user.ID)
	require.Len(t, lines, 1)
	assert.Equal(t, workers, lines[0].Quantity)
}

// raceInsert runs insert on the same transaction right before the first
// create against table, so the create hits a row written in between.
func raceInsert(t *testing.T, db *gorm.DB, table string, insert func(tx *gorm.DB) error) {
	t.Helper()

	fired := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("test:race_"+table, func(tx *gorm.DB) {
			if fired || tx.Statement.Table != table {
				return
			}
			fired = true
			if err := insert(tx); err != nil {
				_ = tx.AddError(err)
			}
		}))
}

func TestAddToCart_ConflictingActiveOrderIsReported(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	testutil.CreateItem(t, db, testutil.ItemSpec{Slug: "socks", Price: "4.00"})
	svc := services.NewCartService(db)
	ctx := context.Background()

	raceInsert(t, db, "orders", func(tx *gorm.DB) error {
		now := time.Now()
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO orders (id, user_id, ordered, ordered_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			uuid.New(), user.ID, false, now, now, now)
		return err
	})

	_, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{Slug: "socks"})
	require.ErrorIs(t, err, services.ErrConcurrentCartUpdate)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, services.KindState, services.KindOf(err))
	assert.Empty(t, activeLines(t, db, user.ID))

	// the failed attempt rolled back, so a retry starts clean
	line, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{Slug: "socks"})
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}

func TestAddToCart_ConflictingActiveLineIsReported(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	shirt := testutil.CreateItem(t, db, shirtSpec())
	svc := services.NewCartService(db)
	ctx := context.Background()

	in := services.AddToCartInput{
		Slug:           "oxford-shirt",
		OptionValueIDs: []uuid.UUID{shirt.Values["L"], shirt.Values["Blue"]},
	}
	raceInsert(t, db, "order_items", func(tx *gorm.DB) error {
		now := time.Now()
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO order_items (id, user_id, item_id, option_key, ordered, quantity, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			uuid.New(), user.ID, shirt.Item.ID, models.OptionKey(in.OptionValueIDs), false, 1, now, now)
		return err
	})

	_, err := svc.AddToCart(ctx, user.ID, in)
	require.ErrorIs(t, err, services.ErrConcurrentCartUpdate)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Empty(t, activeLines(t, db, user.ID))

	line, err := svc.AddToCart(ctx, user.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}

func TestSubtractFromCart(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	testutil.CreateItem(t, db, testutil.ItemSpec{Slug: "socks", Price: "4.00"})
	svc := services.NewCartService(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{Slug: "socks"})
		require.NoError(t, err)
	}

	msg, err := svc.SubtractFromCart(ctx, user.ID, services.SubtractInput{Slug: "socks"})
	require.NoError(t, err)
	assert.Equal(t, services.MessageQuantityUpdated, msg)
	lines := activeLines(t, db, user.ID)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)

	msg, err = svc.SubtractFromCart(ctx, user.ID, services.SubtractInput{Slug: "socks"})
	require.NoError(t, err)
	assert.Equal(t, services.MessageItemRemoved, msg)
	assert.Empty(t, activeLines(t, db, user.ID))

	_, err = svc.SubtractFromCart(ctx, user.ID, services.SubtractInput{Slug: "socks"})
	require.ErrorIs(t, err, services.ErrItemNotInCart)
}

func TestSubtractFromCart_RemovesOptionLinks(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	shirt := testutil.CreateItem(t, db, shirtSpec())
	svc := services.NewCartService(db)
	ctx := context.Background()

	ids := []uuid.UUID{shirt.Values["M"], shirt.Values["Red"]}
	_, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{Slug: "oxford-shirt", OptionValueIDs: ids})
	require.NoError(t, err)

	msg, err := svc.SubtractFromCart(ctx, user.ID, services.SubtractInput{Slug: "oxford-shirt", OptionValueIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, services.MessageItemRemoved, msg)

	var links int64
	require.NoError(t, db.Table("order_item_option_values").Count(&links).Error)
	assert.Zero(t, links)
}

func TestSubtractFromCart_NoActiveOrder(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	testutil.CreateItem(t, db, testutil.ItemSpec{Slug: "socks", Price: "4.00"})
	svc := services.NewCartService(db)

	_, err := svc.SubtractFromCart(context.Background(), user.ID, services.SubtractInput{Slug: "socks"})
	require.ErrorIs(t, err, services.ErrNoActiveOrder)
}

func TestDeleteOrderItem(t *testing.T) {
	db := testutil.NewDB(t)
	ann := testutil.CreateUser(t, db, "ann@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	testutil.CreateItem(t, db, testutil.ItemSpec{Slug: "socks", Price: "4.00"})
	svc := services.NewCartService(db)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, ann.ID, services.AddToCartInput{Slug: "socks"})
	require.NoError(t, err)

	err = svc.DeleteOrderItem(ctx, bob.ID, line.ID)
	require.ErrorIs(t, err, services.ErrOrderItemNotFound)

	require.NoError(t, svc.DeleteOrderItem(ctx, ann.ID, line.ID))
	assert.Empty(t, activeLines(t, db, ann.ID))

	err = svc.DeleteOrderItem(ctx, ann.ID, line.ID)
	require.ErrorIs(t, err, services.ErrOrderItemNotFound)
}

func TestDeleteOrderItem_RefusesFinalizedLine(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ann@example.com")
	testutil.CreateItem(t, db, testutil.ItemSpec{Slug: "socks", Price: "4.00"})
	svc := services.NewCartService(db)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, user.ID, services.AddToCartInput{Slug: "socks"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.OrderItem{}).Where("id = ?", line.ID).Update("ordered", true).Error)

	err = svc.DeleteOrderItem(ctx, user.ID, line.ID)
	require.ErrorIs(t, err, services.ErrOrderItemFinalized)
}
