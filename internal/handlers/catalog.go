package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// CatalogHandler serves the read-only item catalog.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListItems returns paginated items, optionally filtered by ?category=.
func (h *CatalogHandler) ListItems(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Item{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var items []models.Item
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&items).Error; err != nil {
		return err
	}

	data := make([]itemSummaryPayload, 0, len(items))
	for i := range items {
		data = append(data, newItemSummary(&items[i]))
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"pagination": pg.Meta(total),
	})
}

// GetItem returns an item with its options and values by slug.
func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	var item models.Item
	if err := h.db.
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Options.Values", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&item, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "item not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}
