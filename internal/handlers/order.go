package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// OrderHandler serves the active order, order history, payments, coupons
// and refund requests.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type optionValuePayload struct {
	ID              uuid.UUID `json:"id"`
	Option          string    `json:"option"`
	Value           string    `json:"value"`
	AdditionalPrice string    `json:"additional_price"`
	Attachment      string    `json:"attachment,omitempty"`
}

type orderItemPayload struct {
	ID          uuid.UUID            `json:"id"`
	Item        itemSummaryPayload   `json:"item"`
	ItemOptions []optionValuePayload `json:"item_options"`
	Quantity    int                  `json:"quantity"`
	FinalPrice  string               `json:"final_price"`
	AmountSaved string               `json:"amount_saved"`
}

type itemSummaryPayload struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Price         string    `json:"price"`
	DiscountPrice *string   `json:"discount_price"`
	Category      string    `json:"category"`
	Label         string    `json:"label"`
	Image         string    `json:"image"`
}

type couponPayload struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Amount string    `json:"amount"`
}

type orderPayload struct {
	ID              uuid.UUID          `json:"id"`
	Ordered         bool               `json:"ordered"`
	OrderedDate     time.Time          `json:"ordered_date"`
	OrderItems      []orderItemPayload `json:"order_items"`
	Subtotal        string             `json:"subtotal"`
	Total           string             `json:"total"`
	Coupon          *couponPayload     `json:"coupon"`
	BeingDelivered  bool               `json:"being_delivered"`
	Received        bool               `json:"received"`
	RefundRequested bool               `json:"refund_requested"`
	RefundGranted   bool               `json:"refund_granted"`
}

func newItemSummary(item *models.Item) itemSummaryPayload {
	if item == nil {
		return itemSummaryPayload{}
	}
	summary := itemSummaryPayload{
		ID:       item.ID,
		Title:    item.Title,
		Slug:     item.Slug,
		Price:    item.Price.StringFixed(2),
		Category: item.Category,
		Label:    item.Label,
		Image:    item.Image,
	}
	if item.DiscountPrice.Valid {
		discount := item.DiscountPrice.Decimal.StringFixed(2)
		summary.DiscountPrice = &discount
	}
	return summary
}

func newOrderPayload(order *models.Order) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		Ordered:         order.Ordered,
		OrderedDate:     order.OrderedDate,
		OrderItems:      make([]orderItemPayload, 0, len(order.Items)),
		Subtotal:        order.Subtotal().StringFixed(2),
		Total:           order.Total().StringFixed(2),
		BeingDelivered:  order.BeingDelivered,
		Received:        order.Received,
		RefundRequested: order.RefundRequested,
		RefundGranted:   order.RefundGranted,
	}

	for i := range order.Items {
		line := &order.Items[i]
		options := make([]optionValuePayload, 0, len(line.OptionValues))
		for _, v := range line.OptionValues {
			option := ""
			if v.Option != nil {
				option = v.Option.Name
			}
			options = append(options, optionValuePayload{
				ID:              v.ID,
				Option:          option,
				Value:           v.Value,
				AdditionalPrice: v.AdditionalPrice.StringFixed(2),
				Attachment:      v.Attachment,
			})
		}
		payload.OrderItems = append(payload.OrderItems, orderItemPayload{
			ID:          line.ID,
			Item:        newItemSummary(line.Item),
			ItemOptions: options,
			Quantity:    line.Quantity,
			FinalPrice:  line.FinalPrice().StringFixed(2),
			AmountSaved: line.AmountSaved().StringFixed(2),
		})
	}

	if order.Coupon != nil {
		payload.Coupon = &couponPayload{
			ID:     order.Coupon.ID,
			Code:   order.Coupon.Code,
			Amount: order.Coupon.Amount.StringFixed(2),
		}
	}
	return payload
}

// OrderSummary returns the caller's active order with live totals.
func (h *OrderHandler) OrderSummary(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	order, err := h.orders.GetActiveOrder(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveOrder) {
			return fiber.NewError(fiber.StatusNotFound, services.ErrNoActiveOrder.Message)
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": newOrderPayload(order)})
}

// ListOrders returns the caller's finalized orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListOrders(c.UserContext(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	data := make([]orderPayload, 0, len(orders))
	for i := range orders {
		data = append(data, newOrderPayload(&orders[i]))
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"pagination": pg.Meta(total),
	})
}

// ListPayments returns the caller's payments.
func (h *OrderHandler) ListPayments(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	payments, err := h.orders.ListPayments(c.UserContext(), userID)
	if err != nil {
		return err
	}

	data := make([]fiber.Map, 0, len(payments))
	for _, p := range payments {
		data = append(data, fiber.Map{
			"id":        p.ID,
			"amount":    p.Amount.StringFixed(2),
			"currency":  p.Currency,
			"timestamp": p.Timestamp,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": data})
}

type couponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon attaches a coupon to the active order.
func (h *OrderHandler) ApplyCoupon(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req couponRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	coupon, err := h.orders.ApplyCoupon(c.UserContext(), userID, req.Code)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": couponPayload{
			ID:     coupon.ID,
			Code:   coupon.Code,
			Amount: coupon.Amount.StringFixed(2),
		},
	})
}

type refundRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
	Email   string `json:"email"`
}

// RequestRefund opens a refund request for a finalized order.
func (h *OrderHandler) RequestRefund(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
	}

	refund, err := h.orders.RequestRefund(c.UserContext(), userID, services.RefundInput{
		OrderID: orderID,
		Reason:  req.Reason,
		Email:   req.Email,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": refund})
}
