package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

// CheckoutConfig tunes the checkout gateway calls.
type CheckoutConfig struct {
	Currency       string
	GatewayTimeout time.Duration
}

// CheckoutService turns the user's active order into a paid, finalized
// order.
type CheckoutService struct {
	db       *gorm.DB
	gateway  Gateway
	telegram *TelegramService
	mailer   *MailService
	cfg      CheckoutConfig

	notifications sync.WaitGroup
}

// NewCheckoutService constructs CheckoutService. telegram and mailer may be nil.
func NewCheckoutService(db *gorm.DB, gateway Gateway, telegram *TelegramService, mailer *MailService, cfg CheckoutConfig) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 20 * time.Second
	}
	return &CheckoutService{db: db, gateway: gateway, telegram: telegram, mailer: mailer, cfg: cfg}
}

// CheckoutInput carries the payment token and the addresses to bill and
// ship to.
type CheckoutInput struct {
	Token             string
	BillingAddressID  uuid.UUID
	ShippingAddressID uuid.UUID
}

func (in CheckoutInput) validate() error {
	if strings.TrimSpace(in.Token) == "" {
		return validationError("payment token is required")
	}
	if in.BillingAddressID == uuid.Nil {
		return validationError("billing address is required")
	}
	if in.ShippingAddressID == uuid.Nil {
		return validationError("shipping address is required")
	}
	return nil
}

// Checkout charges the active order total and finalizes the order.
//
// The whole sequence runs in one transaction under the user's row lock. A
// gateway failure commits nothing but the gateway customer id, so the cart
// is left as it was. A storage failure after a successful charge cannot be
// undone here: it is logged with the charge id, reported to operators and
// returned as ErrPaymentUnreconciled.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		user       *models.User
		order      *models.Order
		payment    models.Payment
		chargeID   string
		gatewayErr error
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = lockUser(tx, userID); err != nil {
			return err
		}

		order = &models.Order{}
		if err := preloadOrder(tx).
			Where("user_id = ? AND ordered = ?", userID, false).
			First(order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveOrder
			}
			return err
		}
		if len(order.Items) == 0 {
			return ErrEmptyCart
		}

		billing, err := findUserAddress(tx, userID, in.BillingAddressID)
		if err != nil {
			return err
		}
		shipping, err := findUserAddress(tx, userID, in.ShippingAddressID)
		if err != nil {
			return err
		}

		total := order.Total()
		amount := models.MinorUnits(total)
		if amount <= 0 {
			return ErrNothingToCharge
		}

		customerID, err := s.ensureCustomer(ctx, tx, user)
		if err != nil {
			gatewayErr = err
			return nil
		}

		charge, err := s.charge(ctx, customerID, in.Token, order, amount)
		if err != nil {
			// commit the customer id only; the cart is untouched
			gatewayErr = err
			return nil
		}
		chargeID = charge.ChargeID

		now := time.Now()
		payment = models.Payment{
			GatewayChargeID: chargeID,
			UserID:          userID,
			Amount:          total,
			Currency:        s.cfg.Currency,
			Timestamp:       now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ?", order.ID).
			Update("ordered", true).Error; err != nil {
			return fmt.Errorf("finalize order items: %w", err)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"ordered":             true,
			"payment_id":          payment.ID,
			"billing_address_id":  billing.ID,
			"shipping_address_id": shipping.ID,
		}).Error; err != nil {
			return fmt.Errorf("finalize order: %w", err)
		}

		order.Ordered = true
		order.PaymentID = &payment.ID
		order.Payment = &payment
		order.BillingAddressID = &billing.ID
		order.BillingAddress = billing
		order.ShippingAddressID = &shipping.ID
		order.ShippingAddress = shipping
		for i := range order.Items {
			order.Items[i].Ordered = true
		}
		return nil
	})

	if err != nil {
		if chargeID != "" {
			s.reportUnreconciled(userID, order, chargeID, err)
			return nil, ErrPaymentUnreconciled.Wrap(err)
		}
		return nil, err
	}
	if gatewayErr != nil {
		return nil, gatewayErr
	}

	log.Printf("[Checkout] order %s paid by user %s with charge %s (%s %s)",
		order.ID, userID, chargeID, payment.Amount.StringFixed(2), strings.ToUpper(payment.Currency))

	s.notifications.Add(1)
	go func(user models.User, order models.Order) {
		defer s.notifications.Done()
		s.notifyPaid(user, order)
	}(*user, *order)

	return order, nil
}

// Wait blocks until every paid-order notification started by Checkout has
// been sent or has failed.
func (s *CheckoutService) Wait() {
	s.notifications.Wait()
}

// ensureCustomer returns the user's gateway customer id, creating the
// customer and the profile on first use.
func (s *CheckoutService) ensureCustomer(ctx context.Context, tx *gorm.DB, user *models.User) (string, error) {
	var profile models.UserProfile
	if err := tx.Where(models.UserProfile{UserID: user.ID}).
		FirstOrCreate(&profile).Error; err != nil {
		return "", err
	}
	if profile.GatewayCustomerID != "" {
		return profile.GatewayCustomerID, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	customerID, err := s.gateway.CreateCustomer(gctx, user.Email)
	if err != nil {
		return "", s.gatewayFailure("create customer", user.ID, err)
	}

	if err := tx.Model(&models.UserProfile{}).Where("id = ?", profile.ID).
		Update("gateway_customer_id", customerID).Error; err != nil {
		return "", err
	}
	return customerID, nil
}

func (s *CheckoutService) charge(ctx context.Context, customerID, token string, order *models.Order, amount int64) (*ChargeResult, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	sourceID, err := s.gateway.AttachSource(gctx, customerID, token)
	if err != nil {
		return nil, s.gatewayFailure("attach source", order.UserID, err)
	}

	// a returning customer keeps the old card as default, so charge the new one
	charge, err := s.gateway.Charge(gctx, ChargeRequest{
		CustomerID:     customerID,
		SourceID:       sourceID,
		AmountMinor:    amount,
		Currency:       s.cfg.Currency,
		Description:    fmt.Sprintf("Order %s", order.ID),
		IdempotencyKey: chargeIdempotencyKey(order.ID, amount, token),
	})
	if err != nil {
		return nil, s.gatewayFailure("charge", order.UserID, err)
	}
	return charge, nil
}

// chargeIdempotencyKey is stable for a retried request of the same cart,
// amount and card token, and changes when any of them changes.
func chargeIdempotencyKey(orderID uuid.UUID, amount int64, token string) string {
	return uuid.NewSHA1(orderID, []byte(fmt.Sprintf("%d:%s", amount, token))).String()
}

func (s *CheckoutService) gatewayFailure(step string, userID uuid.UUID, err error) error {
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		gwErr = &GatewayError{Code: GatewayUnknown, Err: err}
	}
	log.Printf("[Checkout] gateway %s failed for user %s: %v", step, userID, gwErr)
	return gwErr
}

func (s *CheckoutService) reportUnreconciled(userID uuid.UUID, order *models.Order, chargeID string, cause error) {
	var orderID string
	var amount string
	if order != nil {
		orderID = order.ID.String()
		amount = FormatPrice(order.Total(), s.cfg.Currency)
	}
	log.Printf("[Checkout] RECONCILE: charge %s captured for user %s order %s but finalization failed: %v",
		chargeID, userID, orderID, cause)

	if s.telegram == nil {
		return
	}
	if err := s.telegram.NotifyUnreconciledCharge(UnreconciledChargeAlert{
		ChargeID: chargeID,
		UserID:   userID.String(),
		OrderID:  orderID,
		Amount:   amount,
		Cause:    cause.Error(),
	}); err != nil {
		log.Printf("[Checkout] Telegram reconcile alert failed: %v", err)
	}
}

func (s *CheckoutService) notifyPaid(user models.User, order models.Order) {
	if s.telegram != nil {
		if err := s.telegram.NotifyOrderPaid(NewOrderNotification(user, order, s.cfg.Currency)); err != nil {
			log.Printf("[Checkout] Telegram notification failed: %v", err)
		}
	}
	if s.mailer != nil {
		if err := s.mailer.SendReceipt(BuildReceipt(user, order, s.cfg.Currency)); err != nil {
			log.Printf("[Checkout] receipt mail for order %s failed: %v", order.ID, err)
		}
	}
}

func findUserAddress(tx *gorm.DB, userID, addressID uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := tx.First(&address, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return &address, nil
}
