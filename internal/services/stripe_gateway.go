package services

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway implements Gateway on top of the Stripe API.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a gateway keyed by the Stripe secret key.
func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// CreateCustomer registers a Stripe customer for the given email.
func (g *StripeGateway) CreateCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return customer.ID, nil
}

// AttachSource adds a tokenized card to the customer and returns the card
// id. The card does not become the customer's default source.
func (g *StripeGateway) AttachSource(ctx context.Context, customerID, token string) (string, error) {
	params := &stripe.CardParams{
		Customer: stripe.String(customerID),
		Token:    stripe.String(token),
	}
	params.Context = ctx

	card, err := g.api.Cards.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return card.ID, nil
}

// Charge charges req.SourceID, or the customer's default source when it is empty.
func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency),
		Customer: stripe.String(req.CustomerID),
	}
	if req.SourceID != "" {
		params.Source = &stripe.PaymentSourceSourceParams{Token: stripe.String(req.SourceID)}
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	charge, err := g.api.Charges.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &ChargeResult{ChargeID: charge.ID}, nil
}

func mapStripeError(err error) *GatewayError {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &GatewayError{Code: GatewayConnection, Err: err}
		}
		return &GatewayError{Code: GatewayUnknown, Err: err}
	}

	gwErr := &GatewayError{
		Message:     stripeErr.Msg,
		DeclineCode: string(stripeErr.DeclineCode),
		HTTPStatus:  stripeErr.HTTPStatusCode,
		RequestID:   stripeErr.RequestID,
		Err:         err,
	}

	switch {
	case stripeErr.Type == stripe.ErrorTypeCard:
		gwErr.Code = GatewayCardDeclined
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
		gwErr.Code = GatewayRateLimited
	case stripeErr.HTTPStatusCode == http.StatusUnauthorized:
		gwErr.Code = GatewayAuthentication
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		gwErr.Code = GatewayInvalidRequest
	default:
		gwErr.Code = GatewayGeneric
	}
	return gwErr
}
