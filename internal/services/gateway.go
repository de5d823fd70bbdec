package services

import (
	"context"
	"fmt"
)

// Gateway is the payment processing capability used by checkout. Every
// failure is reported as a *GatewayError.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string) (string, error)
	AttachSource(ctx context.Context, customerID, token string) (string, error)
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ChargeRequest asks the gateway to charge one of a customer's sources.
// An empty SourceID charges the customer's default source.
type ChargeRequest struct {
	CustomerID     string
	SourceID       string
	AmountMinor    int64
	Currency       string
	Description    string
	IdempotencyKey string
}

// ChargeResult identifies a successful charge.
type ChargeResult struct {
	ChargeID string
}

// GatewayErrorCode is the closed set of gateway failure categories.
type GatewayErrorCode int

const (
	GatewayCardDeclined GatewayErrorCode = iota + 1
	GatewayRateLimited
	GatewayInvalidRequest
	GatewayAuthentication
	GatewayConnection
	GatewayGeneric
	GatewayUnknown
)

func (c GatewayErrorCode) String() string {
	switch c {
	case GatewayCardDeclined:
		return "card_declined"
	case GatewayRateLimited:
		return "rate_limited"
	case GatewayInvalidRequest:
		return "invalid_request"
	case GatewayAuthentication:
		return "authentication"
	case GatewayConnection:
		return "connection"
	case GatewayGeneric:
		return "gateway_error"
	}
	return "unknown"
}

var gatewayMessages = map[GatewayErrorCode]string{
	GatewayCardDeclined:   "Your card was declined.",
	GatewayRateLimited:    "Rate limit error",
	GatewayInvalidRequest: "Invalid parameters",
	GatewayAuthentication: "Not authenticated",
	GatewayConnection:     "Network error",
	GatewayGeneric:        "Something went wrong. You were not charged. Please try again.",
	GatewayUnknown:        "A serious error occurred. We have been notified.",
}

// GatewayError carries the gateway's diagnostic detail for logs while
// UserMessage gives the text shown to the customer.
type GatewayError struct {
	Code        GatewayErrorCode
	Message     string
	DeclineCode string
	HTTPStatus  int
	RequestID   string
	Err         error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s", e.Code)
	if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(" (status %d)", e.HTTPStatus)
	}
	if e.DeclineCode != "" {
		msg += " decline_code=" + e.DeclineCode
	}
	if e.RequestID != "" {
		msg += " request_id=" + e.RequestID
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil && e.Message == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// UserMessage is safe to show to the customer. Card declines surface the
// gateway's own explanation.
func (e *GatewayError) UserMessage() string {
	if e.Code == GatewayCardDeclined && e.Message != "" {
		return e.Message
	}
	if msg, ok := gatewayMessages[e.Code]; ok {
		return msg
	}
	return gatewayMessages[GatewayUnknown]
}
