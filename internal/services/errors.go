package services

import "errors"

// ErrorKind classifies domain errors for the transport layer.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindState
	KindGateway
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindGateway:
		return "gateway"
	case KindUnexpected:
		return "unexpected"
	}
	return "unknown"
}

// Error is a domain error with a client-facing message. Err keeps the
// underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind and message so a sentinel still
// matches after it has been wrapped with a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: cause}
}

var (
	ErrUserNotFound           = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrItemNotFound           = &Error{Kind: KindNotFound, Message: "item not found"}
	ErrInsufficientOptions    = &Error{Kind: KindValidation, Message: "Please specify the required options."}
	ErrUnknownOptionValue     = &Error{Kind: KindValidation, Message: "One or more selected options do not belong to this item."}
	ErrNoActiveOrder          = &Error{Kind: KindState, Message: "You do not have an active order."}
	ErrItemNotInCart          = &Error{Kind: KindState, Message: "This item was not in your cart."}
	ErrEmptyCart              = &Error{Kind: KindState, Message: "Your cart is empty."}
	ErrConcurrentCartUpdate   = &Error{Kind: KindState, Message: "Your cart changed while processing the request. Please try again."}
	ErrOrderItemNotFound      = &Error{Kind: KindNotFound, Message: "order item not found"}
	ErrOrderItemFinalized     = &Error{Kind: KindState, Message: "This item belongs to a completed order."}
	ErrOrderNotFound          = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrCouponNotFound         = &Error{Kind: KindNotFound, Message: "Invalid coupon code."}
	ErrAddressNotFound        = &Error{Kind: KindNotFound, Message: "address not found"}
	ErrRefundAlreadyRequested = &Error{Kind: KindState, Message: "A refund was already requested for this order."}
	ErrNothingToCharge        = &Error{Kind: KindValidation, Message: "The order total must be greater than zero."}
	ErrPaymentUnreconciled    = &Error{Kind: KindUnexpected, Message: "Your payment was received but the order could not be completed. Our team has been notified."}
	ErrUnexpected             = &Error{Kind: KindUnexpected, Message: "Something went wrong. You were not charged. Please try again."}
)

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf reports the kind of a domain error, or zero for anything else.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return KindGateway
	}
	return 0
}
