package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/storefront/internal/services"
)

// Gateway steps a FakeGateway can be told to fail at.
const (
	StepCreateCustomer = "create_customer"
	StepAttachSource   = "attach_source"
	StepCharge         = "charge"
)

// FakeGateway is an in-memory services.Gateway that records every call.
type FakeGateway struct {
	mu sync.Mutex

	// FailStep makes the named step fail with FailCode.
	FailStep string
	FailCode services.GatewayErrorCode

	Calls     []string
	Customers []string
	Sources   map[string][]string
	Charges   []services.ChargeRequest
}

// NewFakeGateway returns a gateway that succeeds at every step.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Sources: make(map[string][]string)}
}

func (g *FakeGateway) fail(step string) error {
	g.Calls = append(g.Calls, step)
	if g.FailStep != step {
		return nil
	}
	return &services.GatewayError{
		Code:    g.FailCode,
		Message: "Your card was declined.",
	}
}

func (g *FakeGateway) CreateCustomer(_ context.Context, email string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.fail(StepCreateCustomer); err != nil {
		return "", err
	}
	id := fmt.Sprintf("cus_%d", len(g.Customers)+1)
	g.Customers = append(g.Customers, email)
	return id, nil
}

// AttachSource records token under the customer and returns "card_<token>".
func (g *FakeGateway) AttachSource(_ context.Context, customerID, token string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.fail(StepAttachSource); err != nil {
		return "", err
	}
	g.Sources[customerID] = append(g.Sources[customerID], token)
	return "card_" + token, nil
}

func (g *FakeGateway) Charge(_ context.Context, req services.ChargeRequest) (*services.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.fail(StepCharge); err != nil {
		return nil, err
	}
	g.Charges = append(g.Charges, req)
	return &services.ChargeResult{ChargeID: fmt.Sprintf("ch_%d", len(g.Charges))}, nil
}

// ChargeCount reports how many charges succeeded.
func (g *FakeGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Charges)
}

// CallCount reports how many gateway calls were made.
func (g *FakeGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}
