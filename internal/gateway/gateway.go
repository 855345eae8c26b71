package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable covers network failures, timeouts and 5xx answers.
	// Nothing is known about the payment, so callers must not mutate state.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrSessionNotFound means the gateway has no session for the reference
	ErrSessionNotFound = errors.New("gateway session not found")
	// ErrRejected means the gateway refused the request as malformed
	ErrRejected = errors.New("gateway rejected request")
	// ErrRefundNotSupported is returned by gateways without a refund API
	ErrRefundNotSupported = errors.New("gateway does not support refunds")
)

// CheckoutRequest opens a hosted payment page for a pending payment
type CheckoutRequest struct {
	Reference   string
	Amount      decimal.Decimal
	UnitPrice   decimal.Decimal
	Quantity    int
	Currency    string
	Description string
	Email       string
}

// CheckoutSession is the gateway side of a started purchase
type CheckoutSession struct {
	SessionID string
	URL       string
}

// Refund causes
const (
	RefundCauseCapacityExceeded  = "capacity_exceeded"
	RefundCauseVerificationError = "verification_error"
)

// RefundRequest reverses a captured charge
type RefundRequest struct {
	Reference       string
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	// Cause is recorded on the refund, capacity_exceeded when empty
	Cause string
}

// Refunder is implemented by gateways able to reverse a capture
type Refunder interface {
	Refund(ctx context.Context, req *RefundRequest) error
}

// PaymentResult is the gateway-neutral answer to "was this paid".
// Refunder is nil when the gateway offers no compensating refund.
type PaymentResult struct {
	Gateway              domain.Gateway
	Paid                 bool
	RawStatus            string
	CorrelationReference string
	PaymentIntentID      string
	TransactionID        string
	FailureDetail        string
	Refunder             Refunder
}

// CanRefund reports whether a compensating refund can be issued
func (r *PaymentResult) CanRefund() bool {
	return r.Refunder != nil
}

// PaymentGateway is one external payment processor
type PaymentGateway interface {
	Name() domain.Gateway
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	// Lookup resolves the authoritative status of the session behind reference
	Lookup(ctx context.Context, reference string) (*PaymentResult, error)
}

// Registry resolves gateways by name
type Registry struct {
	gateways map[domain.Gateway]PaymentGateway
}

// NewRegistry builds a registry from the given gateways
func NewRegistry(gateways ...PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[domain.Gateway]PaymentGateway, len(gateways))}
	for _, g := range gateways {
		if g != nil {
			r.gateways[g.Name()] = g
		}
	}
	return r
}

// Get returns the gateway registered under name
func (r *Registry) Get(name domain.Gateway) (PaymentGateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownGateway, name)
	}
	return g, nil
}

// Names lists registered gateways
func (r *Registry) Names() []domain.Gateway {
	names := make([]domain.Gateway, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}

// unavailable wraps err so errors.Is(err, ErrUnavailable) holds
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
