package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
)

// alphanumericChars for generating gateway-like session IDs
const alphanumericChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomAlphanumeric(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumericChars[rand.Intn(len(alphanumericChars))]
	}
	return string(b)
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// SuccessRate is the probability a session resolves as paid (0.0 to 1.0)
	SuccessRate float64
	// DelayMs is the simulated round trip in milliseconds
	DelayMs int
	// CheckoutBaseURL prefixes generated checkout links
	CheckoutBaseURL string
	// Refundable controls whether results expose a refund capability
	Refundable bool
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		SuccessRate:     1.0,
		DelayMs:         50,
		CheckoutBaseURL: "http://localhost:3000/mock-checkout",
		Refundable:      true,
	}
}

type mockSession struct {
	id        string
	reference string
	paid      bool
	refunded  bool
}

// MockGateway simulates a processor in memory for local runs and load tests.
// Stripe-named mocks are looked up by session id, others by reference,
// matching the real adapters.
type MockGateway struct {
	name   domain.Gateway
	config *MockGatewayConfig

	mu          sync.Mutex
	bySession   map[string]*mockSession
	byReference map[string]*mockSession
	refunds     []string
}

// NewMockGateway creates a mock gateway answering as name
func NewMockGateway(name domain.Gateway, config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}
	return &MockGateway{
		name:        name,
		config:      config,
		bySession:   make(map[string]*mockSession),
		byReference: make(map[string]*mockSession),
	}
}

// Name returns the gateway name
func (g *MockGateway) Name() domain.Gateway {
	return g.name
}

func (g *MockGateway) simulateLatency(ctx context.Context) error {
	if g.config.DelayMs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return unavailable("mock gateway", ctx.Err())
	case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		return nil
	}
}

// CreateCheckout records a session that resolves according to SuccessRate
func (g *MockGateway) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	if req == nil || req.Reference == "" {
		return nil, fmt.Errorf("%w: checkout reference is required", ErrRejected)
	}
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	sess := &mockSession{
		id:        fmt.Sprintf("mock_%s_%s", g.name, randomAlphanumeric(16)),
		reference: req.Reference,
		paid:      rand.Float64() < g.config.SuccessRate,
	}

	g.mu.Lock()
	g.bySession[sess.id] = sess
	g.byReference[sess.reference] = sess
	g.mu.Unlock()

	return &CheckoutSession{
		SessionID: sess.id,
		URL:       fmt.Sprintf("%s/%s?gateway=%s&reference=%s", g.config.CheckoutBaseURL, sess.id, g.name, g.lookupKey(sess)),
	}, nil
}

// Lookup returns the simulated session outcome
func (g *MockGateway) Lookup(ctx context.Context, key string) (*PaymentResult, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	index := g.byReference
	if g.name == domain.GatewayStripe {
		index = g.bySession
	}
	sess, ok := index[key]
	if !ok {
		return nil, fmt.Errorf("mock lookup %s: %w", key, ErrSessionNotFound)
	}

	result := &PaymentResult{
		Gateway:              g.name,
		Paid:                 sess.paid,
		RawStatus:            "unpaid",
		CorrelationReference: sess.reference,
		PaymentIntentID:      "pi_" + sess.id,
		TransactionID:        "txn_" + sess.id,
	}
	if sess.paid {
		result.RawStatus = "paid"
	} else {
		result.FailureDetail = "card_declined"
	}
	if g.config.Refundable {
		result.Refunder = g
	}
	return result, nil
}

// Refund marks the session refunded
func (g *MockGateway) Refund(ctx context.Context, req *RefundRequest) error {
	if req == nil {
		return fmt.Errorf("%w: refund request is required", ErrRejected)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if sess, ok := g.byReference[req.Reference]; ok {
		sess.refunded = true
	}
	g.refunds = append(g.refunds, req.Reference)
	return nil
}

// SetPaid forces the outcome of the session for reference
func (g *MockGateway) SetPaid(reference string, paid bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sess, ok := g.byReference[reference]; ok {
		sess.paid = paid
	}
}

// Refunds returns the references refunded so far
func (g *MockGateway) Refunds() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.refunds...)
}

func (g *MockGateway) lookupKey(s *mockSession) string {
	if g.name == domain.GatewayStripe {
		return s.id
	}
	return s.reference
}
