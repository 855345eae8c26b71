package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// stripeSessions is the subset of the checkout session client we call
type stripeSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// stripeRefunds is the subset of the refund client we call
type stripeRefunds interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeGatewayConfig holds configuration for the card gateway
type StripeGatewayConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// StripeGateway implements PaymentGateway on Stripe Checkout. The API key
// lives on a per-gateway client, never on the stripe package default.
type StripeGateway struct {
	config   *StripeGatewayConfig
	sessions stripeSessions
	refunds  stripeRefunds
}

// NewStripeGateway creates a Stripe gateway with its own API client
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	sc := client.New(config.SecretKey, stripe.NewBackends(httpClient))

	return newStripeGateway(config, sc.CheckoutSessions, sc.Refunds), nil
}

func newStripeGateway(config *StripeGatewayConfig, sessions stripeSessions, refunds stripeRefunds) *StripeGateway {
	return &StripeGateway{
		config:   config,
		sessions: sessions,
		refunds:  refunds,
	}
}

// Name returns the gateway name
func (g *StripeGateway) Name() domain.Gateway {
	return domain.GatewayStripe
}

// CreateCheckout opens a hosted checkout whose client_reference_id is the
// payment reference
func (g *StripeGateway) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	if req == nil || req.Reference == "" {
		return nil, fmt.Errorf("%w: checkout reference is required", ErrRejected)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(g.config.SuccessURL),
		CancelURL:         stripe.String(g.config.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(domain.ToMinorUnits(req.UnitPrice, req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"reference": req.Reference},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.Reference)

	sess, err := g.sessions.New(params)
	if err != nil {
		return nil, classifyStripeError("create checkout session", err)
	}

	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// Lookup retrieves a checkout session by id. The payment is correlated
// through the session's client_reference_id.
func (g *StripeGateway) Lookup(ctx context.Context, sessionID string) (*PaymentResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrRejected)
	}

	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent")
	params.AddExpand("payment_intent.latest_charge")
	params.Context = ctx

	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return nil, classifyStripeError("retrieve checkout session", err)
	}

	return g.resultFrom(sess), nil
}

func (g *StripeGateway) resultFrom(sess *stripe.CheckoutSession) *PaymentResult {
	result := &PaymentResult{
		Gateway:              domain.GatewayStripe,
		Paid:                 sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		RawStatus:            string(sess.PaymentStatus),
		CorrelationReference: sess.ClientReferenceID,
		Refunder:             g,
	}

	if pi := sess.PaymentIntent; pi != nil {
		result.PaymentIntentID = pi.ID
		if pi.LatestCharge != nil {
			result.TransactionID = pi.LatestCharge.ID
		}
		if pi.LastPaymentError != nil {
			result.FailureDetail = pi.LastPaymentError.Msg
		}
	}

	return result
}

// Refund reverses the capture behind a payment intent. The idempotency key
// makes racing compensations for one reference collapse into one refund.
func (g *StripeGateway) Refund(ctx context.Context, req *RefundRequest) error {
	if req == nil || req.PaymentIntentID == "" {
		return fmt.Errorf("%w: payment intent id is required", ErrRejected)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.AddMetadata("reference", req.Reference)
	cause := req.Cause
	if cause == "" {
		cause = RefundCauseCapacityExceeded
	}
	params.AddMetadata("cause", cause)
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + req.Reference)

	if _, err := g.refunds.New(params); err != nil {
		return classifyStripeError("create refund", err)
	}
	return nil
}

// classifyStripeError separates answers about the request from failures to
// get an answer at all
func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", op, ErrSessionNotFound, stripeErr.Msg)
		case stripeErr.HTTPStatusCode >= 500, stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
			return unavailable(op, err)
		case stripeErr.HTTPStatusCode >= 400:
			return fmt.Errorf("%s: %w: %s", op, ErrRejected, stripeErr.Msg)
		}
	}
	return unavailable(op, err)
}
