package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

type fakeSessions struct {
	session   *stripe.CheckoutSession
	err       error
	newParams *stripe.CheckoutSessionParams
	getID     string
	getParams *stripe.CheckoutSessionParams
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.newParams = params
	return f.session, f.err
}

func (f *fakeSessions) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.getID = id
	f.getParams = params
	return f.session, f.err
}

type fakeRefunds struct {
	params *stripe.RefundParams
	err    error
}

func (f *fakeRefunds) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Refund{ID: "re_1"}, nil
}

func newTestStripe(sessions *fakeSessions, refunds *fakeRefunds) *StripeGateway {
	return newStripeGateway(&StripeGatewayConfig{
		SecretKey:  "sk_test_123",
		SuccessURL: "https://tickets.test/success",
		CancelURL:  "https://tickets.test/cancel",
	}, sessions, refunds)
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(nil)
	assert.Error(t, err)
	_, err = NewStripeGateway(&StripeGatewayConfig{})
	assert.Error(t, err)

	gw, err := NewStripeGateway(&StripeGatewayConfig{SecretKey: "sk_test_123"})
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStripe, gw.Name())
	assert.Empty(t, stripe.Key, "key must not leak into the package default")
}

func TestStripeGateway_LookupPaid(t *testing.T) {
	sessions := &fakeSessions{session: &stripe.CheckoutSession{
		ID:                "cs_test_1",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: "ref-1",
		PaymentIntent: &stripe.PaymentIntent{
			ID:           "pi_1",
			LatestCharge: &stripe.Charge{ID: "ch_1"},
		},
	}}
	gw := newTestStripe(sessions, &fakeRefunds{})

	ctx := context.Background()
	result, err := gw.Lookup(ctx, "cs_test_1")
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", sessions.getID)
	assert.Equal(t, ctx, sessions.getParams.Context)
	require.Len(t, sessions.getParams.Expand, 2)
	assert.Equal(t, "payment_intent", *sessions.getParams.Expand[0])

	assert.True(t, result.Paid)
	assert.Equal(t, "ref-1", result.CorrelationReference)
	assert.Equal(t, "pi_1", result.PaymentIntentID)
	assert.Equal(t, "ch_1", result.TransactionID)
	assert.True(t, result.CanRefund())
}

func TestStripeGateway_LookupUnpaidCarriesFailureDetail(t *testing.T) {
	sessions := &fakeSessions{session: &stripe.CheckoutSession{
		ID:                "cs_test_2",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusUnpaid,
		ClientReferenceID: "ref-2",
		PaymentIntent: &stripe.PaymentIntent{
			ID:               "pi_2",
			LastPaymentError: &stripe.Error{Msg: "Your card was declined."},
		},
	}}
	gw := newTestStripe(sessions, &fakeRefunds{})

	result, err := gw.Lookup(context.Background(), "cs_test_2")
	require.NoError(t, err)

	assert.False(t, result.Paid)
	assert.Equal(t, "unpaid", result.RawStatus)
	assert.Equal(t, "Your card was declined.", result.FailureDetail)
}

func TestStripeGateway_LookupErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not found", err: &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such checkout.session"}, want: ErrSessionNotFound},
		{name: "server error", err: &stripe.Error{HTTPStatusCode: http.StatusBadGateway}, want: ErrUnavailable},
		{name: "rate limited", err: &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}, want: ErrUnavailable},
		{name: "bad request", err: &stripe.Error{HTTPStatusCode: http.StatusBadRequest}, want: ErrRejected},
		{name: "network", err: errors.New("dial tcp: i/o timeout"), want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestStripe(&fakeSessions{err: tt.err}, &fakeRefunds{})
			_, err := gw.Lookup(context.Background(), "cs_x")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	gw := newTestStripe(&fakeSessions{}, &fakeRefunds{})
	_, err := gw.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestStripeGateway_CreateCheckout(t *testing.T) {
	sessions := &fakeSessions{session: &stripe.CheckoutSession{ID: "cs_new", URL: "https://checkout.stripe.com/c/cs_new"}}
	gw := newTestStripe(sessions, &fakeRefunds{})

	sess, err := gw.CreateCheckout(context.Background(), &CheckoutRequest{
		Reference:   "ref-9",
		Amount:      decimal.RequireFromString("51.00"),
		UnitPrice:   decimal.RequireFromString("25.50"),
		Quantity:    2,
		Currency:    "USD",
		Description: "Concert - standard",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_new", sess.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_new", sess.URL)

	p := sessions.newParams
	assert.Equal(t, "ref-9", *p.ClientReferenceID)
	assert.Equal(t, "payment", *p.Mode)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, int64(2550), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, int64(2), *p.LineItems[0].Quantity)
	assert.Equal(t, "checkout-ref-9", *p.IdempotencyKey)
}

func TestStripeGateway_Refund(t *testing.T) {
	refunds := &fakeRefunds{}
	gw := newTestStripe(&fakeSessions{}, refunds)

	err := gw.Refund(context.Background(), &RefundRequest{Reference: "ref-1", PaymentIntentID: "pi_1"})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", *refunds.params.PaymentIntent)
	assert.Equal(t, "refund-ref-1", *refunds.params.IdempotencyKey)
	assert.Equal(t, "ref-1", refunds.params.Metadata["reference"])
	assert.Equal(t, RefundCauseCapacityExceeded, refunds.params.Metadata["cause"])

	require.NoError(t, gw.Refund(context.Background(), &RefundRequest{Reference: "ref-2", PaymentIntentID: "pi_2", Cause: RefundCauseVerificationError}))
	assert.Equal(t, RefundCauseVerificationError, refunds.params.Metadata["cause"])

	assert.ErrorIs(t, gw.Refund(context.Background(), &RefundRequest{Reference: "ref-1"}), ErrRejected)

	refunds.err = &stripe.Error{HTTPStatusCode: http.StatusServiceUnavailable}
	assert.ErrorIs(t, gw.Refund(context.Background(), &RefundRequest{Reference: "ref-1", PaymentIntentID: "pi_1"}), ErrUnavailable)
}
