package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWave(t *testing.T, handler http.HandlerFunc) *WaveGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := NewWaveGatewayWithClient(&WaveGatewayConfig{
		BaseURL:    srv.URL,
		APIKey:     "wave_sn_test",
		SuccessURL: "https://tickets.test/success",
		ErrorURL:   "https://tickets.test/error",
	}, srv.Client())
	require.NoError(t, err)
	return gw
}

func TestNewWaveGateway_Validation(t *testing.T) {
	_, err := NewWaveGatewayWithClient(nil, http.DefaultClient)
	assert.Error(t, err)
	_, err = NewWaveGatewayWithClient(&WaveGatewayConfig{BaseURL: "https://api.wave.com"}, http.DefaultClient)
	assert.Error(t, err)
	_, err = NewWaveGatewayWithClient(&WaveGatewayConfig{APIKey: "k", BaseURL: "::"}, http.DefaultClient)
	assert.Error(t, err)
}

func TestWaveGateway_LookupCompleted(t *testing.T) {
	gw := newTestWave(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/search", r.URL.Path)
		assert.Equal(t, "ref-1", r.URL.Query().Get("client_reference"))
		assert.Equal(t, "Bearer wave_sn_test", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(waveSearchResponse{Result: []waveSession{
			{ID: "cos-old", Status: "expired", ClientReference: "ref-1"},
			{ID: "cos-1", Status: "completed", ClientReference: "ref-1", TransactionID: "T_123"},
		}})
	})

	result, err := gw.Lookup(context.Background(), "ref-1")
	require.NoError(t, err)

	assert.True(t, result.Paid)
	assert.Equal(t, domain.GatewayWave, result.Gateway)
	assert.Equal(t, "ref-1", result.CorrelationReference)
	assert.Equal(t, "T_123", result.TransactionID)
	assert.False(t, result.CanRefund(), "wave exposes no refund")
}

func TestWaveGateway_LookupPaymentStatusPaid(t *testing.T) {
	gw := newTestWave(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(waveSearchResponse{Result: []waveSession{
			{ID: "cos-2", CheckoutStatus: "open", PaymentStatus: "paid"},
		}})
	})

	result, err := gw.Lookup(context.Background(), "ref-2")
	require.NoError(t, err)
	assert.True(t, result.Paid)
}

func TestWaveGateway_LookupNotPaid(t *testing.T) {
	gw := newTestWave(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[{"id":"cos-3","checkout_status":"expired","payment_status":"cancelled","last_payment_error":{"code":"insufficient-funds","message":"Insufficient funds"}}]}`))
	})

	result, err := gw.Lookup(context.Background(), "ref-3")
	require.NoError(t, err)
	assert.False(t, result.Paid)
	assert.Equal(t, "Insufficient funds", result.FailureDetail)
}

func TestWaveGateway_LookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "empty search",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"result":[]}`)) },
			want:    ErrSessionNotFound,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    ErrUnavailable,
		},
		{
			name:    "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			want:    ErrRejected,
		},
		{
			name:    "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
			want:    ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestWave(t, tt.handler)
			_, err := gw.Lookup(context.Background(), "ref-x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWaveGateway_LookupTimeoutIsUnavailable(t *testing.T) {
	gw := newTestWave(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := gw.Lookup(ctx, "ref-slow")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWaveGateway_CreateCheckout(t *testing.T) {
	gw := newTestWave(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "ref-5", r.Header.Get("Idempotency-Key"))

		var body waveCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "10000", body.Amount)
		assert.Equal(t, "XOF", body.Currency)
		assert.Equal(t, "ref-5", body.ClientReference)

		_ = json.NewEncoder(w).Encode(waveSession{ID: "cos-5", LaunchURL: "https://pay.wave.com/c/cos-5"})
	})

	sess, err := gw.CreateCheckout(context.Background(), &CheckoutRequest{
		Reference: "ref-5",
		Amount:    decimal.NewFromInt(10000),
		Currency:  "xof",
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, "cos-5", sess.SessionID)
	assert.Equal(t, "https://pay.wave.com/c/cos-5", sess.URL)
}
