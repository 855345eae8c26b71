package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const waveMaxErrorBody = 4 << 10

// WaveGatewayConfig holds configuration for the mobile-money gateway
type WaveGatewayConfig struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	ErrorURL   string
	Timeout    time.Duration
}

// WaveGateway implements PaymentGateway on the Wave checkout API. The bearer
// key is attached to each request, the shared HTTP client carries no auth.
type WaveGateway struct {
	config *WaveGatewayConfig
	http   *http.Client
}

// waveSession is the checkout session resource
type waveSession struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ClientReference string `json:"client_reference"`
	CheckoutStatus  string `json:"checkout_status"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	TransactionID   string `json:"transaction_id"`
	LaunchURL       string `json:"wave_launch_url"`
	LastPaymentErr  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error,omitempty"`
}

type waveSearchResponse struct {
	Result []waveSession `json:"result"`
}

type waveCreateRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ClientReference string `json:"client_reference"`
	SuccessURL      string `json:"success_url"`
	ErrorURL        string `json:"error_url"`
}

// NewWaveGateway creates a Wave gateway with a traced HTTP client
func NewWaveGateway(config *WaveGatewayConfig) (*WaveGateway, error) {
	return NewWaveGatewayWithClient(config, &http.Client{
		Timeout:   config.timeout(),
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWaveGatewayWithClient creates a Wave gateway on a caller-provided client
func NewWaveGatewayWithClient(config *WaveGatewayConfig, httpClient *http.Client) (*WaveGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("wave config is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("wave api key is required")
	}
	if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid wave base url: %w", err)
	}
	return &WaveGateway{config: config, http: httpClient}, nil
}

func (c *WaveGatewayConfig) timeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Timeout
}

// Name returns the gateway name
func (g *WaveGateway) Name() domain.Gateway {
	return domain.GatewayWave
}

// CreateCheckout opens a Wave checkout session whose client_reference is the
// payment reference
func (g *WaveGateway) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	if req == nil || req.Reference == "" {
		return nil, fmt.Errorf("%w: checkout reference is required", ErrRejected)
	}

	body, err := json.Marshal(waveCreateRequest{
		Amount:          req.Amount.StringFixed(amountPlaces(req.Currency)),
		Currency:        strings.ToUpper(req.Currency),
		ClientReference: req.Reference,
		SuccessURL:      g.config.SuccessURL,
		ErrorURL:        g.config.ErrorURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode wave checkout: %w", err)
	}

	var sess waveSession
	if err := g.do(ctx, http.MethodPost, "/v1/checkout/sessions", bytes.NewReader(body), req.Reference, &sess); err != nil {
		return nil, err
	}

	return &CheckoutSession{SessionID: sess.ID, URL: sess.LaunchURL}, nil
}

// Lookup finds the checkout session opened for the payment reference
func (g *WaveGateway) Lookup(ctx context.Context, reference string) (*PaymentResult, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrRejected)
	}

	path := "/v1/checkout/sessions/search?client_reference=" + url.QueryEscape(reference)
	var resp waveSearchResponse
	if err := g.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("wave lookup %s: %w", reference, ErrSessionNotFound)
	}

	// A reference may have several sessions after a retried checkout,
	// any paid one settles it
	sess := resp.Result[len(resp.Result)-1]
	for _, s := range resp.Result {
		if waveIsPaid(&s) {
			sess = s
			break
		}
	}

	result := &PaymentResult{
		Gateway:              domain.GatewayWave,
		Paid:                 waveIsPaid(&sess),
		RawStatus:            firstNonEmpty(sess.Status, sess.CheckoutStatus, sess.PaymentStatus),
		CorrelationReference: reference,
		TransactionID:        firstNonEmpty(sess.TransactionID, sess.ID),
	}
	if sess.LastPaymentErr != nil {
		result.FailureDetail = sess.LastPaymentErr.Message
	}
	return result, nil
}

// waveIsPaid accepts both the session status and the payment status vocabularies
func waveIsPaid(s *waveSession) bool {
	switch strings.ToLower(firstNonEmpty(s.Status, s.CheckoutStatus)) {
	case "completed", "complete":
		return true
	}
	switch strings.ToLower(s.PaymentStatus) {
	case "paid", "succeeded":
		return true
	}
	return false
}

func (g *WaveGateway) do(ctx context.Context, method, path string, body io.Reader, idempotencyKey string, out any) error {
	op := fmt.Sprintf("wave %s %s", method, strings.SplitN(path, "?", 2)[0])

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(g.config.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return unavailable(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return unavailable(op, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, waveMaxErrorBody))
		return fmt.Errorf("%s: %w: status %d: %s", op, ErrRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func amountPlaces(currency string) int32 {
	if domain.IsZeroDecimal(currency) {
		return 0
	}
	return 2
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
