package gateway

import (
	"fmt"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/pkg/config"
	"github.com/prohmpiriya/event-ticketing/pkg/logger"
	"go.uber.org/zap"
)

// NewRegistryFromConfig builds the gateways selected by cfg.Gateway.Mode.
// In live mode a gateway without credentials is left out with a warning.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	log := logger.Get()

	if cfg.UseMockGateways() {
		mockCfg := DefaultMockGatewayConfig()
		log.Info("Using mock payment gateways")
		return NewRegistry(
			NewMockGateway(domain.GatewayStripe, mockCfg),
			NewMockGateway(domain.GatewayWave, &MockGatewayConfig{
				SuccessRate:     mockCfg.SuccessRate,
				DelayMs:         mockCfg.DelayMs,
				CheckoutBaseURL: mockCfg.CheckoutBaseURL,
			}),
		), nil
	}

	var gateways []PaymentGateway

	if cfg.Stripe.SecretKey != "" {
		stripeGW, err := NewStripeGateway(&StripeGatewayConfig{
			SecretKey:  cfg.Stripe.SecretKey,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
			Timeout:    cfg.Gateway.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stripe gateway: %w", err)
		}
		gateways = append(gateways, stripeGW)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, stripe gateway disabled")
	}

	if cfg.Wave.APIKey != "" {
		waveGW, err := NewWaveGateway(&WaveGatewayConfig{
			BaseURL:    cfg.Wave.BaseURL,
			APIKey:     cfg.Wave.APIKey,
			SuccessURL: cfg.Wave.SuccessURL,
			ErrorURL:   cfg.Wave.ErrorURL,
			Timeout:    cfg.Gateway.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create wave gateway: %w", err)
		}
		gateways = append(gateways, waveGW)
	} else {
		log.Warn("WAVE_API_KEY not set, wave gateway disabled")
	}

	registry := NewRegistry(gateways...)
	log.Info("Payment gateways ready", zap.Any("gateways", registry.Names()))
	return registry, nil
}
