package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/gateway"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
	"github.com/prohmpiriya/event-ticketing/pkg/logger"
	"github.com/prohmpiriya/event-ticketing/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MaxTicketsPerPurchase caps the quantity of one purchase
const MaxTicketsPerPurchase = 10

// PurchaseRequest starts a purchase for one ticket class
type PurchaseRequest struct {
	UserID     string
	EventID    string
	TicketType domain.TicketType
	Quantity   int
	Gateway    domain.Gateway
}

// PurchaseResult carries what the buyer needs to pay and verify
type PurchaseResult struct {
	Payment     *domain.Payment
	Tickets     []*domain.Ticket
	CheckoutURL string
	SessionID   string
	// VerifyReference is the reference to pass to VerifyPayment
	VerifyReference string
}

// PurchaseService opens payments for tickets
type PurchaseService interface {
	InitiatePurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error)
}

// PurchaseServiceConfig holds purchase settings
type PurchaseServiceConfig struct {
	GatewayTimeout time.Duration
}

type purchaseService struct {
	gateways *gateway.Registry
	repos    *repository.Repositories
	config   *PurchaseServiceConfig
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(gateways *gateway.Registry, repos *repository.Repositories, config *PurchaseServiceConfig) PurchaseService {
	if config == nil {
		config = &PurchaseServiceConfig{}
	}
	if config.GatewayTimeout <= 0 {
		config.GatewayTimeout = 10 * time.Second
	}
	return &purchaseService{gateways: gateways, repos: repos, config: config}
}

// InitiatePurchase creates a pending payment with its tickets and opens a
// checkout session. Inventory is only consumed at verification.
func (s *purchaseService) InitiatePurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.purchase.initiate")
	defer span.End()

	if req == nil || req.Quantity < 1 || req.Quantity > MaxTicketsPerPurchase {
		return nil, domain.ErrInvalidQuantity
	}
	ticketType, err := domain.ParseTicketType(string(req.TicketType))
	if err != nil {
		return nil, err
	}
	gw, err := s.gateways.Get(req.Gateway)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("event_id", req.EventID),
		attribute.String("payment.gateway", string(req.Gateway)),
		attribute.Int("ticket_count", req.Quantity),
	)

	event, err := s.repos.Events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.IsPast(time.Now()) {
		return nil, domain.ErrEventPast
	}
	class := event.Class(ticketType)
	if !class.Price.IsPositive() || class.Quantity == 0 {
		return nil, domain.ErrClassNotOnSale
	}
	if class.Remaining() < req.Quantity {
		return nil, domain.ErrCapacityExceeded
	}

	buyer, err := s.repos.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	payment, err := domain.NewPayment(event.ID, buyer.ID, gw.Name(), domain.LineTotal(class.Price, req.Quantity), event.Currency)
	if err != nil {
		return nil, err
	}
	tickets := domain.NewTickets(payment, ticketType, req.Quantity)
	if err := s.repos.Payments.Create(ctx, payment, tickets); err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	log := logger.Get().With(zap.String("reference", payment.Reference), zap.String("gateway", string(gw.Name())))

	checkoutCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	session, err := gw.CreateCheckout(checkoutCtx, &gateway.CheckoutRequest{
		Reference:   payment.Reference,
		Amount:      payment.Amount,
		UnitPrice:   class.Price,
		Quantity:    req.Quantity,
		Currency:    payment.Currency,
		Description: fmt.Sprintf("%d x %s ticket, %s", req.Quantity, ticketType, event.Name),
		Email:       buyer.Email,
	})
	cancel()
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		log.Warn("Checkout creation failed, closing payment", zap.Error(err))
		if _, settleErr := s.repos.Settlements.Settle(ctx, domain.Settlement{
			Reference:     payment.Reference,
			Outcome:       domain.OutcomeFailed,
			FailureReason: "checkout creation failed",
		}); settleErr != nil {
			log.Error("Failed to close payment after checkout error", zap.Error(settleErr))
		}
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}

	if err := s.repos.Payments.SetCheckoutURL(ctx, payment.Reference, session.URL); err != nil {
		return nil, fmt.Errorf("failed to save checkout url: %w", err)
	}
	payment.CheckoutURL = session.URL

	verifyRef := payment.Reference
	if gw.Name() == domain.GatewayStripe {
		verifyRef = session.SessionID
	}

	log.Info("Purchase initiated",
		zap.String("event_id", event.ID),
		zap.String("ticket_type", string(ticketType)),
		zap.Int("ticket_count", req.Quantity),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)

	return &PurchaseResult{
		Payment:         payment,
		Tickets:         tickets,
		CheckoutURL:     session.URL,
		SessionID:       session.SessionID,
		VerifyReference: verifyRef,
	}, nil
}
