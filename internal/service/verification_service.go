package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/events"
	"github.com/prohmpiriya/event-ticketing/internal/gateway"
	"github.com/prohmpiriya/event-ticketing/internal/metrics"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
	"github.com/prohmpiriya/event-ticketing/pkg/logger"
	"github.com/prohmpiriya/event-ticketing/pkg/retry"
	"github.com/prohmpiriya/event-ticketing/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// VerificationResult is the committed outcome of a verification
type VerificationResult struct {
	Outcome domain.Outcome
	Message string
	Details *domain.PaymentDetails
	// AlreadySettled is true when an earlier call had committed the outcome
	AlreadySettled bool
	// RefundIssued is true when a compensating refund reached the gateway
	RefundIssued  bool
	FailureDetail string
}

// VerificationService settles pending payments against their gateway
type VerificationService interface {
	// VerifyPayment looks up reference at the named gateway and applies
	// exactly one terminal outcome to the payment, its tickets and event
	// inventory. Failures are *VerificationError.
	VerifyPayment(ctx context.Context, gatewayName, reference string) (*VerificationResult, error)
}

// VerificationServiceConfig holds verification settings
type VerificationServiceConfig struct {
	// GatewayTimeout bounds each lookup and refund call
	GatewayTimeout time.Duration
	// Recovery drives the best-effort mark-as-failed after unexpected errors
	Recovery *retry.Config
	Logger   *logger.Logger
}

type verificationService struct {
	gateways    *gateway.Registry
	payments    repository.PaymentRepository
	settlements repository.SettlementRepository
	publisher   events.Publisher
	config      *VerificationServiceConfig
	log         *logger.Logger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	gateways *gateway.Registry,
	payments repository.PaymentRepository,
	settlements repository.SettlementRepository,
	publisher events.Publisher,
	config *VerificationServiceConfig,
) VerificationService {
	if config == nil {
		config = &VerificationServiceConfig{}
	}
	if config.GatewayTimeout <= 0 {
		config.GatewayTimeout = 10 * time.Second
	}
	if config.Recovery == nil {
		config.Recovery = retry.DefaultConfig()
	}
	if publisher == nil {
		publisher = events.NewNoOpPublisher()
	}
	log := config.Logger
	if log == nil {
		log = logger.Get()
	}

	return &verificationService{
		gateways:    gateways,
		payments:    payments,
		settlements: settlements,
		publisher:   publisher,
		config:      config,
		log:         log,
	}
}

// VerifyPayment resolves and settles one payment
func (s *verificationService) VerifyPayment(ctx context.Context, gatewayName, reference string) (*VerificationResult, error) {
	start := time.Now()
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, newVerificationError(KindInvalidInput, "reference is required", nil)
	}
	name, err := domain.ParseGateway(gatewayName)
	if err != nil {
		return nil, newVerificationError(KindInvalidInput, fmt.Sprintf("unsupported gateway %q", gatewayName), err)
	}
	gw, err := s.gateways.Get(name)
	if err != nil {
		return nil, newVerificationError(KindInvalidInput, fmt.Sprintf("gateway %s is not configured", name), err)
	}

	ctx, span := telemetry.StartSpan(ctx, "verification.verify_payment")
	defer span.End()
	telemetry.SetSpanAttributes(ctx,
		attribute.String("payment.gateway", string(name)),
		attribute.String("payment.lookup_reference", reference),
	)

	result, err := s.verify(ctx, gw, reference)

	outcome := metrics.OutcomeError
	switch {
	case err == nil:
		outcome = string(result.Outcome)
	case KindOf(err) == KindPaymentNotFound:
		outcome = metrics.OutcomeNotFound
	}
	metrics.ObserveVerification(string(name), outcome, time.Since(start))

	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}
	telemetry.SetSpanAttributes(ctx, attribute.String("payment.outcome", string(result.Outcome)))
	return result, nil
}

func (s *verificationService) verify(ctx context.Context, gw gateway.PaymentGateway, reference string) (*VerificationResult, error) {
	name := gw.Name()
	log := s.log.With(zap.String("gateway", string(name)), zap.String("lookup_reference", reference))

	paid, err := s.lookup(ctx, gw, reference)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrSessionNotFound):
			return nil, newVerificationError(KindPaymentNotFound, "no gateway session matches the reference", err)
		case errors.Is(err, gateway.ErrRejected):
			return nil, newVerificationError(KindInvalidInput, "gateway rejected the reference", err)
		}
		log.Warn("Gateway lookup failed, nothing was changed", zap.Error(err))
		return nil, newVerificationError(KindGatewayUnavailable, "payment gateway is unavailable, retry later", err)
	}

	ref := paid.CorrelationReference
	if ref == "" {
		return nil, newVerificationError(KindPaymentNotFound, "gateway session carries no payment reference", domain.ErrPaymentNotFound)
	}
	log = log.With(zap.String("reference", ref))

	if !paid.Paid {
		return s.settleFailed(ctx, log, paid)
	}

	details, err := s.payments.GetDetailsByReference(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			log.Warn("Paid session has no local payment")
			return nil, newVerificationError(KindPaymentNotFound, "payment not found", err)
		}
		return nil, s.markFailed(ctx, log, ref, paid, err)
	}
	if details.Payment.Gateway != name {
		log.Warn("Gateway session belongs to a payment made elsewhere",
			zap.String("payment_gateway", string(details.Payment.Gateway)),
		)
		return nil, newVerificationError(KindInvalidInput,
			fmt.Sprintf("payment was not made through %s", name), domain.ErrGatewayMismatch)
	}
	if details.Payment.Status.IsFinal() {
		return alreadySettled(details), nil
	}

	ticketType, err := details.TicketType()
	if err != nil {
		return nil, s.markFailed(ctx, log, ref, paid, err)
	}

	settled, err := s.settlements.Settle(ctx, domain.Settlement{
		Reference:              ref,
		Outcome:                domain.OutcomeSuccess,
		TicketType:             ticketType,
		TicketCount:            len(details.Tickets),
		GatewayPaymentIntentID: paid.PaymentIntentID,
		GatewayTransactionID:   paid.TransactionID,
	})
	switch {
	case err == nil:
		metrics.TicketsSold(string(ticketType), len(settled.Tickets))
		log.Info("Payment verified",
			zap.String("outcome", string(domain.OutcomeSuccess)),
			zap.String("ticket_type", string(ticketType)),
			zap.Int("ticket_count", len(settled.Tickets)),
		)
		s.publish(ctx, log, settled, domain.OutcomeSuccess)
		return &VerificationResult{
			Outcome: domain.OutcomeSuccess,
			Message: fmt.Sprintf("payment verified, %d %s ticket(s) confirmed", len(settled.Tickets), ticketType),
			Details: settled,
		}, nil
	case errors.Is(err, domain.ErrPaymentAlreadyFinal):
		return alreadySettled(settled), nil
	case errors.Is(err, domain.ErrCapacityExceeded):
		return s.compensate(ctx, log, paid, details, ticketType)
	}
	return nil, s.markFailed(ctx, log, ref, paid, err)
}

func (s *verificationService) lookup(ctx context.Context, gw gateway.PaymentGateway, reference string) (*gateway.PaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	result, err := gw.Lookup(ctx, reference)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: empty lookup result", gateway.ErrUnavailable)
	}
	return result, nil
}

func (s *verificationService) settleFailed(ctx context.Context, log *logger.Logger, paid *gateway.PaymentResult) (*VerificationResult, error) {
	reason := paid.FailureDetail
	if reason == "" {
		reason = fmt.Sprintf("gateway status %q", paid.RawStatus)
	}

	settled, err := s.settlements.Settle(ctx, domain.Settlement{
		Reference:              paid.CorrelationReference,
		Outcome:                domain.OutcomeFailed,
		GatewayPaymentIntentID: paid.PaymentIntentID,
		GatewayTransactionID:   paid.TransactionID,
		FailureReason:          reason,
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPaymentNotFound):
		return nil, newVerificationError(KindPaymentNotFound, "payment not found", err)
	case errors.Is(err, domain.ErrPaymentAlreadyFinal):
		return alreadySettled(settled), nil
	default:
		return nil, s.markFailed(ctx, log, paid.CorrelationReference, nil, err)
	}

	log.Info("Payment not completed at gateway",
		zap.String("outcome", string(domain.OutcomeFailed)),
		zap.String("gateway_status", paid.RawStatus),
		zap.String("failure_reason", reason),
	)
	s.publish(ctx, log, settled, domain.OutcomeFailed)
	return &VerificationResult{
		Outcome:       domain.OutcomeFailed,
		Message:       "payment was not completed: " + reason,
		Details:       settled,
		FailureDetail: paid.FailureDetail,
	}, nil
}

// compensate reverses a captured payment whose tickets no longer fit
func (s *verificationService) compensate(
	ctx context.Context,
	log *logger.Logger,
	paid *gateway.PaymentResult,
	details *domain.PaymentDetails,
	ticketType domain.TicketType,
) (*VerificationResult, error) {
	ref := paid.CorrelationReference
	refunded := s.reverseCapture(ctx, log, paid, details.Payment, gateway.RefundCauseCapacityExceeded)

	reason := fmt.Sprintf("%s tickets sold out before payment was verified", ticketType)
	settled, err := s.settlements.Settle(ctx, domain.Settlement{
		Reference:              ref,
		Outcome:                domain.OutcomeRefunded,
		TicketType:             ticketType,
		TicketCount:            len(details.Tickets),
		GatewayPaymentIntentID: paid.PaymentIntentID,
		GatewayTransactionID:   paid.TransactionID,
		FailureReason:          reason,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyFinal) {
			return alreadySettled(settled), nil
		}
		return nil, s.markFailed(ctx, log, ref, nil, err)
	}

	log.Info("Payment refunded, capacity exceeded",
		zap.String("outcome", string(domain.OutcomeRefunded)),
		zap.String("ticket_type", string(ticketType)),
		zap.Int("ticket_count", len(details.Tickets)),
		zap.Bool("refund_issued", refunded),
	)
	s.publish(ctx, log, settled, domain.OutcomeRefunded)

	message := reason + ", payment refunded"
	if !refunded {
		message = reason + ", refund is being processed manually"
	}
	return &VerificationResult{
		Outcome:      domain.OutcomeRefunded,
		Message:      message,
		Details:      settled,
		RefundIssued: refunded,
	}, nil
}

// reverseCapture refunds a captured charge through the gateway. Charges that
// cannot be refunded are flagged for manual reconciliation.
func (s *verificationService) reverseCapture(
	ctx context.Context,
	log *logger.Logger,
	paid *gateway.PaymentResult,
	payment *domain.Payment,
	cause string,
) bool {
	if !paid.CanRefund() {
		metrics.RefundFailed(string(paid.Gateway))
		log.Error("Gateway has no refund API, captured payment needs a manual refund",
			zap.Bool("reconciliation_required", true),
			zap.String("refund_cause", cause),
			zap.String("transaction_id", paid.TransactionID),
		)
		return false
	}

	refundCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	err := paid.Refunder.Refund(refundCtx, &gateway.RefundRequest{
		Reference:       paid.CorrelationReference,
		PaymentIntentID: paid.PaymentIntentID,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		Cause:           cause,
	})
	if err != nil {
		metrics.RefundFailed(string(paid.Gateway))
		log.Error("Compensating refund failed",
			zap.Bool("reconciliation_required", true),
			zap.String("refund_cause", cause),
			zap.String("payment_intent_id", paid.PaymentIntentID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// markFailed marks the payment failed after an unexpected error. The cause is
// what the caller sees; recovery errors are only logged. When paid reports a
// captured charge, the charge is reversed once failed is committed. A payment
// left pending keeps its charge so a later verification can still settle it.
func (s *verificationService) markFailed(
	ctx context.Context,
	log *logger.Logger,
	reference string,
	paid *gateway.PaymentResult,
	cause error,
) error {
	log.Error("Verification failed, marking payment as failed", zap.Error(cause))

	recoveryCtx := context.WithoutCancel(ctx)
	var marked *domain.PaymentDetails
	res := retry.Do(recoveryCtx, s.config.Recovery, func(ctx context.Context) error {
		d, err := s.settlements.Settle(ctx, domain.Settlement{
			Reference:     reference,
			Outcome:       domain.OutcomeFailed,
			FailureReason: "verification error: " + cause.Error(),
		})
		if errors.Is(err, domain.ErrPaymentAlreadyFinal) || errors.Is(err, domain.ErrPaymentNotFound) {
			return retry.Permanent(err)
		}
		if err == nil {
			marked = d
		}
		return err
	}, func(attempt int, err error, next time.Duration) {
		log.Warn("Retrying mark-as-failed", zap.Int("attempt", attempt), zap.Duration("next", next), zap.Error(err))
	})

	switch {
	case res.Err == nil:
		log.Info("Payment marked as failed", zap.String("outcome", string(domain.OutcomeFailed)))
		if paid != nil && paid.Paid && marked != nil {
			if s.reverseCapture(recoveryCtx, log, paid, marked.Payment, gateway.RefundCauseVerificationError) {
				log.Info("Captured charge of failed payment refunded")
			}
		}
	case errors.Is(res.Err, domain.ErrPaymentAlreadyFinal):
	default:
		log.Error("Could not mark payment as failed", zap.Int("attempts", res.Attempts), zap.Error(res.LastError))
	}

	return newVerificationError(KindVerificationFailed, "payment verification failed", cause)
}

func (s *verificationService) publish(ctx context.Context, log *logger.Logger, d *domain.PaymentDetails, outcome domain.Outcome) {
	if err := s.publisher.PublishPaymentVerified(ctx, d, outcome); err != nil {
		log.Warn("Failed to publish verification event", zap.Error(err))
	}
}

func alreadySettled(d *domain.PaymentDetails) *VerificationResult {
	outcome := domain.OutcomeFailed
	switch d.Payment.Status {
	case domain.PaymentStatusSuccess:
		outcome = domain.OutcomeSuccess
	case domain.PaymentStatusRefunded:
		outcome = domain.OutcomeRefunded
	}
	return &VerificationResult{
		Outcome:        outcome,
		Message:        fmt.Sprintf("payment already settled as %s", d.Payment.Status),
		Details:        d,
		AlreadySettled: true,
		FailureDetail:  d.Payment.FailureReason,
	}
}
