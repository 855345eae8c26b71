package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/dto"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/middleware"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
	"github.com/prohmpiriya/event-ticketing/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PaymentHandler handles purchase and verification HTTP requests
type PaymentHandler struct {
	purchaseService     service.PurchaseService
	verificationService service.VerificationService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(purchaseService service.PurchaseService, verificationService service.VerificationService) *PaymentHandler {
	return &PaymentHandler{
		purchaseService:     purchaseService,
		verificationService: verificationService,
	}
}

// VerifyPayment handles POST /payments/verify
// A capacity conflict is a normal 200 with outcome "refunded"
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.verify")
	defer span.End()

	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "reference and gateway are required", err.Error())
		return
	}
	gw, err := domain.ParseGateway(req.Gateway)
	if err != nil {
		span.SetStatus(codes.Error, "unknown gateway")
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "")
		return
	}

	span.SetAttributes(
		attribute.String("payment.gateway", string(gw)),
		attribute.String("payment.reference", req.Reference),
	)

	result, err := h.verificationService.VerifyPayment(ctx, string(gw), req.Reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		kind := service.KindOf(err)
		if kind == "" {
			kind = service.KindVerificationFailed
		}
		response.Error(c, verificationStatus(kind), string(kind), err.Error(), "")
		return
	}

	span.SetAttributes(attribute.String("payment.outcome", string(result.Outcome)))
	span.SetStatus(codes.Ok, "")
	response.Success(c, toVerifyPaymentResponse(result))
}

// Purchase handles POST /purchases
func (h *PaymentHandler) Purchase(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.purchase")
	defer span.End()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "user identity is required")
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", err.Error())
		return
	}
	gw, err := domain.ParseGateway(req.Gateway)
	if err != nil {
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("event_id", req.EventID),
		attribute.Int("quantity", req.Quantity),
	)

	result, err := h.purchaseService.InitiatePurchase(ctx, &service.PurchaseRequest{
		UserID:     userID,
		EventID:    req.EventID,
		TicketType: domain.TicketType(req.TicketType),
		Quantity:   req.Quantity,
		Gateway:    gw,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("payment.reference", result.Payment.Reference))
	span.SetStatus(codes.Ok, "")
	response.Created(c, &dto.PurchaseResponse{
		Reference:       result.Payment.Reference,
		VerifyReference: result.VerifyReference,
		CheckoutURL:     result.CheckoutURL,
		SessionID:       result.SessionID,
		Payment:         dto.FromPayment(result.Payment),
		Tickets:         dto.FromTickets(result.Tickets),
	})
}

func toVerifyPaymentResponse(r *service.VerificationResult) *dto.VerifyPaymentResponse {
	resp := &dto.VerifyPaymentResponse{
		Outcome:        string(r.Outcome),
		Message:        r.Message,
		AlreadySettled: r.AlreadySettled,
		RefundIssued:   r.RefundIssued,
		FailureDetail:  r.FailureDetail,
	}
	if r.Details != nil {
		resp.Payment = dto.FromPayment(r.Details.Payment)
		resp.Tickets = dto.FromTickets(r.Details.Tickets)
		resp.Event = dto.FromEvent(r.Details.Event)
	}
	return resp
}
