package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/gateway"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/logger"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
	"go.uber.org/zap"
)

// handleError maps service and domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	switch {
	// Not found
	case errors.Is(err, domain.ErrPaymentNotFound):
		response.Error(c, http.StatusNotFound, "PAYMENT_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrEventNotFound):
		response.Error(c, http.StatusNotFound, "EVENT_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrTicketNotFound):
		response.Error(c, http.StatusNotFound, "TICKET_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", err.Error(), "")

	// Invalid input
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidTicketType),
		errors.Is(err, domain.ErrUnknownGateway),
		errors.Is(err, domain.ErrInvalidEvent),
		errors.Is(err, domain.ErrInvalidPaymentStatus),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrSelfTransfer):
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "")
	case errors.Is(err, service.ErrQRCodeExpired):
		response.Error(c, http.StatusBadRequest, "QR_CODE_EXPIRED", err.Error(), "")
	case errors.Is(err, service.ErrInvalidQRCode):
		response.Error(c, http.StatusBadRequest, "INVALID_QR_CODE", err.Error(), "")

	case errors.Is(err, domain.ErrNotTicketOwner):
		response.Forbidden(c, err.Error())

	// State conflicts
	case errors.Is(err, domain.ErrCapacityExceeded):
		response.Conflict(c, "SOLD_OUT", err.Error())
	case errors.Is(err, domain.ErrClassNotOnSale):
		response.Conflict(c, "NOT_ON_SALE", err.Error())
	case errors.Is(err, domain.ErrEventPast):
		response.Conflict(c, "EVENT_PAST", err.Error())
	case errors.Is(err, domain.ErrTicketAlreadyUsed):
		response.Conflict(c, "TICKET_ALREADY_USED", err.Error())
	case errors.Is(err, domain.ErrInvalidTicketState):
		response.Conflict(c, "INVALID_TICKET_STATE", err.Error())
	case errors.Is(err, domain.ErrPaymentAlreadyExists):
		response.Conflict(c, "PAYMENT_ALREADY_EXISTS", err.Error())
	case errors.Is(err, domain.ErrUserAlreadyExists):
		response.Conflict(c, "USER_ALREADY_EXISTS", err.Error())

	case errors.Is(err, gateway.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "payment gateway unavailable", err.Error())

	default:
		logger.Get().Error("Unhandled request error", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", "")
	}
}

// verificationStatus maps a verification error kind to its HTTP status
func verificationStatus(kind service.ErrorKind) int {
	switch kind {
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindPaymentNotFound:
		return http.StatusNotFound
	case service.KindGatewayUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// pageParams reads limit and offset query parameters; the services clamp them
func pageParams(c *gin.Context) (limit, offset int) {
	var q struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	_ = c.ShouldBindQuery(&q)
	return q.Limit, q.Offset
}
