package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/dto"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/middleware"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
)

// TicketHandler handles ticket HTTP requests
type TicketHandler struct {
	ticketService service.TicketService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// GetTicket handles GET /tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	asAdmin := middleware.GetUserRole(c) == middleware.RoleAdmin

	view, err := h.ticketService.GetTicket(c.Request.Context(), c.Param("id"), userID, asAdmin)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromTicketView(view.Ticket, view.QRCode))
}

// ListUserTickets handles GET /users/:userId/tickets
// Callers may only list their own tickets unless they are admin
func (h *TicketHandler) ListUserTickets(c *gin.Context) {
	userID := c.Param("userId")
	callerID, _ := middleware.GetUserID(c)
	if callerID != userID && middleware.GetUserRole(c) != middleware.RoleAdmin {
		response.Forbidden(c, "cannot list another user's tickets")
		return
	}

	limit, offset := pageParams(c)
	views, err := h.ticketService.ListUserTickets(c.Request.Context(), userID, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}

	tickets := make([]*dto.TicketResponse, 0, len(views))
	for _, v := range views {
		tickets = append(tickets, dto.FromTicketView(v.Ticket, v.QRCode))
	}
	response.Paginated(c, tickets, response.PageMeta{Limit: limit, Offset: offset, Count: len(tickets)})
}

// TransferTicket handles POST /tickets/:id/transfer
func (h *TicketHandler) TransferTicket(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "user identity is required")
		return
	}

	var req dto.TransferTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "to_email is required", err.Error())
		return
	}

	ticket, err := h.ticketService.TransferTicket(c.Request.Context(), c.Param("id"), userID, req.ToEmail)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromTicket(ticket))
}

// ScanTicket handles POST /admin/tickets/scan
func (h *TicketHandler) ScanTicket(c *gin.Context) {
	var req dto.ScanTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "qr_code is required", err.Error())
		return
	}

	ticket, err := h.ticketService.ScanTicket(c.Request.Context(), req.QRCode)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromTicket(ticket))
}
