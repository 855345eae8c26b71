package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/dto"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
)

// EventHandler handles event HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create handles POST /events (admin only)
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", err.Error())
		return
	}
	standard, vip, err := req.Prices()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid price", err.Error())
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), &service.CreateEventRequest{
		Name:             req.Name,
		Description:      req.Description,
		Venue:            req.Venue,
		Date:             req.Date,
		Currency:         req.Currency,
		StandardPrice:    standard,
		StandardQuantity: req.StandardQuantity,
		VIPPrice:         vip,
		VIPQuantity:      req.VIPQuantity,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, dto.FromEvent(event))
}

// GetByID handles GET /events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromEvent(event))
}
