package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/shopspring/decimal"
)

// CreateEventRequest represents request to create an event
type CreateEventRequest struct {
	Name             string    `json:"name" binding:"required"`
	Description      string    `json:"description"`
	Venue            string    `json:"venue"`
	Date             time.Time `json:"date" binding:"required"`
	Currency         string    `json:"currency"`
	StandardPrice    string    `json:"standard_price"`
	StandardQuantity int       `json:"standard_quantity" binding:"min=0"`
	VIPPrice         string    `json:"vip_price"`
	VIPQuantity      int       `json:"vip_quantity" binding:"min=0"`
}

// Prices parses the decimal price strings, empty meaning zero
func (r *CreateEventRequest) Prices() (standard, vip decimal.Decimal, err error) {
	if standard, err = parsePrice("standard_price", r.StandardPrice); err != nil {
		return
	}
	vip, err = parsePrice("vip_price", r.VIPPrice)
	return
}

func parsePrice(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// TicketClassResponse represents one ticket class of an event
type TicketClassResponse struct {
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Sold      int    `json:"sold"`
	Remaining int    `json:"remaining"`
}

// EventResponse represents an event in API response
type EventResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Venue       string              `json:"venue"`
	Date        time.Time           `json:"date"`
	Currency    string              `json:"currency"`
	Standard    TicketClassResponse `json:"standard_ticket"`
	VIP         TicketClassResponse `json:"vip_ticket"`
	SoldOut     bool                `json:"sold_out"`
	CreatedAt   time.Time           `json:"created_at"`
}

func fromClass(c domain.TicketClass) TicketClassResponse {
	return TicketClassResponse{
		Price:     c.Price.StringFixed(2),
		Quantity:  c.Quantity,
		Sold:      c.Sold,
		Remaining: c.Remaining(),
	}
}

// FromEvent converts a domain Event to EventResponse
func FromEvent(e *domain.Event) *EventResponse {
	if e == nil {
		return nil
	}
	return &EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Venue:       e.Venue,
		Date:        e.Date,
		Currency:    e.Currency,
		Standard:    fromClass(e.StandardTicket),
		VIP:         fromClass(e.VIPTicket),
		SoldOut:     e.SoldOut,
		CreatedAt:   e.CreatedAt,
	}
}
