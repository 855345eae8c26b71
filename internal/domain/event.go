package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketClass is one inventory bucket of an event. Sold never exceeds Quantity.
type TicketClass struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Sold     int             `json:"sold"`
}

// Remaining returns how many tickets can still be sold
func (c TicketClass) Remaining() int {
	if c.Sold >= c.Quantity {
		return 0
	}
	return c.Quantity - c.Sold
}

// IsExhausted reports whether the bucket is full
func (c TicketClass) IsExhausted() bool {
	return c.Sold >= c.Quantity
}

// CanFit reports whether count more tickets stay within capacity
func (c TicketClass) CanFit(count int) bool {
	return count > 0 && c.Sold+count <= c.Quantity
}

// Event holds the two ticket classes on sale
type Event struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Venue          string      `json:"venue"`
	Date           time.Time   `json:"date"`
	Currency       string      `json:"currency"`
	StandardTicket TicketClass `json:"standard_ticket"`
	VIPTicket      TicketClass `json:"vip_ticket"`
	SoldOut        bool        `json:"sold_out"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewEvent validates and builds an event
func NewEvent(name, venue string, date time.Time, currency string, standard, vip TicketClass) (*Event, error) {
	if strings.TrimSpace(name) == "" || date.IsZero() {
		return nil, ErrInvalidEvent
	}
	if standard.Quantity < 0 || vip.Quantity < 0 || standard.Price.IsNegative() || vip.Price.IsNegative() {
		return nil, ErrInvalidEvent
	}
	if currency == "" {
		currency = "USD"
	}

	standard.Sold = 0
	vip.Sold = 0

	now := time.Now().UTC()
	e := &Event{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(name),
		Venue:          venue,
		Date:           date.UTC(),
		Currency:       strings.ToUpper(currency),
		StandardTicket: standard,
		VIPTicket:      vip,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	e.RecomputeSoldOut()
	return e, nil
}

// Class returns the bucket for a ticket type. Anything but vip is standard.
func (e *Event) Class(t TicketType) *TicketClass {
	if t == TicketTypeVIP {
		return &e.VIPTicket
	}
	return &e.StandardTicket
}

// RecomputeSoldOut derives SoldOut from both classes
func (e *Event) RecomputeSoldOut() {
	e.SoldOut = e.StandardTicket.IsExhausted() && e.VIPTicket.IsExhausted()
}

// IsPast reports whether the event date is before now
func (e *Event) IsPast(now time.Time) bool {
	return e.Date.Before(now)
}
