package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
	"github.com/shopspring/decimal"
)

// CreateEventRequest describes a new event and its two ticket classes
type CreateEventRequest struct {
	Name             string
	Description      string
	Venue            string
	Date             time.Time
	Currency         string
	StandardPrice    decimal.Decimal
	StandardQuantity int
	VIPPrice         decimal.Decimal
	VIPQuantity      int
}

// EventService manages events
type EventService interface {
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

type eventService struct {
	events repository.EventRepository
}

// NewEventService creates a new EventService
func NewEventService(events repository.EventRepository) EventService {
	return &eventService{events: events}
}

// CreateEvent validates and stores an event
func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*domain.Event, error) {
	if req == nil {
		return nil, domain.ErrInvalidEvent
	}
	event, err := domain.NewEvent(req.Name, req.Venue, req.Date, req.Currency,
		domain.TicketClass{Price: req.StandardPrice, Quantity: req.StandardQuantity},
		domain.TicketClass{Price: req.VIPPrice, Quantity: req.VIPQuantity},
	)
	if err != nil {
		return nil, err
	}
	event.Description = req.Description

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// GetEvent retrieves an event
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.GetByID(ctx, id)
}
