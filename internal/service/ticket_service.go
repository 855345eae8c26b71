package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
	"github.com/prohmpiriya/event-ticketing/pkg/logger"
	"github.com/prohmpiriya/event-ticketing/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TicketView is a ticket as shown to its holder. QRCode is empty until the
// ticket is confirmed.
type TicketView struct {
	Ticket *domain.Ticket
	QRCode string
}

// TicketService manages issued tickets
type TicketService interface {
	// GetTicket returns a ticket to its holder, or to anyone when asAdmin
	GetTicket(ctx context.Context, ticketID, userID string, asAdmin bool) (*TicketView, error)
	ListUserTickets(ctx context.Context, userID string, limit, offset int) ([]*TicketView, error)
	// TransferTicket hands a confirmed ticket to the user registered with toEmail
	TransferTicket(ctx context.Context, ticketID, fromUserID, toEmail string) (*domain.Ticket, error)
	// ScanTicket admits the ticket encoded in a QR token once
	ScanTicket(ctx context.Context, qrToken string) (*domain.Ticket, error)
}

type ticketService struct {
	repos  *repository.Repositories
	signer *QRSigner
	now    func() time.Time
}

// NewTicketService creates a new TicketService
func NewTicketService(repos *repository.Repositories, signer *QRSigner) TicketService {
	return &ticketService{repos: repos, signer: signer, now: time.Now}
}

func (s *ticketService) view(t *domain.Ticket) (*TicketView, error) {
	v := &TicketView{Ticket: t}
	if t.Status != domain.TicketStatusSuccess {
		return v, nil
	}
	code, err := s.signer.Sign(t)
	if err != nil {
		return nil, err
	}
	v.QRCode = code
	return v, nil
}

// GetTicket retrieves a ticket
func (s *ticketService) GetTicket(ctx context.Context, ticketID, userID string, asAdmin bool) (*TicketView, error) {
	t, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !asAdmin && t.UserID != userID {
		return nil, domain.ErrNotTicketOwner
	}
	return s.view(t)
}

// ListUserTickets lists tickets held by a user
func (s *ticketService) ListUserTickets(ctx context.Context, userID string, limit, offset int) ([]*TicketView, error) {
	limit, offset = clampPage(limit, offset)
	tickets, err := s.repos.Tickets.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	views := make([]*TicketView, 0, len(tickets))
	for _, t := range tickets {
		v, err := s.view(t)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// TransferTicket moves a ticket to another registered user
func (s *ticketService) TransferTicket(ctx context.Context, ticketID, fromUserID, toEmail string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.transfer")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	t, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.repos.Users.GetByEmail(ctx, toEmail)
	if err != nil {
		return nil, err
	}
	event, err := s.repos.Events.GetByID(ctx, t.EventID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := t.CheckTransfer(fromUserID, recipient.ID, event, now); err != nil {
		return nil, err
	}

	moved, err := s.repos.Tickets.Transfer(ctx, ticketID, fromUserID, recipient.ID, now)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	logger.Get().Info("Ticket transferred",
		zap.String("ticket_id", ticketID),
		zap.String("from_user_id", fromUserID),
		zap.String("to_user_id", recipient.ID),
	)
	return moved, nil
}

// ScanTicket validates a QR token and marks the ticket used
func (s *ticketService) ScanTicket(ctx context.Context, qrToken string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.scan")
	defer span.End()

	claims, err := s.signer.Parse(qrToken)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("ticket_id", claims.TicketID))

	t, err := s.repos.Tickets.GetByID(ctx, claims.TicketID)
	if err != nil {
		return nil, err
	}
	// A transfer invalidates codes issued to the previous holder
	if t.UserID != claims.UserID || t.EventID != claims.EventID {
		return nil, ErrInvalidQRCode
	}

	event, err := s.repos.Events.GetByID(ctx, t.EventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := t.CheckScan(event, now); err != nil {
		return nil, err
	}

	scanned, err := s.repos.Tickets.MarkScanned(ctx, t.ID, now)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}
	logger.Get().Info("Ticket scanned", zap.String("ticket_id", t.ID), zap.String("event_id", t.EventID))
	return scanned, nil
}

// clampPage applies the default and maximum page size
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
