package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/pkg/database"
)

// PostgresTicketRepository implements TicketRepository using PostgreSQL
type PostgresTicketRepository struct {
	db *database.PostgresDB
}

// NewPostgresTicketRepository creates a new PostgreSQL ticket repository
func NewPostgresTicketRepository(db *database.PostgresDB) *PostgresTicketRepository {
	return &PostgresTicketRepository{db: db}
}

const ticketColumns = `
	id, payment_reference, event_id, user_id, ticket_type, status,
	scanned, scanned_at, transferred_from, transferred_at, created_at, updated_at
`

func insertTicket(ctx context.Context, q database.Querier, t *domain.Ticket) error {
	_, err := q.Exec(ctx, `
		INSERT INTO tickets (
			id, payment_reference, event_id, user_id, ticket_type, status,
			scanned, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.PaymentReference, t.EventID, t.UserID,
		string(t.TicketType), string(t.Status), t.Scanned,
		t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a ticket by ID
func (r *PostgresTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	row := r.db.Pool().QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	return scanTicket(row)
}

// ListByUser returns tickets held by userID, newest first
func (r *PostgresTicketRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool().Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	return collectTickets(rows)
}

// Transfer moves a ticket between holders if it is still transferable
func (r *PostgresTicketRepository) Transfer(ctx context.Context, ticketID, fromUserID, toUserID string, at time.Time) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET user_id = $3, transferred_from = $2, transferred_at = $4, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = 'success' AND scanned = FALSE
		RETURNING ` + ticketColumns

	t, err := scanTicket(r.db.Pool().QueryRow(ctx, query, ticketID, fromUserID, toUserID, at.UTC()))
	if errors.Is(err, domain.ErrTicketNotFound) {
		if _, getErr := r.GetByID(ctx, ticketID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrInvalidTicketState
	}
	return t, err
}

// MarkScanned admits a ticket once
func (r *PostgresTicketRepository) MarkScanned(ctx context.Context, ticketID string, at time.Time) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET scanned = TRUE, scanned_at = $2, updated_at = $2
		WHERE id = $1 AND scanned = FALSE AND status = 'success'
		RETURNING ` + ticketColumns

	t, err := scanTicket(r.db.Pool().QueryRow(ctx, query, ticketID, at.UTC()))
	if errors.Is(err, domain.ErrTicketNotFound) {
		current, getErr := r.GetByID(ctx, ticketID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Scanned {
			return nil, domain.ErrTicketAlreadyUsed
		}
		return nil, domain.ErrInvalidTicketState
	}
	return t, err
}

func ticketsByReference(ctx context.Context, q database.Querier, reference string) ([]*domain.Ticket, error) {
	rows, err := q.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE payment_reference = $1 ORDER BY id`, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	return collectTickets(rows)
}

func ticketIDs(ctx context.Context, q database.Querier, reference string) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT id FROM tickets WHERE payment_reference = $1 ORDER BY id`, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect ticket ids: %w", err)
	}
	return ids, nil
}

func collectTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t            domain.Ticket
		ticketType   string
		status       string
		transferFrom *string
	)

	err := row.Scan(
		&t.ID, &t.PaymentReference, &t.EventID, &t.UserID, &ticketType, &status,
		&t.Scanned, &t.ScannedAt, &transferFrom, &t.TransferredAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}

	t.TicketType = domain.TicketType(ticketType)
	t.Status = domain.TicketStatus(status)
	t.TransferredFrom = derefString(transferFrom)
	return &t, nil
}
