package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/pkg/database"
	"github.com/shopspring/decimal"
)

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	db *database.PostgresDB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository
func NewPostgresEventRepository(db *database.PostgresDB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

const eventColumns = `
	id, name, description, venue, event_date, currency,
	standard_price::text, standard_quantity, standard_sold,
	vip_price::text, vip_quantity, vip_sold,
	sold_out, created_at, updated_at
`

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (
			id, name, description, venue, event_date, currency,
			standard_price, standard_quantity, standard_sold,
			vip_price, vip_quantity, vip_sold,
			sold_out, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10::numeric, $11, $12, $13, $14, $15)`

	_, err := r.db.Pool().Exec(ctx, query,
		event.ID, event.Name, event.Description, event.Venue, event.Date, event.Currency,
		event.StandardTicket.Price.String(), event.StandardTicket.Quantity, event.StandardTicket.Sold,
		event.VIPTicket.Price.String(), event.VIPTicket.Quantity, event.VIPTicket.Sold,
		event.SoldOut, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrInvalidEvent
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return getEvent(ctx, r.db.Pool(), id, false)
}

func getEvent(ctx context.Context, q database.Querier, id string, forUpdate bool) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanEvent(q.QueryRow(ctx, query, id))
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e             domain.Event
		standardPrice string
		vipPrice      string
	)

	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Venue, &e.Date, &e.Currency,
		&standardPrice, &e.StandardTicket.Quantity, &e.StandardTicket.Sold,
		&vipPrice, &e.VIPTicket.Quantity, &e.VIPTicket.Sold,
		&e.SoldOut, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	if e.StandardTicket.Price, err = decimal.NewFromString(standardPrice); err != nil {
		return nil, fmt.Errorf("failed to parse standard price %q: %w", standardPrice, err)
	}
	if e.VIPTicket.Price, err = decimal.NewFromString(vipPrice); err != nil {
		return nil, fmt.Errorf("failed to parse vip price %q: %w", vipPrice, err)
	}
	return &e, nil
}
