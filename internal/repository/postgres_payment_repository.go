package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/pkg/database"
	"github.com/shopspring/decimal"
)

// NewPostgresRepositories wires every store onto one pool
func NewPostgresRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Payments:    NewPostgresPaymentRepository(db),
		Tickets:     NewPostgresTicketRepository(db),
		Events:      NewPostgresEventRepository(db),
		Users:       NewPostgresUserRepository(db),
		Settlements: NewPostgresSettlementRepository(db),
	}
}

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	db *database.PostgresDB
}

// NewPostgresPaymentRepository creates a new PostgreSQL payment repository
func NewPostgresPaymentRepository(db *database.PostgresDB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// Create inserts the payment and its tickets in one transaction
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment, tickets []*domain.Ticket) error {
	query := `
		INSERT INTO payments (
			id, reference, event_id, user_id, amount, currency, gateway, status,
			checkout_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)`

	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			payment.ID,
			payment.Reference,
			payment.EventID,
			payment.UserID,
			payment.Amount.String(),
			payment.Currency,
			string(payment.Gateway),
			string(payment.Status),
			nullString(payment.CheckoutURL),
			payment.CreatedAt,
			payment.UpdatedAt,
		)
		if err != nil {
			return err
		}

		for _, t := range tickets {
			if err := insertTicket(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrPaymentAlreadyExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	payment.TicketIDs = payment.TicketIDs[:0]
	for _, t := range tickets {
		payment.TicketIDs = append(payment.TicketIDs, t.ID)
	}
	return nil
}

// nullString returns nil if string is empty, otherwise returns pointer to string
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// paymentColumns defines the columns to select for payment queries
const paymentColumns = `
	id, reference, event_id, user_id, amount::text, currency, gateway, status,
	checkout_url, gateway_payment_intent_id, gateway_transaction_id, failure_reason,
	verified_at, created_at, updated_at
`

// GetByReference retrieves a payment by its reference
func (r *PostgresPaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	return getPayment(ctx, r.db.Pool(), reference, false)
}

// GetDetailsByReference hydrates a payment with tickets, event and buyer
func (r *PostgresPaymentRepository) GetDetailsByReference(ctx context.Context, reference string) (*domain.PaymentDetails, error) {
	return loadDetails(ctx, r.db.Pool(), reference)
}

// SetCheckoutURL records the checkout link
func (r *PostgresPaymentRepository) SetCheckoutURL(ctx context.Context, reference, url string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE payments SET checkout_url = $2, updated_at = NOW() WHERE reference = $1`,
		reference, url,
	)
	if err != nil {
		return fmt.Errorf("failed to set checkout url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// List returns payments matching filter, newest first
func (r *PostgresPaymentRepository) List(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]*domain.Payment, error) {
	var (
		where []string
		args  []any
	)
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		where = append(where, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Gateway != "" {
		args = append(args, string(filter.Gateway))
		where = append(where, fmt.Sprintf("gateway = $%d", len(args)))
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

func getPayment(ctx context.Context, q database.Querier, reference string, forUpdate bool) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	p, err := scanPayment(q.QueryRow(ctx, query, reference))
	if err != nil {
		return nil, err
	}

	ids, err := ticketIDs(ctx, q, reference)
	if err != nil {
		return nil, err
	}
	p.TicketIDs = ids
	return p, nil
}

// loadDetails reads the payment with its relations through q
func loadDetails(ctx context.Context, q database.Querier, reference string) (*domain.PaymentDetails, error) {
	p, err := getPayment(ctx, q, reference, false)
	if err != nil {
		return nil, err
	}

	tickets, err := ticketsByReference(ctx, q, reference)
	if err != nil {
		return nil, err
	}

	d := &domain.PaymentDetails{Payment: p, Tickets: tickets}

	d.Event, err = getEvent(ctx, q, p.EventID, false)
	if err != nil && !errors.Is(err, domain.ErrEventNotFound) {
		return nil, err
	}
	d.User, err = getUser(ctx, q, `id = $1`, p.UserID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return d, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p           domain.Payment
		amount      string
		gateway     string
		status      string
		checkoutURL *string
		intentID    *string
		txnID       *string
		failure     *string
	)

	err := row.Scan(
		&p.ID, &p.Reference, &p.EventID, &p.UserID, &amount, &p.Currency, &gateway, &status,
		&checkoutURL, &intentID, &txnID, &failure,
		&p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payment amount %q: %w", amount, err)
	}
	p.Gateway = domain.Gateway(gateway)
	p.Status = domain.PaymentStatus(status)
	p.CheckoutURL = derefString(checkoutURL)
	p.GatewayPaymentIntentID = derefString(intentID)
	p.GatewayTransactionID = derefString(txnID)
	p.FailureReason = derefString(failure)
	return &p, nil
}
