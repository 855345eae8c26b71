package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/pkg/database"
)

// PostgresSettlementRepository implements SettlementRepository using PostgreSQL
type PostgresSettlementRepository struct {
	db *database.PostgresDB
}

// NewPostgresSettlementRepository creates a new PostgreSQL settlement repository
func NewPostgresSettlementRepository(db *database.PostgresDB) *PostgresSettlementRepository {
	return &PostgresSettlementRepository{db: db}
}

// Capacity increments are conditional on the row itself, so two concurrent
// sales can never push sold past quantity even under READ COMMITTED.
const (
	incrementStandardSQL = `
		UPDATE events
		SET standard_sold = standard_sold + $2,
		    sold_out = (standard_sold + $2 >= standard_quantity AND vip_sold >= vip_quantity),
		    updated_at = NOW()
		WHERE id = $1 AND standard_sold + $2 <= standard_quantity`

	incrementVIPSQL = `
		UPDATE events
		SET vip_sold = vip_sold + $2,
		    sold_out = (standard_sold >= standard_quantity AND vip_sold + $2 >= vip_quantity),
		    updated_at = NOW()
		WHERE id = $1 AND vip_sold + $2 <= vip_quantity`
)

// Settle applies one terminal outcome inside a transaction
func (r *PostgresSettlementRepository) Settle(ctx context.Context, s domain.Settlement) (*domain.PaymentDetails, error) {
	var (
		details *domain.PaymentDetails
		final   bool
	)

	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		p, err := getPayment(ctx, tx, s.Reference, true)
		if err != nil {
			return err
		}

		if p.Status.IsFinal() {
			final = true
			details, err = loadDetails(ctx, tx, s.Reference)
			return err
		}

		if s.IsSale() {
			if s.TicketCount <= 0 {
				return domain.ErrCapacityExceeded
			}
			query := incrementStandardSQL
			if s.TicketType == domain.TicketTypeVIP {
				query = incrementVIPSQL
			}
			tag, err := tx.Exec(ctx, query, p.EventID, s.TicketCount)
			if err != nil {
				return fmt.Errorf("failed to reserve capacity: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrCapacityExceeded
			}
		}

		status := s.Outcome.PaymentStatus()
		_, err = tx.Exec(ctx, `
			UPDATE payments
			SET status = $2,
			    gateway_payment_intent_id = COALESCE($3, gateway_payment_intent_id),
			    gateway_transaction_id = COALESCE($4, gateway_transaction_id),
			    failure_reason = $5,
			    verified_at = NOW(),
			    updated_at = NOW()
			WHERE reference = $1`,
			s.Reference,
			string(status),
			nullString(s.GatewayPaymentIntentID),
			nullString(s.GatewayTransactionID),
			nullString(s.FailureReason),
		)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE tickets SET status = $2, updated_at = NOW() WHERE payment_reference = $1`,
			s.Reference, string(domain.TicketStatusFor(status)),
		)
		if err != nil {
			return fmt.Errorf("failed to update tickets: %w", err)
		}

		details, err = loadDetails(ctx, tx, s.Reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	if final {
		return details, domain.ErrPaymentAlreadyFinal
	}
	return details, nil
}
