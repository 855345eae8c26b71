package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/pkg/config"
	"github.com/prohmpiriya/event-ticketing/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a reachable PostgreSQL configured through the usual
// environment variables.
func postgresRepos(t *testing.T) *Repositories {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("set INTEGRATION_TEST=true to run")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, database.PostgresConfigFrom(cfg.Database, false))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	return NewPostgresRepositories(db)
}

func seed(t *testing.T, repos *Repositories, standardQty, vipQty int) (*domain.Event, *domain.User) {
	t.Helper()
	ctx := context.Background()

	event, err := domain.NewEvent("Integration", "Hall", time.Now().Add(48*time.Hour), "XOF",
		domain.TicketClass{Price: decimal.NewFromInt(5000), Quantity: standardQty},
		domain.TicketClass{Price: decimal.RequireFromString("12500.50"), Quantity: vipQty},
	)
	require.NoError(t, err)
	require.NoError(t, repos.Events.Create(ctx, event))

	user := &domain.User{ID: uuid.New().String(), Email: uuid.New().String() + "@example.com", Role: "customer", CreatedAt: time.Now().UTC()}
	require.NoError(t, repos.Users.Create(ctx, user))
	return event, user
}

func TestPostgresRepositories_RoundTrip(t *testing.T) {
	repos := postgresRepos(t)
	ctx := context.Background()
	event, user := seed(t, repos, 5, 2)

	got, err := repos.Events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, got.VIPTicket.Price.Equal(decimal.RequireFromString("12500.50")))

	p, err := domain.NewPayment(event.ID, user.ID, domain.GatewayWave, decimal.NewFromInt(10000), "xof")
	require.NoError(t, err)
	require.NoError(t, repos.Payments.Create(ctx, p, domain.NewTickets(p, domain.TicketTypeStandard, 2)))
	require.NoError(t, repos.Payments.SetCheckoutURL(ctx, p.Reference, "https://pay.example/x"))

	d, err := repos.Payments.GetDetailsByReference(ctx, p.Reference)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/x", d.Payment.CheckoutURL)
	assert.Len(t, d.Tickets, 2)
	assert.Equal(t, user.ID, d.User.ID)

	d, err = repos.Settlements.Settle(ctx, domain.Settlement{
		Reference: p.Reference, Outcome: domain.OutcomeSuccess, TicketType: domain.TicketTypeStandard, TicketCount: 2, GatewayTransactionID: "T_1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, d.Payment.Status)
	assert.Equal(t, "T_1", d.Payment.GatewayTransactionID)
	assert.Equal(t, 2, d.Event.StandardTicket.Sold)

	_, err = repos.Settlements.Settle(ctx, domain.Settlement{Reference: p.Reference, Outcome: domain.OutcomeFailed})
	assert.ErrorIs(t, err, domain.ErrPaymentAlreadyFinal)

	scanned, err := repos.Tickets.MarkScanned(ctx, d.Tickets[0].ID, time.Now())
	require.NoError(t, err)
	assert.True(t, scanned.Scanned)
	_, err = repos.Tickets.MarkScanned(ctx, d.Tickets[0].ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrTicketAlreadyUsed)
}

func TestPostgresSettle_ConcurrentLastSeat(t *testing.T) {
	repos := postgresRepos(t)
	ctx := context.Background()
	event, user := seed(t, repos, 1, 0)

	const buyers = 10
	refs := make([]string, buyers)
	for i := range refs {
		p, err := domain.NewPayment(event.ID, user.ID, domain.GatewayStripe, decimal.NewFromInt(5000), "xof")
		require.NoError(t, err)
		require.NoError(t, repos.Payments.Create(ctx, p, domain.NewTickets(p, domain.TicketTypeStandard, 1)))
		refs[i] = p.Reference
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for _, ref := range refs {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			_, err := repos.Settlements.Settle(ctx, domain.Settlement{
				Reference: ref, Outcome: domain.OutcomeSuccess, TicketType: domain.TicketTypeStandard, TicketCount: 1,
			})
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrCapacityExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}(ref)
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	got, err := repos.Events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StandardTicket.Sold)
	assert.True(t, got.SoldOut)
}
