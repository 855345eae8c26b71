package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketFixture struct {
	repos    *repository.Repositories
	svc      *ticketService
	event    *domain.Event
	owner    *domain.User
	friend   *domain.User
	ticketID string
}

func newTicketFixture(t *testing.T, settle domain.Outcome) *ticketFixture {
	t.Helper()
	ctx := context.Background()
	repos := repository.NewMemoryRepositories()

	event, err := domain.NewEvent("Derby", "Stadium", time.Now().Add(48*time.Hour), "USD",
		domain.TicketClass{Price: decimal.NewFromInt(25), Quantity: 50},
		domain.TicketClass{Price: decimal.NewFromInt(90), Quantity: 5},
	)
	require.NoError(t, err)
	require.NoError(t, repos.Events.Create(ctx, event))

	owner := &domain.User{ID: uuid.New().String(), Email: "owner@example.com", CreatedAt: time.Now()}
	friend := &domain.User{ID: uuid.New().String(), Email: "friend@example.com", CreatedAt: time.Now()}
	require.NoError(t, repos.Users.Create(ctx, owner))
	require.NoError(t, repos.Users.Create(ctx, friend))

	p, err := domain.NewPayment(event.ID, owner.ID, domain.GatewayStripe, decimal.NewFromInt(25), "USD")
	require.NoError(t, err)
	require.NoError(t, repos.Payments.Create(ctx, p, domain.NewTickets(p, domain.TicketTypeStandard, 1)))
	if settle != "" {
		_, err = repos.Settlements.Settle(ctx, domain.Settlement{
			Reference: p.Reference, Outcome: settle, TicketType: domain.TicketTypeStandard, TicketCount: 1,
		})
		require.NoError(t, err)
	}

	signer, err := NewQRSigner("ticket-test-key", time.Hour)
	require.NoError(t, err)

	return &ticketFixture{
		repos:    repos,
		svc:      NewTicketService(repos, signer).(*ticketService),
		event:    event,
		owner:    owner,
		friend:   friend,
		ticketID: p.TicketIDs[0],
	}
}

func TestGetTicket(t *testing.T) {
	f := newTicketFixture(t, domain.OutcomeSuccess)
	ctx := context.Background()

	v, err := f.svc.GetTicket(ctx, f.ticketID, f.owner.ID, false)
	require.NoError(t, err)
	assert.NotEmpty(t, v.QRCode)

	claims, err := f.svc.signer.Parse(v.QRCode)
	require.NoError(t, err)
	assert.Equal(t, f.ticketID, claims.TicketID)
	assert.Equal(t, f.owner.ID, claims.UserID)

	_, err = f.svc.GetTicket(ctx, f.ticketID, f.friend.ID, false)
	assert.ErrorIs(t, err, domain.ErrNotTicketOwner)

	_, err = f.svc.GetTicket(ctx, f.ticketID, "", true)
	assert.NoError(t, err)
}

func TestGetTicket_PendingHasNoQRCode(t *testing.T) {
	f := newTicketFixture(t, "")

	v, err := f.svc.GetTicket(context.Background(), f.ticketID, f.owner.ID, false)
	require.NoError(t, err)
	assert.Empty(t, v.QRCode)
}

func TestListUserTickets(t *testing.T) {
	f := newTicketFixture(t, domain.OutcomeSuccess)

	views, err := f.svc.ListUserTickets(context.Background(), f.owner.ID, 0, -5)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.NotEmpty(t, views[0].QRCode)

	none, err := f.svc.ListUserTickets(context.Background(), f.friend.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTransferTicket(t *testing.T) {
	f := newTicketFixture(t, domain.OutcomeSuccess)
	ctx := context.Background()

	before, err := f.svc.GetTicket(ctx, f.ticketID, f.owner.ID, false)
	require.NoError(t, err)

	moved, err := f.svc.TransferTicket(ctx, f.ticketID, f.owner.ID, "Friend@Example.com")
	require.NoError(t, err)
	assert.Equal(t, f.friend.ID, moved.UserID)
	assert.Equal(t, f.owner.ID, moved.TransferredFrom)
	require.NotNil(t, moved.TransferredAt)

	// The old holder's code no longer admits anyone
	_, err = f.svc.ScanTicket(ctx, before.QRCode)
	assert.ErrorIs(t, err, ErrInvalidQRCode)

	after, err := f.svc.GetTicket(ctx, f.ticketID, f.friend.ID, false)
	require.NoError(t, err)
	scanned, err := f.svc.ScanTicket(ctx, after.QRCode)
	require.NoError(t, err)
	assert.True(t, scanned.Scanned)
}

func TestTransferTicket_Rules(t *testing.T) {
	tests := []struct {
		name    string
		settle  domain.Outcome
		from    func(f *ticketFixture) string
		to      string
		shift   time.Duration
		wantErr error
	}{
		{name: "not owner", settle: domain.OutcomeSuccess, from: func(f *ticketFixture) string { return f.friend.ID }, to: "owner@example.com", wantErr: domain.ErrNotTicketOwner},
		{name: "self", settle: domain.OutcomeSuccess, from: func(f *ticketFixture) string { return f.owner.ID }, to: "owner@example.com", wantErr: domain.ErrSelfTransfer},
		{name: "unknown recipient", settle: domain.OutcomeSuccess, from: func(f *ticketFixture) string { return f.owner.ID }, to: "stranger@example.com", wantErr: domain.ErrUserNotFound},
		{name: "unpaid ticket", settle: domain.OutcomeFailed, from: func(f *ticketFixture) string { return f.owner.ID }, to: "friend@example.com", wantErr: domain.ErrInvalidTicketState},
		{name: "event over", settle: domain.OutcomeSuccess, from: func(f *ticketFixture) string { return f.owner.ID }, to: "friend@example.com", shift: 72 * time.Hour, wantErr: domain.ErrEventPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTicketFixture(t, tt.settle)
			if tt.shift > 0 {
				f.svc.now = func() time.Time { return time.Now().Add(tt.shift) }
			}
			_, err := f.svc.TransferTicket(context.Background(), f.ticketID, tt.from(f), tt.to)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScanTicket(t *testing.T) {
	f := newTicketFixture(t, domain.OutcomeSuccess)
	ctx := context.Background()

	v, err := f.svc.GetTicket(ctx, f.ticketID, f.owner.ID, false)
	require.NoError(t, err)

	scanned, err := f.svc.ScanTicket(ctx, v.QRCode)
	require.NoError(t, err)
	assert.True(t, scanned.Scanned)
	assert.NotNil(t, scanned.ScannedAt)

	_, err = f.svc.ScanTicket(ctx, v.QRCode)
	assert.ErrorIs(t, err, domain.ErrTicketAlreadyUsed)

	_, err = f.svc.TransferTicket(ctx, f.ticketID, f.owner.ID, "friend@example.com")
	assert.ErrorIs(t, err, domain.ErrTicketAlreadyUsed)

	_, err = f.svc.ScanTicket(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidQRCode)
}

func TestScanTicket_EventPast(t *testing.T) {
	f := newTicketFixture(t, domain.OutcomeSuccess)
	ctx := context.Background()

	v, err := f.svc.GetTicket(ctx, f.ticketID, f.owner.ID, false)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(72 * time.Hour) }
	_, err = f.svc.ScanTicket(ctx, v.QRCode)
	assert.ErrorIs(t, err, domain.ErrEventPast)
}

func TestClampPage(t *testing.T) {
	l, o := clampPage(0, -1)
	assert.Equal(t, 20, l)
	assert.Equal(t, 0, o)

	l, _ = clampPage(500, 0)
	assert.Equal(t, 100, l)
}
