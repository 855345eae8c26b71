package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGateway(t *testing.T) {
	g, err := ParseGateway(" Stripe ")
	require.NoError(t, err)
	assert.Equal(t, GatewayStripe, g)

	g, err = ParseGateway("wave")
	require.NoError(t, err)
	assert.Equal(t, GatewayWave, g)

	_, err = ParseGateway("paypal")
	assert.ErrorIs(t, err, ErrUnknownGateway)
}

func TestPaymentStatus_IsFinal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsFinal())
	assert.True(t, PaymentStatusSuccess.IsFinal())
	assert.True(t, PaymentStatusFailed.IsFinal())
	assert.True(t, PaymentStatusRefunded.IsFinal())
	assert.False(t, PaymentStatus("processing").IsValid())
}

func TestNewPayment(t *testing.T) {
	p, err := NewPayment("evt-1", "user-1", GatewayStripe, decimal.RequireFromString("25.50"), "usd")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, p.Status)
	assert.Equal(t, "USD", p.Currency)
	assert.NotEmpty(t, p.Reference)
	assert.NotEqual(t, p.ID, p.Reference)

	_, err = NewPayment("evt-1", "", GatewayStripe, decimal.NewFromInt(1), "USD")
	assert.ErrorIs(t, err, ErrInvalidUserID)
	_, err = NewPayment("evt-1", "user-1", GatewayStripe, decimal.Zero, "USD")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = NewPayment("evt-1", "user-1", Gateway("cash"), decimal.NewFromInt(1), "USD")
	assert.ErrorIs(t, err, ErrUnknownGateway)
}

func TestPaymentDetails_TicketType(t *testing.T) {
	d := &PaymentDetails{}
	_, err := d.TicketType()
	assert.ErrorIs(t, err, ErrNoTickets)

	d.Tickets = []*Ticket{{TicketType: TicketTypeVIP}, {TicketType: TicketTypeVIP}}
	tt, err := d.TicketType()
	require.NoError(t, err)
	assert.Equal(t, TicketTypeVIP, tt)

	d.Tickets = append(d.Tickets, &Ticket{TicketType: TicketTypeStandard})
	_, err = d.TicketType()
	assert.ErrorIs(t, err, ErrMixedTicketTypes)
}

func TestTicketClass_CanFit(t *testing.T) {
	c := TicketClass{Quantity: 100, Sold: 95}

	assert.True(t, c.CanFit(5), "exactly at capacity fits")
	assert.False(t, c.CanFit(6), "one over capacity does not fit")
	assert.False(t, c.CanFit(0))
	assert.Equal(t, 5, c.Remaining())
	assert.Equal(t, 0, TicketClass{Quantity: 3, Sold: 3}.Remaining())
}

func TestEvent_RecomputeSoldOut(t *testing.T) {
	e := &Event{
		StandardTicket: TicketClass{Quantity: 10, Sold: 10},
		VIPTicket:      TicketClass{Quantity: 5, Sold: 4},
	}
	e.RecomputeSoldOut()
	assert.False(t, e.SoldOut, "one class still has stock")

	e.VIPTicket.Sold = 5
	e.RecomputeSoldOut()
	assert.True(t, e.SoldOut)
}

func TestEvent_Class(t *testing.T) {
	e := &Event{}
	e.Class(TicketTypeVIP).Sold = 2
	e.Class(TicketType("balcony")).Sold = 3

	assert.Equal(t, 2, e.VIPTicket.Sold)
	assert.Equal(t, 3, e.StandardTicket.Sold)
}

func TestNewEvent(t *testing.T) {
	date := time.Now().Add(48 * time.Hour)
	e, err := NewEvent("Concert", "Dakar Arena", date, "xof",
		TicketClass{Price: decimal.NewFromInt(5000), Quantity: 100, Sold: 7},
		TicketClass{Price: decimal.NewFromInt(20000), Quantity: 0})
	require.NoError(t, err)

	assert.Equal(t, "XOF", e.Currency)
	assert.Equal(t, 0, e.StandardTicket.Sold, "new events start unsold")
	assert.False(t, e.SoldOut)

	_, err = NewEvent("", "x", date, "USD", TicketClass{}, TicketClass{})
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = NewEvent("x", "x", date, "USD", TicketClass{Quantity: -1}, TicketClass{})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestTicket_CheckTransfer(t *testing.T) {
	now := time.Now()
	future := &Event{Date: now.Add(time.Hour)}
	past := &Event{Date: now.Add(-time.Hour)}

	base := func() *Ticket {
		return &Ticket{UserID: "alice", Status: TicketStatusSuccess}
	}

	tests := []struct {
		name    string
		mutate  func(t *Ticket)
		holder  string
		to      string
		event   *Event
		wantErr error
	}{
		{name: "ok", holder: "alice", to: "bob", event: future},
		{name: "not owner", holder: "mallory", to: "bob", event: future, wantErr: ErrNotTicketOwner},
		{name: "self", holder: "alice", to: "alice", event: future, wantErr: ErrSelfTransfer},
		{name: "pending", mutate: func(t *Ticket) { t.Status = TicketStatusPending }, holder: "alice", to: "bob", event: future, wantErr: ErrInvalidTicketState},
		{name: "scanned", mutate: func(t *Ticket) { t.Scanned = true }, holder: "alice", to: "bob", event: future, wantErr: ErrTicketAlreadyUsed},
		{name: "past event", holder: "alice", to: "bob", event: past, wantErr: ErrEventPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := base()
			if tt.mutate != nil {
				tt.mutate(ticket)
			}
			err := ticket.CheckTransfer(tt.holder, tt.to, tt.event, now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTicket_CheckScan(t *testing.T) {
	now := time.Now()
	ticket := &Ticket{Status: TicketStatusSuccess}
	assert.NoError(t, ticket.CheckScan(&Event{Date: now.Add(time.Hour)}, now))

	ticket.Scanned = true
	assert.ErrorIs(t, ticket.CheckScan(nil, now), ErrTicketAlreadyUsed)

	failed := &Ticket{Status: TicketStatusFailed}
	assert.ErrorIs(t, failed.CheckScan(nil, now), ErrInvalidTicketState)
}

func TestTicketStatusFor(t *testing.T) {
	assert.Equal(t, TicketStatusSuccess, TicketStatusFor(PaymentStatusSuccess))
	assert.Equal(t, TicketStatusFailed, TicketStatusFor(PaymentStatusFailed))
	assert.Equal(t, TicketStatusFailed, TicketStatusFor(PaymentStatusRefunded))
	assert.Equal(t, TicketStatusPending, TicketStatusFor(PaymentStatusPending))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2550), ToMinorUnits(decimal.RequireFromString("25.50"), "USD"))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.985"), "eur"))
	assert.Equal(t, int64(5000), ToMinorUnits(decimal.NewFromInt(5000), "XOF"))
	assert.Equal(t, "75", LineTotal(decimal.NewFromInt(25), 3).String())
}

func TestOutcome_PaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentStatusSuccess, OutcomeSuccess.PaymentStatus())
	assert.Equal(t, PaymentStatusRefunded, OutcomeRefunded.PaymentStatus())
	assert.Equal(t, PaymentStatusFailed, OutcomeFailed.PaymentStatus())
	assert.True(t, Settlement{Outcome: OutcomeSuccess}.IsSale())
	assert.False(t, Settlement{Outcome: OutcomeRefunded}.IsSale())
}

func TestNewUser(t *testing.T) {
	u, err := NewUser("  Fan@Example.COM ", " Fan ")
	require.NoError(t, err)
	assert.Equal(t, "fan@example.com", u.Email)
	assert.Equal(t, "Fan", u.Name)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.NotEmpty(t, u.ID)

	for _, bad := range []string{"", "not-an-email", "Fan <fan@example.com>"} {
		_, err := NewUser(bad, "x")
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}
