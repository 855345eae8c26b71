package dto

import (
	"testing"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEventRequest_Prices(t *testing.T) {
	req := &CreateEventRequest{StandardPrice: " 12.5 ", VIPPrice: ""}
	standard, vip, err := req.Prices()
	require.NoError(t, err)
	assert.True(t, standard.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, vip.IsZero())

	req.VIPPrice = "1e"
	_, _, err = req.Prices()
	assert.ErrorContains(t, err, "vip_price")
}

func TestListPaymentsQuery_Filter(t *testing.T) {
	q := &ListPaymentsQuery{EventID: "evt-1", Status: "success", Gateway: " Wave"}
	f, err := q.Filter()
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFilter{EventID: "evt-1", Status: domain.PaymentStatusSuccess, Gateway: domain.GatewayWave}, f)

	q.Gateway = "paypal"
	_, err = q.Filter()
	assert.ErrorIs(t, err, domain.ErrUnknownGateway)
}

func TestFromEvent(t *testing.T) {
	e := &domain.Event{
		ID:             "evt-1",
		StandardTicket: domain.TicketClass{Price: decimal.NewFromInt(30), Quantity: 10, Sold: 4},
		VIPTicket:      domain.TicketClass{Price: decimal.NewFromInt(90), Quantity: 2, Sold: 2},
	}
	resp := FromEvent(e)
	assert.Equal(t, "30.00", resp.Standard.Price)
	assert.Equal(t, 6, resp.Standard.Remaining)
	assert.Equal(t, 0, resp.VIP.Remaining)
	assert.Nil(t, FromEvent(nil))
}
