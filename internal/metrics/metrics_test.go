package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveVerification(t *testing.T) {
	before := testutil.ToFloat64(verificationsTotal.WithLabelValues("stripe", "success"))

	ObserveVerification("stripe", "success", 150*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(verificationsTotal.WithLabelValues("stripe", "success")))
}

func TestRefundFailed(t *testing.T) {
	before := testutil.ToFloat64(refundFailuresTotal.WithLabelValues("wave"))
	RefundFailed("wave")
	assert.Equal(t, before+1, testutil.ToFloat64(refundFailuresTotal.WithLabelValues("wave")))
}

func TestTicketsSold(t *testing.T) {
	before := testutil.ToFloat64(ticketsSoldTotal.WithLabelValues("vip"))

	TicketsSold("vip", 3)
	TicketsSold("vip", 0)

	assert.Equal(t, before+3, testutil.ToFloat64(ticketsSoldTotal.WithLabelValues("vip")))
}
