package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupTicketRouter(tickets *MockTicketService) *gin.Engine {
	router := newTestRouter()
	h := NewTicketHandler(tickets)
	router.GET("/tickets/:id", h.GetTicket)
	router.GET("/users/:userId/tickets", h.ListUserTickets)
	router.POST("/tickets/:id/transfer", h.TransferTicket)
	router.POST("/admin/tickets/scan", h.ScanTicket)
	return router
}

func getAs(router *gin.Engine, path, userID, role string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	if role != "" {
		req.Header.Set(middleware.UserRoleHeader, role)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestGetTicket(t *testing.T) {
	tickets := new(MockTicketService)
	router := setupTicketRouter(tickets)

	tickets.On("GetTicket", mock.Anything, "t-1", "user-1", false).Return(&service.TicketView{
		Ticket: &domain.Ticket{ID: "t-1", UserID: "user-1", Status: domain.TicketStatusSuccess},
		QRCode: "signed.qr.token",
	}, nil)
	tickets.On("GetTicket", mock.Anything, "t-1", "user-2", false).Return(nil, domain.ErrNotTicketOwner)
	tickets.On("GetTicket", mock.Anything, "t-404", "user-1", false).Return(nil, domain.ErrTicketNotFound)

	w := getAs(router, "/tickets/t-1", "user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"qr_code":"signed.qr.token"`)

	w = getAs(router, "/tickets/t-1", "user-2", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = getAs(router, "/tickets/t-404", "user-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUserTickets(t *testing.T) {
	tickets := new(MockTicketService)
	router := setupTicketRouter(tickets)

	tickets.On("ListUserTickets", mock.Anything, "user-1", 5, 0).Return([]*service.TicketView{
		{Ticket: &domain.Ticket{ID: "t-1"}},
		{Ticket: &domain.Ticket{ID: "t-2"}},
	}, nil)

	w := getAs(router, "/users/user-1/tickets?limit=5", "user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = getAs(router, "/users/user-1/tickets?limit=5", "user-9", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = getAs(router, "/users/user-1/tickets?limit=5", "ops", middleware.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransferTicket(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "transferred", body: `{"to_email":"friend@example.com"}`, want: http.StatusOK},
		{name: "bad email", body: `{"to_email":"nope"}`, want: http.StatusBadRequest},
		{name: "recipient unknown", body: `{"to_email":"ghost@example.com"}`, err: domain.ErrUserNotFound, want: http.StatusNotFound},
		{name: "already scanned", body: `{"to_email":"friend@example.com"}`, err: domain.ErrTicketAlreadyUsed, want: http.StatusConflict},
		{name: "to self", body: `{"to_email":"me@example.com"}`, err: domain.ErrSelfTransfer, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tickets := new(MockTicketService)
			router := setupTicketRouter(tickets)
			if tt.err != nil {
				tickets.On("TransferTicket", mock.Anything, "t-1", "user-1", mock.Anything).Return(nil, tt.err)
			} else {
				tickets.On("TransferTicket", mock.Anything, "t-1", "user-1", "friend@example.com").
					Return(&domain.Ticket{ID: "t-1", UserID: "user-2", TransferredFrom: "user-1"}, nil)
			}

			w := postJSON(router, "/tickets/t-1/transfer", tt.body, map[string]string{middleware.UserIDHeader: "user-1"})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestTransferTicket_RequiresUser(t *testing.T) {
	tickets := new(MockTicketService)
	router := setupTicketRouter(tickets)

	w := postJSON(router, "/tickets/t-1/transfer", `{"to_email":"friend@example.com"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	tickets.AssertNotCalled(t, "TransferTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScanTicket(t *testing.T) {
	tickets := new(MockTicketService)
	router := setupTicketRouter(tickets)

	tickets.On("ScanTicket", mock.Anything, "good").Return(&domain.Ticket{ID: "t-1", Scanned: true}, nil)
	tickets.On("ScanTicket", mock.Anything, "used").Return(nil, domain.ErrTicketAlreadyUsed)
	tickets.On("ScanTicket", mock.Anything, "forged").Return(nil, service.ErrInvalidQRCode)

	w := postJSON(router, "/admin/tickets/scan", `{"qr_code":"good"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scanned":true`)

	w = postJSON(router, "/admin/tickets/scan", `{"qr_code":"used"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "TICKET_ALREADY_USED")

	w = postJSON(router, "/admin/tickets/scan", `{"qr_code":"forged"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_QR_CODE")

	w = postJSON(router, "/admin/tickets/scan", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
