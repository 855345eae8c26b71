package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/middleware"
	"github.com/stretchr/testify/mock"
)

// MockVerificationService is a mock implementation of VerificationService
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) VerifyPayment(ctx context.Context, gatewayName, reference string) (*service.VerificationResult, error) {
	args := m.Called(ctx, gatewayName, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerificationResult), args.Error(1)
}

// MockPurchaseService is a mock implementation of PurchaseService
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) InitiatePurchase(ctx context.Context, req *service.PurchaseRequest) (*service.PurchaseResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PurchaseResult), args.Error(1)
}

// MockTicketService is a mock implementation of TicketService
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) GetTicket(ctx context.Context, ticketID, userID string, asAdmin bool) (*service.TicketView, error) {
	args := m.Called(ctx, ticketID, userID, asAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TicketView), args.Error(1)
}

func (m *MockTicketService) ListUserTickets(ctx context.Context, userID string, limit, offset int) ([]*service.TicketView, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.TicketView), args.Error(1)
}

func (m *MockTicketService) TransferTicket(ctx context.Context, ticketID, fromUserID, toEmail string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, fromUserID, toEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ScanTicket(ctx context.Context, qrToken string) (*domain.Ticket, error) {
	args := m.Called(ctx, qrToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// MockEventService is a mock implementation of EventService
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) CreateEvent(ctx context.Context, req *service.CreateEventRequest) (*domain.Event, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

// MockAdminService is a mock implementation of AdminService
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListPayments(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]*domain.Payment, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.UserContext())
	return router
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, name string) (*domain.User, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
