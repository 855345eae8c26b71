package service

import (
	"context"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
)

// AdminService backs the back-office payment tracking
type AdminService interface {
	ListPayments(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]*domain.Payment, error)
}

type adminService struct {
	payments repository.PaymentRepository
}

// NewAdminService creates a new AdminService
func NewAdminService(payments repository.PaymentRepository) AdminService {
	return &adminService{payments: payments}
}

// ListPayments returns payments matching filter, newest first
func (s *adminService) ListPayments(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]*domain.Payment, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.ErrInvalidPaymentStatus
	}
	limit, offset = clampPage(limit, offset)
	return s.payments.List(ctx, filter, limit, offset)
}
