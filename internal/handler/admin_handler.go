package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/dto"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
)

// AdminHandler handles back-office HTTP requests
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListPayments handles GET /admin/payments?event_id=&status=&gateway=&limit=&offset=
func (h *AdminHandler) ListPayments(c *gin.Context) {
	var q dto.ListPaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid query parameters", err.Error())
		return
	}
	filter, err := q.Filter()
	if err != nil {
		handleError(c, err)
		return
	}

	payments, err := h.adminService.ListPayments(c.Request.Context(), filter, q.Limit, q.Offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Paginated(c, dto.FromPayments(payments), response.PageMeta{Limit: q.Limit, Offset: q.Offset, Count: len(payments)})
}
