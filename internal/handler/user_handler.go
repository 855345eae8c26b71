package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/dto"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/middleware"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
)

// UserHandler handles buyer registration
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register handles POST /users
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "a valid email is required", err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, dto.FromUser(user))
}

// GetUser handles GET /users/:userId
func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("userId")
	callerID, _ := middleware.GetUserID(c)
	if callerID != userID && middleware.GetUserRole(c) != middleware.RoleAdmin {
		response.Forbidden(c, "cannot read another user")
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromUser(user))
}
