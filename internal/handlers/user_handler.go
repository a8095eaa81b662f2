package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"challengeapp/internal/config"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
	"challengeapp/internal/services"
)

// UserHandler serves the caller's own account and subscriptions
type UserHandler struct {
	userService services.UserServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *UserHandler {
	return &UserHandler{userService: userService, cfg: cfg, logger: logger}
}

// GetSubscriptions returns the caller's subject subscriptions
func (h *UserHandler) GetSubscriptions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GetSubscriptions")
	defer span.End()

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriptions": scheduler.ParseSubscriptions(user.Subscriptions),
	})
}

type updateSubscriptionsRequest struct {
	Subscriptions []string `json:"subscriptions"`
}

// UpdateSubscriptions replaces the caller's subject subscriptions
func (h *UserHandler) UpdateSubscriptions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "UpdateSubscriptions")
	defer span.End()

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	var req updateSubscriptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request body", "", err.Error())
		return
	}

	if err := h.userService.UpdateSubscriptions(ctx, userID, req.Subscriptions); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(ctx, "Subscriptions updated", map[string]interface{}{
		"user_id": userID,
		"count":   len(req.Subscriptions),
	})
	c.JSON(http.StatusOK, gin.H{"subscriptions": req.Subscriptions})
}
