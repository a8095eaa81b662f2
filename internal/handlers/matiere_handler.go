package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"challengeapp/internal/config"
	"challengeapp/internal/observability"
	"challengeapp/internal/services"
)

// MatiereHandler serves subject management endpoints
type MatiereHandler struct {
	matiereService services.MatiereServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewMatiereHandler creates a new MatiereHandler instance
func NewMatiereHandler(matiereService services.MatiereServiceInterface, cfg *config.Config, logger *observability.Logger) *MatiereHandler {
	return &MatiereHandler{matiereService: matiereService, cfg: cfg, logger: logger}
}

// ListMatieres returns all subjects
func (h *MatiereHandler) ListMatieres(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "ListMatieres")
	defer span.End()

	matieres, err := h.matiereService.ListMatieres(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matieres": matieres})
}

type createMatiereRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Granularite string `json:"granularite"`
}

// CreateMatiere registers a new subject (admin only)
func (h *MatiereHandler) CreateMatiere(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "CreateMatiere")
	defer span.End()

	var req createMatiereRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request body", "", err.Error())
		return
	}

	matiere, err := h.matiereService.CreateMatiere(ctx, req.Name, req.Description, req.Granularite)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"matiere": matiere})
}
