package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"challengeapp/internal/config"
	"challengeapp/internal/observability"
	"challengeapp/internal/services"
	contextutils "challengeapp/internal/utils"
)

// ChallengeHandler serves the challenge catalog and the rotation results
type ChallengeHandler struct {
	dailyChallengeService services.DailyChallengeServiceInterface
	challengeService      services.ChallengeServiceInterface
	userService           services.UserServiceInterface
	cfg                   *config.Config
	logger                *observability.Logger
}

// NewChallengeHandler creates a new ChallengeHandler instance
func NewChallengeHandler(
	dailyChallengeService services.DailyChallengeServiceInterface,
	challengeService services.ChallengeServiceInterface,
	userService services.UserServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *ChallengeHandler {
	return &ChallengeHandler{
		dailyChallengeService: dailyChallengeService,
		challengeService:      challengeService,
		userService:           userService,
		cfg:                   cfg,
		logger:                logger,
	}
}

// GetDaily returns the caller's challenge of the day across their
// subscriptions. A day with nothing to serve is a normal 200 response with
// available=false, not an error.
func (h *ChallengeHandler) GetDaily(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GetDaily")
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

	pick, err := h.dailyChallengeService.ChallengeOfTheDay(ctx, user, time.Now())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if pick == nil {
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available":          true,
		"matiere":            pick.Matiere,
		"challenge":          pick.Challenge,
		"available_matieres": pick.Available,
	})
}

// GetCurrent returns the challenge currently scheduled for one subject
func (h *ChallengeHandler) GetCurrent(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GetCurrent")
	defer span.End()

	matiere := c.Param("matiere")
	if !contextutils.IsValidMatiereCode(matiere) {
		HandleValidationError(c, "matiere", matiere, "not a valid subject code")
		return
	}

	challenge, err := h.dailyChallengeService.CurrentForMatiere(ctx, matiere, time.Now())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if challenge == nil {
		c.JSON(http.StatusOK, gin.H{"available": false, "matiere": matiere})
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": true, "matiere": matiere, "challenge": challenge})
}

// ListChallenges returns the full catalog for a subject in rotation order
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "ListChallenges")
	defer span.End()

	matiere := c.Param("matiere")
	if !contextutils.IsValidMatiereCode(matiere) {
		HandleValidationError(c, "matiere", matiere, "not a valid subject code")
		return
	}

	challenges, err := h.challengeService.ListChallenges(ctx, matiere)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matiere": matiere, "challenges": challenges})
}

type createChallengeRequest struct {
	Matiere  string `json:"matiere"`
	Question string `json:"question"`
	Date     string `json:"date"`
}

// CreateChallenge authors a new challenge (admin only)
func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "CreateChallenge")
	defer span.End()

	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request body", "", err.Error())
		return
	}

	challenge, err := h.challengeService.CreateChallenge(ctx, req.Matiere, req.Question, req.Date)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"challenge": challenge})
}
