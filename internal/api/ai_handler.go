package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gymvision/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AIHandler exposes the non-conversational AI endpoints: workout
// generation, workout log parsing and gym scanning.
type AIHandler struct {
	generatorService service.GeneratorService
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(generatorService service.GeneratorService) *AIHandler {
	return &AIHandler{generatorService: generatorService}
}

// --- Request Structs ---

type GenerateWorkoutRequest struct {
	GymID           string   `json:"gymId" binding:"required"`
	Equipment       []string `json:"equipment"`
	Prompt          string   `json:"prompt"` // User goals
	ExperienceLevel string   `json:"experienceLevel"`
}

type LogWorkoutRequest struct {
	Prompt     string `json:"prompt" binding:"required"`
	ClientDate string `json:"clientDate"` // RFC 3339, optional
}

type ScanGymRequest struct {
	Image       string `json:"image"`       // base64, optional data-URL prefix
	Description string `json:"description"` // free-form, optional
}

// --- Handler Methods ---

// GenerateWorkout creates a draft workout plan from equipment and goals.
func (h *AIHandler) GenerateWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	var req GenerateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	gymID, err := primitive.ObjectIDFromHex(req.GymID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
		return
	}

	workout, err := h.generatorService.GenerateWorkout(c.Request.Context(), userID, service.GenerateWorkoutInput{
		GymID:           gymID,
		Equipment:       req.Equipment,
		Goals:           req.Prompt,
		ExperienceLevel: req.ExperienceLevel,
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to generate workout")
		return
	}
	c.JSON(http.StatusOK, workout)
}

// LogWorkout parses a natural language workout description into
// structured data. Persisting the result goes through the normal
// workout-creation endpoint.
func (h *AIHandler) LogWorkout(c *gin.Context) {
	var req LogWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	clientDate := time.Time{}
	if req.ClientDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.ClientDate)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid clientDate: must be RFC 3339")
			return
		}
		clientDate = parsed
	}

	parsed, err := h.generatorService.ParseWorkoutLog(c.Request.Context(), req.Prompt, clientDate)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPrompt) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to log workout")
		return
	}
	c.JSON(http.StatusOK, parsed)
}

// ScanGym analyzes a gym photo and/or description.
func (h *AIHandler) ScanGym(c *gin.Context) {
	var req ScanGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	result, err := h.generatorService.ScanGym(c.Request.Context(), req.Image, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrScanInputMissing) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to scan gym")
		return
	}
	c.JSON(http.StatusOK, result)
}
