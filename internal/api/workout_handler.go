package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gymvision/internal/domain"
	"gymvision/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler holds the workout service dependency.
type WorkoutHandler struct {
	workoutService service.WorkoutService
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// --- Request Structs ---

type CreateWorkoutRequest struct {
	GymID       *string `json:"gymId"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Date        string  `json:"date" binding:"required"` // RFC 3339
}

type UpdateWorkoutStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// --- Handler Methods ---

// ListWorkouts returns the caller's workouts, newest first.
func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	workouts, err := h.workoutService.GetMyWorkouts(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list workouts")
		return
	}
	c.JSON(http.StatusOK, workouts)
}

// GetWorkout returns one workout, transcript included.
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	workoutID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID")
		return
	}

	workout, err := h.workoutService.GetWorkout(c.Request.Context(), userID, workoutID)
	if err != nil {
		if errors.Is(err, service.ErrWorkoutNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch workout")
		return
	}
	c.JSON(http.StatusOK, workout)
}

// CreateWorkout persists a new workout.
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	var req CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date: must be RFC 3339")
		return
	}

	var gymID *primitive.ObjectID
	if req.GymID != nil && *req.GymID != "" {
		id, err := primitive.ObjectIDFromHex(*req.GymID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
			return
		}
		gymID = &id
	}

	workout, err := h.workoutService.CreateWorkout(c.Request.Context(), userID, service.CreateWorkoutInput{
		GymID:       gymID,
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.WorkoutStatus(req.Status),
		Date:        date,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to create workout")
		return
	}
	c.JSON(http.StatusCreated, workout)
}

// UpdateStatus patches the workout's status field only.
func (h *WorkoutHandler) UpdateStatus(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	workoutID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID")
		return
	}

	var req UpdateWorkoutStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	err = h.workoutService.UpdateStatus(c.Request.Context(), userID, workoutID, domain.WorkoutStatus(req.Status))
	if err != nil {
		if errors.Is(err, service.ErrWorkoutNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, service.ErrInvalidStatus) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update workout")
		return
	}
	c.Status(http.StatusOK)
}

// DeleteWorkout removes the workout.
func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	workoutID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID")
		return
	}

	err = h.workoutService.DeleteWorkout(c.Request.Context(), userID, workoutID)
	if err != nil {
		if errors.Is(err, service.ErrWorkoutNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete workout")
		return
	}
	c.Status(http.StatusNoContent)
}
