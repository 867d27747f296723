package api

import (
	"errors"
	"fmt"
	"net/http"

	"gymvision/internal/service"

	"github.com/gin-gonic/gin"
)

// GoalHandler holds the goal service dependency.
type GoalHandler struct {
	goalService service.GoalService
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService service.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

type CreateGoalRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateGoalRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ListGoals returns the caller's non-deleted goals.
func (h *GoalHandler) ListGoals(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	goals, err := h.goalService.GetMyGoals(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list goals")
		return
	}
	c.JSON(http.StatusOK, goals)
}

// CreateGoal persists a new goal.
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	goal, err := h.goalService.CreateGoal(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create goal")
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// UpdateGoal patches name and/or description.
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	goalID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid goal ID")
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if req.Name == nil && req.Description == nil {
		abortWithError(c, http.StatusBadRequest, "No update data provided")
		return
	}

	err = h.goalService.UpdateGoal(c.Request.Context(), userID, goalID, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrGoalNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update goal")
		return
	}
	c.Status(http.StatusOK)
}

// DeleteGoal soft deletes a goal.
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	goalID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid goal ID")
		return
	}

	err = h.goalService.DeleteGoal(c.Request.Context(), userID, goalID)
	if err != nil {
		if errors.Is(err, service.ErrGoalNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete goal")
		return
	}
	c.Status(http.StatusNoContent)
}
