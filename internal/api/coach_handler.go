package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"gymvision/internal/domain"
	"gymvision/internal/service"

	"github.com/gin-gonic/gin"
)

// CoachHandler streams coach chat turns over Server-Sent Events.
type CoachHandler struct {
	coachService service.CoachService
}

// NewCoachHandler creates a new CoachHandler.
func NewCoachHandler(coachService service.CoachService) *CoachHandler {
	return &CoachHandler{coachService: coachService}
}

// CoachTurnRequest carries the transcript for one turn. The last entry
// must be the new user message; the server reads the workout's current
// name/description itself rather than trusting the client's copy.
type CoachTurnRequest struct {
	Messages []domain.Message `json:"messages" binding:"required"`
}

// StreamTurn handles POST /workouts/:id/coach. The response is an SSE
// stream of coach events (text-delta, tool-call, tool-result, finish,
// error) in model emission order.
func (h *CoachHandler) StreamTurn(c *gin.Context) {
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

	var req CoachTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	events, err := h.coachService.StreamTurn(c.Request.Context(), userID, workoutID, req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTurnRequest):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrWorkoutNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to start coach turn")
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Flush each event as it arrives; the channel closes after the
	// terminal finish or error event.
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Kind), ev)
		return true
	})
}
