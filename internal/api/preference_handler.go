package api

import (
	"fmt"
	"net/http"

	"gymvision/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreferenceHandler holds the preference service dependency.
type PreferenceHandler struct {
	preferenceService service.PreferenceService
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(preferenceService service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

type UpdatePreferencesRequest struct {
	SelectedGymID *string           `json:"selectedGymId"`
	Settings      map[string]string `json:"settings"`
}

// GetPreferences returns the caller's preferences (empty if unset).
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	prefs, err := h.preferenceService.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch preferences")
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences applies a partial update and returns the stored state.
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if req.SelectedGymID == nil && req.Settings == nil {
		abortWithError(c, http.StatusBadRequest, "No update data provided")
		return
	}

	input := service.UpdatePreferencesInput{Settings: req.Settings}
	if req.SelectedGymID != nil {
		gymID, err := primitive.ObjectIDFromHex(*req.SelectedGymID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
			return
		}
		input.SelectedGymID = &gymID
	}

	prefs, err := h.preferenceService.UpdatePreferences(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to update preferences")
		return
	}
	c.JSON(http.StatusOK, prefs)
}
