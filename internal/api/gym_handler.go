package api

import (
	"errors"
	"fmt"
	"net/http"

	"gymvision/internal/service"

	"github.com/gin-gonic/gin"
)

// GymHandler holds the gym service dependency.
type GymHandler struct {
	gymService service.GymService
}

// NewGymHandler creates a new GymHandler.
func NewGymHandler(gymService service.GymService) *GymHandler {
	return &GymHandler{gymService: gymService}
}

// --- Request Structs ---

type CreateGymRequest struct {
	Name        string   `json:"name" binding:"required"`
	Location    string   `json:"location" binding:"required"`
	Description string   `json:"description"`
	Equipment   []string `json:"equipment"`
}

type RequestImageUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmImageUploadRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

// --- Handler Methods ---

// ListGyms returns the caller's non-deleted gyms.
func (h *GymHandler) ListGyms(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	gyms, err := h.gymService.GetMyGyms(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list gyms")
		return
	}
	c.JSON(http.StatusOK, gyms)
}

// CreateGym registers a new gym for the caller.
func (h *GymHandler) CreateGym(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}

	var req CreateGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	gym, err := h.gymService.CreateGym(c.Request.Context(), userID, service.CreateGymInput{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		Equipment:   req.Equipment,
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create gym")
		return
	}
	c.JSON(http.StatusCreated, gym)
}

// UpdateGym replaces a gym's mutable fields.
func (h *GymHandler) UpdateGym(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	gymID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
		return
	}

	var req CreateGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	err = h.gymService.UpdateGym(c.Request.Context(), userID, gymID, service.CreateGymInput{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		Equipment:   req.Equipment,
	})
	if err != nil {
		if errors.Is(err, service.ErrGymNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update gym")
		return
	}
	c.Status(http.StatusOK)
}

// DeleteGym soft deletes a gym.
func (h *GymHandler) DeleteGym(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	gymID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
		return
	}

	err = h.gymService.DeleteGym(c.Request.Context(), userID, gymID)
	if err != nil {
		if errors.Is(err, service.ErrGymNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete gym")
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestImageUpload returns a presigned PUT URL for a gym photo.
func (h *GymHandler) RequestImageUpload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	gymID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
		return
	}

	var req RequestImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	resp, err := h.gymService.RequestImageUploadURL(c.Request.Context(), userID, gymID, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrGymNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to generate upload URL")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmImageUpload records the uploaded photo's object key.
func (h *GymHandler) ConfirmImageUpload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	gymID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
		return
	}

	var req ConfirmImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	err = h.gymService.ConfirmImageUpload(c.Request.Context(), userID, gymID, req.ObjectKey)
	if err != nil {
		if errors.Is(err, service.ErrGymNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Status(http.StatusOK)
}

// GetImageURL returns a temporary viewing URL for the gym photo.
func (h *GymHandler) GetImageURL(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return
	}
	gymID, err := parseObjectIDParam(c, "id")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gym ID")
		return
	}

	url, err := h.gymService.GetImageDownloadURL(c.Request.Context(), userID, gymID)
	if err != nil {
		if errors.Is(err, service.ErrGymNotFound) {
			abortWithError(c, http.StatusNotFound, "Gym or image not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}
