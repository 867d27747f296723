package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"gymvision/internal/domain"
	"gymvision/internal/repository"
	"gymvision/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrGymNotFound    = errors.New("gym not found")
	ErrUploadURLError = errors.New("failed to generate upload URL")
)

// GymImageUploadResponse returns the presigned URL and the object key
// the client must report back when confirming the upload.
type GymImageUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// CreateGymInput carries the fields accepted for a new gym.
type CreateGymInput struct {
	Name        string
	Location    string
	Description string
	Equipment   []string
}

// GymService manages a user's registered gyms and their photos.
type GymService interface {
	GetMyGyms(ctx context.Context, userID primitive.ObjectID) ([]domain.Gym, error)
	GetGym(ctx context.Context, userID, gymID primitive.ObjectID) (*domain.Gym, error)
	CreateGym(ctx context.Context, userID primitive.ObjectID, input CreateGymInput) (*domain.Gym, error)
	UpdateGym(ctx context.Context, userID, gymID primitive.ObjectID, input CreateGymInput) error
	DeleteGym(ctx context.Context, userID, gymID primitive.ObjectID) error

	// Photo upload: presigned PUT URL, then confirmation with the key.
	RequestImageUploadURL(ctx context.Context, userID, gymID primitive.ObjectID, contentType string) (*GymImageUploadResponse, error)
	ConfirmImageUpload(ctx context.Context, userID, gymID primitive.ObjectID, objectKey string) error
	GetImageDownloadURL(ctx context.Context, userID, gymID primitive.ObjectID) (string, error)
}

// gymService implements the GymService interface.
type gymService struct {
	gymRepo     repository.GymRepository
	fileStorage storage.FileStorage
}

// NewGymService creates a new instance of gymService.
func NewGymService(gymRepo repository.GymRepository, fileStorage storage.FileStorage) GymService {
	return &gymService{
		gymRepo:     gymRepo,
		fileStorage: fileStorage,
	}
}

// GetMyGyms lists the user's non-deleted gyms.
func (s *gymService) GetMyGyms(ctx context.Context, userID primitive.ObjectID) ([]domain.Gym, error) {
	return s.gymRepo.GetByUserID(ctx, userID)
}

// GetGym fetches one gym and enforces ownership.
func (s *gymService) GetGym(ctx context.Context, userID, gymID primitive.ObjectID) (*domain.Gym, error) {
	gym, err := s.gymRepo.GetByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	if gym.UserID != userID {
		return nil, ErrGymNotFound
	}
	return gym, nil
}

// CreateGym persists a new gym for the user.
func (s *gymService) CreateGym(ctx context.Context, userID primitive.ObjectID, input CreateGymInput) (*domain.Gym, error) {
	if input.Name == "" || input.Location == "" {
		return nil, errors.New("gym name and location are required")
	}
	gym := &domain.Gym{
		UserID:      userID,
		Name:        input.Name,
		Location:    input.Location,
		Description: input.Description,
		Equipment:   input.Equipment,
	}
	id, err := s.gymRepo.Create(ctx, gym)
	if err != nil {
		return nil, err
	}
	gym.ID = id
	return gym, nil
}

// UpdateGym replaces the gym's mutable fields.
func (s *gymService) UpdateGym(ctx context.Context, userID, gymID primitive.ObjectID, input CreateGymInput) error {
	if input.Name == "" || input.Location == "" {
		return errors.New("gym name and location are required")
	}
	gym := &domain.Gym{
		ID:          gymID,
		UserID:      userID,
		Name:        input.Name,
		Location:    input.Location,
		Description: input.Description,
		Equipment:   input.Equipment,
	}
	err := s.gymRepo.Update(ctx, gym)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGymNotFound
	}
	return err
}

// DeleteGym soft deletes the gym; workouts keep their gymId reference.
func (s *gymService) DeleteGym(ctx context.Context, userID, gymID primitive.ObjectID) error {
	err := s.gymRepo.SoftDelete(ctx, gymID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGymNotFound
	}
	return err
}

// RequestImageUploadURL generates a presigned PUT URL for a gym photo.
func (s *gymService) RequestImageUploadURL(ctx context.Context, userID, gymID primitive.ObjectID, contentType string) (*GymImageUploadResponse, error) {
	if contentType == "" || !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, errors.New("invalid or missing image content type")
	}

	// Ownership check before handing out any URL.
	if _, err := s.GetGym(ctx, userID, gymID); err != nil {
		return nil, err
	}

	ext := extensionForContentType(contentType)
	objectKey := path.Join("gyms", gymID.Hex(), fmt.Sprintf("photo-%s%s", uuid.NewString(), ext))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &GymImageUploadResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmImageUpload records the uploaded object key on the gym.
func (s *gymService) ConfirmImageUpload(ctx context.Context, userID, gymID primitive.ObjectID, objectKey string) error {
	if objectKey == "" {
		return errors.New("object key is required")
	}
	// Keys are namespaced per gym; reject confirmations for foreign keys.
	if !strings.HasPrefix(objectKey, path.Join("gyms", gymID.Hex())+"/") {
		return errors.New("object key does not belong to this gym")
	}
	err := s.gymRepo.SetImageURL(ctx, gymID, userID, objectKey)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGymNotFound
	}
	return err
}

// GetImageDownloadURL returns a temporary viewing URL for the gym photo.
func (s *gymService) GetImageDownloadURL(ctx context.Context, userID, gymID primitive.ObjectID) (string, error) {
	gym, err := s.GetGym(ctx, userID, gymID)
	if err != nil {
		return "", err
	}
	if gym.ImageURL == "" {
		return "", ErrGymNotFound
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, gym.ImageURL, storage.DefaultPresignedURLExpiry)
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
