package service

import (
	"context"
	"errors"

	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UpdatePreferencesInput carries a partial preferences update. Nil
// fields are left unchanged; Settings entries are merged over the
// stored map rather than replacing it.
type UpdatePreferencesInput struct {
	SelectedGymID *primitive.ObjectID
	Settings      map[string]string
}

// PreferenceService manages per-user preferences with upsert semantics.
type PreferenceService interface {
	GetPreferences(ctx context.Context, userID primitive.ObjectID) (*domain.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID primitive.ObjectID, input UpdatePreferencesInput) (*domain.UserPreferences, error)
}

type preferenceService struct {
	prefsRepo repository.PreferencesRepository
}

// NewPreferenceService creates a new instance of preferenceService.
func NewPreferenceService(prefsRepo repository.PreferencesRepository) PreferenceService {
	return &preferenceService{prefsRepo: prefsRepo}
}

// GetPreferences returns the stored preferences, or an empty document
// when the user has never saved any.
func (s *preferenceService) GetPreferences(ctx context.Context, userID primitive.ObjectID) (*domain.UserPreferences, error) {
	prefs, err := s.prefsRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.UserPreferences{UserID: userID, Settings: map[string]string{}}, nil
		}
		return nil, err
	}
	return prefs, nil
}

// UpdatePreferences applies a partial update on top of the stored
// document and upserts the result.
func (s *preferenceService) UpdatePreferences(ctx context.Context, userID primitive.ObjectID, input UpdatePreferencesInput) (*domain.UserPreferences, error) {
	if input.SelectedGymID == nil && input.Settings == nil {
		return nil, errors.New("no update data provided")
	}

	current, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.SelectedGymID != nil {
		current.SelectedGymID = input.SelectedGymID
	}
	if input.Settings != nil {
		if current.Settings == nil {
			current.Settings = map[string]string{}
		}
		for k, v := range input.Settings {
			current.Settings[k] = v
		}
	}

	return s.prefsRepo.Upsert(ctx, current)
}
