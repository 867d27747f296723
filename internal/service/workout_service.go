package service

import (
	"context"
	"errors"
	"time"

	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrInvalidStatus   = errors.New("invalid workout status")
)

// CreateWorkoutInput carries the fields accepted for a new workout.
type CreateWorkoutInput struct {
	GymID       *primitive.ObjectID
	Name        string
	Description string
	Status      domain.WorkoutStatus
	Date        time.Time
}

// WorkoutService manages a user's workouts.
type WorkoutService interface {
	GetMyWorkouts(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error)
	GetWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) (*domain.Workout, error)
	CreateWorkout(ctx context.Context, userID primitive.ObjectID, input CreateWorkoutInput) (*domain.Workout, error)
	UpdateStatus(ctx context.Context, userID, workoutID primitive.ObjectID, status domain.WorkoutStatus) error
	DeleteWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) error
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	workoutRepo repository.WorkoutRepository
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(workoutRepo repository.WorkoutRepository) WorkoutService {
	return &workoutService{workoutRepo: workoutRepo}
}

// GetMyWorkouts lists the user's workouts, newest first.
func (s *workoutService) GetMyWorkouts(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error) {
	return s.workoutRepo.GetByUserID(ctx, userID)
}

// GetWorkout fetches one workout and enforces ownership.
func (s *workoutService) GetWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	if workout.UserID != userID {
		return nil, ErrWorkoutNotFound // Do not reveal foreign workouts.
	}
	return workout, nil
}

// CreateWorkout persists a new workout for the user.
func (s *workoutService) CreateWorkout(ctx context.Context, userID primitive.ObjectID, input CreateWorkoutInput) (*domain.Workout, error) {
	if input.Name == "" {
		return nil, errors.New("workout name is required")
	}
	status := input.Status
	if status == "" {
		status = domain.WorkoutStatusPlanned
	}
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	workout := &domain.Workout{
		UserID:      userID,
		GymID:       input.GymID,
		Name:        input.Name,
		Description: input.Description,
		Status:      status,
		Date:        input.Date,
	}
	id, err := s.workoutRepo.Create(ctx, workout)
	if err != nil {
		return nil, err
	}
	workout.ID = id
	return workout, nil
}

// UpdateStatus patches only the status field.
func (s *workoutService) UpdateStatus(ctx context.Context, userID, workoutID primitive.ObjectID, status domain.WorkoutStatus) error {
	if !validStatus(status) {
		return ErrInvalidStatus
	}
	err := s.workoutRepo.UpdateStatus(ctx, workoutID, userID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkoutNotFound
	}
	return err
}

// DeleteWorkout removes the workout if the user owns it.
func (s *workoutService) DeleteWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) error {
	err := s.workoutRepo.Delete(ctx, workoutID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkoutNotFound
	}
	return err
}

func validStatus(status domain.WorkoutStatus) bool {
	switch status {
	case domain.WorkoutStatusDraft, domain.WorkoutStatusPlanned, domain.WorkoutStatusCompleted:
		return true
	}
	return false
}
