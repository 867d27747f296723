package service

import (
	"context"
	"errors"

	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrGoalNotFound = errors.New("goal not found")

// GoalService manages a user's training goals.
type GoalService interface {
	GetMyGoals(ctx context.Context, userID primitive.ObjectID) ([]domain.Goal, error)
	CreateGoal(ctx context.Context, userID primitive.ObjectID, name, description string) (*domain.Goal, error)
	UpdateGoal(ctx context.Context, userID, goalID primitive.ObjectID, name, description *string) error
	DeleteGoal(ctx context.Context, userID, goalID primitive.ObjectID) error
}

type goalService struct {
	goalRepo repository.GoalRepository
}

// NewGoalService creates a new instance of goalService.
func NewGoalService(goalRepo repository.GoalRepository) GoalService {
	return &goalService{goalRepo: goalRepo}
}

func (s *goalService) GetMyGoals(ctx context.Context, userID primitive.ObjectID) ([]domain.Goal, error) {
	return s.goalRepo.GetByUserID(ctx, userID)
}

func (s *goalService) CreateGoal(ctx context.Context, userID primitive.ObjectID, name, description string) (*domain.Goal, error) {
	if name == "" {
		return nil, errors.New("goal name is required")
	}
	goal := &domain.Goal{
		UserID:      userID,
		Name:        name,
		Description: description,
	}
	id, err := s.goalRepo.Create(ctx, goal)
	if err != nil {
		return nil, err
	}
	goal.ID = id
	return goal, nil
}

func (s *goalService) UpdateGoal(ctx context.Context, userID, goalID primitive.ObjectID, name, description *string) error {
	if name == nil && description == nil {
		return errors.New("no update data provided")
	}
	err := s.goalRepo.Update(ctx, goalID, userID, name, description)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGoalNotFound
	}
	return err
}

func (s *goalService) DeleteGoal(ctx context.Context, userID, goalID primitive.ObjectID) error {
	err := s.goalRepo.SoftDelete(ctx, goalID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGoalNotFound
	}
	return err
}
