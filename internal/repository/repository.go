package repository

import (
	"context"

	"gymvision/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate record")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// GymRepository defines the interface for interacting with gym data.
// Reads exclude soft-deleted gyms.
type GymRepository interface {
	Create(ctx context.Context, gym *domain.Gym) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Gym, error)
	Update(ctx context.Context, gym *domain.Gym) error
	SetImageURL(ctx context.Context, id, userID primitive.ObjectID, imageURL string) error
	SoftDelete(ctx context.Context, id, userID primitive.ObjectID) error
}

// WorkoutRepository defines the interface for interacting with workout
// data, including the coaching transcript.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error)
	UpdateStatus(ctx context.Context, id, userID primitive.ObjectID, status domain.WorkoutStatus) error

	// UpdatePlan replaces the workout's plan body and, when name is
	// non-nil, its title. The description is always a full replacement,
	// never a merge. This is the coach tool's write path.
	UpdatePlan(ctx context.Context, id primitive.ObjectID, name *string, description string) error

	// ReplaceTranscript durably stores the full transcript for the
	// workout. The coach session controller calls this exactly once per
	// completed turn with the enlarged history.
	ReplaceTranscript(ctx context.Context, id primitive.ObjectID, transcript []domain.Message) error

	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

// GoalRepository defines the interface for interacting with goal data.
type GoalRepository interface {
	Create(ctx context.Context, goal *domain.Goal) (primitive.ObjectID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Goal, error)
	Update(ctx context.Context, id, userID primitive.ObjectID, name, description *string) error
	SoftDelete(ctx context.Context, id, userID primitive.ObjectID) error
}

// PreferencesRepository defines the interface for per-user preferences.
type PreferencesRepository interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.UserPreferences, error)
	Upsert(ctx context.Context, prefs *domain.UserPreferences) (*domain.UserPreferences, error)
}
