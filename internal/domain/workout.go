package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutStatus tracks where a workout sits in its lifecycle.
type WorkoutStatus string

const (
	WorkoutStatusDraft     WorkoutStatus = "draft"     // AI-generated, not yet reviewed
	WorkoutStatusPlanned   WorkoutStatus = "planned"   // Scheduled by the user
	WorkoutStatusCompleted WorkoutStatus = "completed" // Logged as done
)

// Workout represents a single workout session: a markdown plan body plus
// the coaching conversation attached to it.
//
// Transcript is append-only from the coach's point of view: the coach
// session controller only ever extends it, never reorders or rewrites
// existing entries.
type Workout struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"userId"`
	GymID       *primitive.ObjectID `bson:"gymId,omitempty" json:"gymId,omitempty"` // Optional link to a registered gym
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"` // Markdown plan body
	Status      WorkoutStatus       `bson:"status,omitempty" json:"status,omitempty"`
	Date        time.Time           `bson:"date" json:"date"`
	Transcript  []Message           `bson:"transcript,omitempty" json:"transcript,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}
