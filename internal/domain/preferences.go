package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserPreferences holds per-user UI/session settings: the currently
// selected gym plus a free-form settings map (experience level, units,
// onboarding flags). One document per user, upserted on change.
type UserPreferences struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID  `bson:"userId" json:"userId"`
	SelectedGymID *primitive.ObjectID `bson:"selectedGymId,omitempty" json:"selectedGymId,omitempty"`
	Settings      map[string]string   `bson:"settings,omitempty" json:"settings,omitempty"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}
