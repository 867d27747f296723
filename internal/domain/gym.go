package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gym represents a training location registered by a user, together with
// the equipment detected (or entered) for it.
type Gym struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Name        string             `bson:"name" json:"name"`                               // e.g. "Home Gym", "Iron Temple Downtown"
	Location    string             `bson:"location" json:"location"`                       // Address or free-form place description
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`   // Object key / URL of the gym photo
	Equipment   []string           `bson:"equipment,omitempty" json:"equipment,omitempty"` // Equipment names, order preserved
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"` // Soft delete marker
}

// IsDeleted reports whether the gym has been soft deleted.
func (g *Gym) IsDeleted() bool {
	return g.DeletedAt != nil
}
