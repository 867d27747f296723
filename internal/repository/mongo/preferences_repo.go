package mongo

import (
	"context"
	"errors"
	"time"

	"gymvision/internal/domain"
	"gymvision/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const preferencesCollectionName = "user_preferences"

// mongoPreferencesRepository implements repository.PreferencesRepository
type mongoPreferencesRepository struct {
	collection *mongo.Collection
}

// NewMongoPreferencesRepository creates a new Preferences repository.
func NewMongoPreferencesRepository(db *mongo.Database) repository.PreferencesRepository {
	return &mongoPreferencesRepository{
		collection: db.Collection(preferencesCollectionName),
	}
}

// GetByUserID retrieves the preferences document for a user.
func (r *mongoPreferencesRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.UserPreferences, error) {
	var prefs domain.UserPreferences
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&prefs)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &prefs, nil
}

// Upsert creates or replaces the user's preferences document and
// returns the stored state.
func (r *mongoPreferencesRepository) Upsert(ctx context.Context, prefs *domain.UserPreferences) (*domain.UserPreferences, error) {
	if prefs.UserID == primitive.NilObjectID {
		return nil, errors.New("preferences require userId")
	}
	prefs.UpdatedAt = time.Now().UTC()

	filter := bson.M{"userId": prefs.UserID}
	updateDoc := bson.M{
		"$set": bson.M{
			"selectedGymId": prefs.SelectedGymID,
			"settings":      prefs.Settings,
			"updatedAt":     prefs.UpdatedAt,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored domain.UserPreferences
	err := r.collection.FindOneAndUpdate(ctx, filter, updateDoc, opts).Decode(&stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// EnsurePreferencesIndexes creates necessary indexes. Call during startup.
func EnsurePreferencesIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
