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

const gymCollectionName = "gyms"

// mongoGymRepository implements repository.GymRepository
type mongoGymRepository struct {
	collection *mongo.Collection
}

// NewMongoGymRepository creates a new Gym repository.
func NewMongoGymRepository(db *mongo.Database) repository.GymRepository {
	return &mongoGymRepository{
		collection: db.Collection(gymCollectionName),
	}
}

// Create inserts a new gym.
func (r *mongoGymRepository) Create(ctx context.Context, gym *domain.Gym) (primitive.ObjectID, error) {
	if gym.UserID == primitive.NilObjectID || gym.Name == "" || gym.Location == "" {
		return primitive.NilObjectID, errors.New("gym requires userId, name and location")
	}
	gym.ID = primitive.NewObjectID()
	gym.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, gym)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted gym ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single gym. Soft-deleted gyms are treated as missing.
func (r *mongoGymRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error) {
	var gym domain.Gym
	filter := bson.M{"_id": id, "deletedAt": bson.M{"$exists": false}}
	err := r.collection.FindOne(ctx, filter).Decode(&gym)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &gym, nil
}

// GetByUserID retrieves all non-deleted gyms owned by a user.
func (r *mongoGymRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Gym, error) {
	gyms := []domain.Gym{}
	filter := bson.M{"userId": userID, "deletedAt": bson.M{"$exists": false}}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &gyms); err != nil {
		return nil, err
	}
	return gyms, nil
}

// Update replaces the gym's mutable fields. The filter includes the
// owner so a user can never update another user's gym.
func (r *mongoGymRepository) Update(ctx context.Context, gym *domain.Gym) error {
	if gym.ID == primitive.NilObjectID || gym.UserID == primitive.NilObjectID {
		return errors.New("gym ID and user ID are required for update")
	}

	filter := bson.M{"_id": gym.ID, "userId": gym.UserID, "deletedAt": bson.M{"$exists": false}}
	updateDoc := bson.M{
		"$set": bson.M{
			"name":        gym.Name,
			"location":    gym.Location,
			"description": gym.Description,
			"equipment":   gym.Equipment,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetImageURL stores the uploaded photo's object key on the gym.
func (r *mongoGymRepository) SetImageURL(ctx context.Context, id, userID primitive.ObjectID, imageURL string) error {
	filter := bson.M{"_id": id, "userId": userID, "deletedAt": bson.M{"$exists": false}}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"imageUrl": imageURL}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SoftDelete marks a gym as deleted without removing the document, so
// workouts that reference it keep a resolvable gymId.
func (r *mongoGymRepository) SoftDelete(ctx context.Context, id, userID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "userId": userID, "deletedAt": bson.M{"$exists": false}}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"deletedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureGymIndexes creates necessary indexes. Call during startup.
func EnsureGymIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
