// internal/repository/mongo/workout_repo.go
package mongo

import (
	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/repository"
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutCollectionName = "workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutRepository creates a new Workout repository.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// Save replaces the whole workout document, inserting it when missing.
func (r *mongoWorkoutRepository) Save(ctx context.Context, workout *domain.Workout) error {
	if workout.ID == "" || workout.UserID == primitive.NilObjectID || workout.DateKey == "" {
		return errors.New("workout requires id, userId and date")
	}

	filter := bson.M{"_id": workout.ID, "userId": workout.UserID}
	_, err := r.collection.ReplaceOne(ctx, filter, workout, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Either (userId, dateKey) is taken or the id belongs to another user.
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a single workout by its ID.
func (r *mongoWorkoutRepository) GetByID(ctx context.Context, id string) (*domain.Workout, error) {
	var workout domain.Workout
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// GetByDate retrieves the user's workout for a calendar day.
func (r *mongoWorkoutRepository) GetByDate(ctx context.Context, userID primitive.ObjectID, dateKey string) (*domain.Workout, error) {
	var workout domain.Workout
	filter := bson.M{"userId": userID, "dateKey": dateKey}
	// If the unique index was missing when duplicates got in, prefer the latest write.
	findOptions := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// ListByUser retrieves all workouts of a user, ordered by date.
func (r *mongoWorkoutRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error) {
	var workouts []domain.Workout
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}

// Delete removes a workout, ensuring it belongs to the user.
func (r *mongoWorkoutRepository) Delete(ctx context.Context, id string, userID primitive.ObjectID) error {
	if id == "" || userID == primitive.NilObjectID {
		return errors.New("workout ID and user ID are required for deletion")
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Watch opens a change stream on the collection and pushes the user's full
// workout set after every relevant change. Requires a replica set on
// MongoDB 6.0 or later.
func (r *mongoWorkoutRepository) Watch(ctx context.Context, userID primitive.ObjectID, fn func([]domain.Workout)) error {
	pipeline := watchPipeline(userID)
	streamOptions := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	// Open the stream before the initial fetch so no change falls in between.
	stream, err := r.collection.Watch(ctx, pipeline, streamOptions)
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer stream.Close(context.Background())

	emit := func() error {
		workouts, err := r.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("fetch snapshot: %w", err)
		}
		fn(workouts)
		return nil
	}

	if err := emit(); err != nil {
		return err
	}
	for stream.Next(ctx) {
		log.WithField("user", userID.Hex()).Trace("workout change event")
		if err := emit(); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return stream.Err()
}

// watchPipeline keeps the events that touch userID's workouts. Deletes are
// matched on their pre-image; a delete without one (pre-images disabled or an
// older server) cannot be attributed and is kept.
func watchPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				bson.M{"fullDocument.userId": userID},
				bson.M{"fullDocumentBeforeChange.userId": userID},
				bson.M{
					"operationType":            "delete",
					"fullDocumentBeforeChange": bson.M{"$exists": false},
				},
			},
		}}},
	}
}

// EnableWorkoutPreImages turns on change stream pre-images for the workouts
// collection so Watch can filter deletes by owner. Needs MongoDB 6.0+.
func EnableWorkoutPreImages(ctx context.Context, collection *mongo.Collection) error {
	cmd := bson.D{
		{Key: "collMod", Value: collection.Name()},
		{Key: "changeStreamPreAndPostImages", Value: bson.M{"enabled": true}},
	}
	return collection.Database().RunCommand(ctx, cmd).Err()
}

// EnsureWorkoutIndexes creates necessary indexes. Call during startup.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// At most one workout per user and calendar day
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "dateKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_date_unique"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
