package mongo

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI and
// verifies it with a ping against the primary.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. Failures are logged,
// not fatal: the service works without them, minus the per-date uniqueness guard.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	if err := EnsureUserIndexes(ctx, db.Collection(userCollectionName)); err != nil {
		log.Warnf("failed to create indexes for collection %s: %s", userCollectionName, err)
	}
	if err := EnsureWorkoutIndexes(ctx, db.Collection(workoutCollectionName)); err != nil {
		log.Warnf("failed to create indexes for collection %s: %s", workoutCollectionName, err)
	}
	// after the indexes, which create the collection collMod needs
	if err := EnableWorkoutPreImages(ctx, db.Collection(workoutCollectionName)); err != nil {
		log.Warnf("change stream pre-images unavailable for %s, deletes wake every watcher: %s", workoutCollectionName, err)
	}
	log.Debugln("index creation process completed")
}
