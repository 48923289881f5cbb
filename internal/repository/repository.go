package repository

import (
	"alcyxob/fitflow/internal/domain" // Import our defined domain models
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
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

// WorkoutRepository stores whole workout documents (exercises and sets embedded).
// Every write replaces the full document, so concurrent writers resolve as last write wins.
type WorkoutRepository interface {
	// Save upserts the workout by ID. Returns ErrDuplicate when the user
	// already has a different workout on the same date.
	Save(ctx context.Context, workout *domain.Workout) error
	GetByID(ctx context.Context, id string) (*domain.Workout, error)
	GetByDate(ctx context.Context, userID primitive.ObjectID, dateKey string) (*domain.Workout, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error)
	Delete(ctx context.Context, id string, userID primitive.ObjectID) error
	WorkoutWatcher
}

// WorkoutWatcher pushes the user's full workout set to fn once on start and
// again after every change, until ctx is done or the feed fails.
type WorkoutWatcher interface {
	Watch(ctx context.Context, userID primitive.ObjectID, fn func([]domain.Workout)) error
}
