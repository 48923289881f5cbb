// internal/domain/exercise.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces opaque identities for workouts, exercises and sets.
type IDGenerator func() string

// NewID is the default generator (random UUIDs).
var NewID IDGenerator = uuid.NewString

// Exercise is a named movement within a Workout.
type Exercise struct {
	ID          string    `bson:"id" json:"id"`
	WorkoutID   string    `bson:"workoutId" json:"workoutId"` // Back-reference to the owning workout
	Name        string    `bson:"name" json:"name"`
	YoutubeLink string    `bson:"youtubeLink,omitempty" json:"youtubeLink,omitempty"`
	Sets        SetList   `bson:"sets" json:"sets"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseSet is one unit of repetition/measurement work.
type ExerciseSet struct {
	ID          string    `bson:"id" json:"id"`
	ExerciseID  string    `bson:"exerciseId" json:"exerciseId"` // Back-reference to the owning exercise
	Reps        Reps      `bson:"reps" json:"reps"`
	Measurement string    `bson:"measurement" json:"measurement"` // Weight, duration or a qualitative value
	Completed   bool      `bson:"completed" json:"completed"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy of the exercise.
func (e Exercise) Clone() Exercise {
	out := e
	if e.Sets != nil {
		out.Sets = make(SetList, len(e.Sets))
		copy(out.Sets, e.Sets)
	}
	return out
}

// FindSet returns the index of the set with the given id, or -1.
func (e *Exercise) FindSet(id string) int {
	for i := range e.Sets {
		if e.Sets[i].ID == id {
			return i
		}
	}
	return -1
}
