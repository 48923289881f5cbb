package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateKeyLayout is the calendar addressing format used by clients ("2024-06-03").
const DateKeyLayout = "2006-01-02"

// DefaultRoutineName is used when a workout is created implicitly.
const DefaultRoutineName = "New Routine"

// Workout is a named, dated collection of exercises owned by one user.
// The persisted identity is ID; clients address workouts by DateKey.
type Workout struct {
	ID        string             `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Name      string             `bson:"name" json:"name"`
	Date      time.Time          `bson:"date" json:"date"`
	DateKey   string             `bson:"dateKey" json:"dateKey"` // Derived from Date, backs the per-date unique index
	Completed bool               `bson:"completed" json:"completed"`
	Exercises []Exercise         `bson:"exercises" json:"exercises"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ParseDateKey parses a yyyy-MM-dd key into midnight UTC.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, time.UTC)
}

// DateKeyOf formats t as a calendar key.
func DateKeyOf(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// SetDate moves the workout onto the given calendar day, keeping Date and DateKey in sync.
func (w *Workout) SetDate(date time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	w.Date = day
	w.DateKey = DateKeyOf(day)
}

// FindExercise returns the index of the exercise with the given id, or -1.
func (w *Workout) FindExercise(id string) int {
	for i := range w.Exercises {
		if w.Exercises[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy sharing no slices with w.
func (w Workout) Clone() Workout {
	out := w
	if w.Exercises != nil {
		out.Exercises = make([]Exercise, len(w.Exercises))
		for i, ex := range w.Exercises {
			out.Exercises[i] = ex.Clone()
		}
	}
	return out
}

// MoveTo returns the workout relocated to date. Identities and back-references
// are preserved; only the date and the update timestamp change.
func (w Workout) MoveTo(date, now time.Time) Workout {
	moved := w.Clone()
	moved.SetDate(date)
	moved.UpdatedAt = now
	return moved
}

// CopyTo returns an independent deep copy of the workout on date.
//
// Every Workout, Exercise and ExerciseSet receives a fresh identity. All new
// identities are allocated first; back-references are then filled in from
// those allocations so a child can never point at an id its parent does not have.
// Completion flags are reset and all timestamps are set to now.
func (w Workout) CopyTo(date, now time.Time, newID IDGenerator) Workout {
	workoutID := newID()
	exerciseIDs := make([]string, len(w.Exercises))
	setIDs := make([][]string, len(w.Exercises))
	for i, ex := range w.Exercises {
		exerciseIDs[i] = newID()
		setIDs[i] = make([]string, len(ex.Sets))
		for j := range ex.Sets {
			setIDs[i][j] = newID()
		}
	}

	cp := Workout{
		ID:        workoutID,
		UserID:    w.UserID,
		Name:      w.Name,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
		Exercises: make([]Exercise, len(w.Exercises)),
	}
	cp.SetDate(date)

	for i, ex := range w.Exercises {
		var sets SetList
		if ex.Sets != nil {
			sets = make(SetList, len(ex.Sets))
			for j, set := range ex.Sets {
				sets[j] = ExerciseSet{
					ID:          setIDs[i][j],
					ExerciseID:  exerciseIDs[i],
					Reps:        set.Reps,
					Measurement: set.Measurement,
					Completed:   false,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
			}
		}
		cp.Exercises[i] = Exercise{
			ID:          exerciseIDs[i],
			WorkoutID:   cp.ID,
			Name:        ex.Name,
			YoutubeLink: ex.YoutubeLink,
			Sets:        sets,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return cp
}

// IndexByDate builds the calendar view of a user's workouts. When the store
// holds more than one workout for a date, the most recently updated one wins
// and the others are reported as duplicates.
func IndexByDate(workouts []Workout) (byDate map[string]Workout, duplicates []Workout) {
	byDate = make(map[string]Workout, len(workouts))
	for _, w := range workouts {
		key := w.DateKey
		if key == "" {
			key = DateKeyOf(w.Date.UTC())
		}
		if existing, ok := byDate[key]; ok {
			if !w.UpdatedAt.After(existing.UpdatedAt) {
				duplicates = append(duplicates, w)
				continue
			}
			duplicates = append(duplicates, existing)
		}
		byDate[key] = w
	}
	return byDate, duplicates
}
