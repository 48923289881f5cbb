package service

import (
	"context"
	"fmt"
	"time"

	"alcyxob/fitflow/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type MigrationService interface {
	// Run seeds owner's current week with the sample routines and returns how
	// many workouts were written. Running it twice overwrites the same dates.
	Run(ctx context.Context, owner primitive.ObjectID) (int, error)
}

type migrationService struct {
	workouts WorkoutService
	now      func() time.Time
	newID    domain.IDGenerator
}

func NewMigrationService(workouts WorkoutService) MigrationService {
	return &migrationService{
		workouts: workouts,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    domain.NewID,
	}
}

func (s *migrationService) Run(ctx context.Context, owner primitive.ObjectID) (int, error) {
	samples := SampleWorkouts(s.now(), s.newID)

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range samples {
		g.Go(func() error {
			if _, err := s.workouts.ImportWorkout(gctx, owner, w); err != nil {
				return fmt.Errorf("import %s (%s): %w", w.Name, w.DateKey, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"owner":    owner.Hex(),
		"workouts": len(samples),
	}).Info("sample workouts migrated")
	return len(samples), nil
}

// StartOfWeek returns the Monday of t's week at midnight UTC.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

type sampleSet struct {
	reps        string
	measurement string
	completed   bool
}

type sampleExercise struct {
	name string
	link string
	sets []sampleSet
}

type sampleRoutine struct {
	name      string
	dayOffset int
	completed bool
	exercises []sampleExercise
}

var sampleRoutines = []sampleRoutine{
	{
		name:      "Push Day",
		dayOffset: 0,
		completed: true,
		exercises: []sampleExercise{
			{"Bench Press", "https://www.youtube.com/watch?v=SCVCLChgT5A", []sampleSet{
				{"8", "80kg", true}, {"8", "80kg", true}, {"10", "75kg", true}, {"10", "70kg", false},
			}},
			{"Overhead Press", "https://www.youtube.com", []sampleSet{
				{"10", "40kg", true}, {"12", "40kg", false}, {"12", "35kg", false},
			}},
			{"Tricep Pushdowns", "https://www.youtube.com", []sampleSet{
				{"15", "25kg", false}, {"15", "25kg", false}, {"15", "20kg", false},
			}},
		},
	},
	{
		name:      "Pull Day",
		dayOffset: 2,
		exercises: []sampleExercise{
			{"Pull Ups", "https://www.youtube.com", []sampleSet{
				{"0", "AMRAP Bodyweight", false}, {"0", "AMRAP Bodyweight", false},
				{"0", "AMRAP Bodyweight", false}, {"0", "AMRAP Bodyweight", false},
			}},
			{"Bent Over Rows", "https://www.youtube.com", []sampleSet{
				{"10", "60kg", false}, {"10", "60kg", false}, {"10", "60kg", false},
			}},
			{"Bicep Curls", "https://www.youtube.com", []sampleSet{
				{"12", "15kg", false}, {"15", "15kg", false}, {"15", "12.5kg", false},
			}},
		},
	},
	{
		name:      "Leg Day",
		dayOffset: 4,
		exercises: []sampleExercise{
			{"Squats", "https://www.youtube.com", []sampleSet{
				{"8", "100kg", false}, {"8", "100kg", false}, {"10", "90kg", false}, {"10", "90kg", false},
			}},
			{"Romanian Deadlifts", "https://www.youtube.com", []sampleSet{
				{"12", "80kg", false}, {"12", "80kg", false}, {"12", "80kg", false},
			}},
			{"Leg Press", "https://www.youtube.com", []sampleSet{
				{"12", "150kg", false}, {"15", "140kg", false}, {"15", "130kg", false},
			}},
		},
	},
}

// SampleWorkouts builds the fixed Push/Pull/Leg routines on Monday, Wednesday
// and Friday of the week containing now.
func SampleWorkouts(now time.Time, newID domain.IDGenerator) []domain.Workout {
	monday := StartOfWeek(now)

	out := make([]domain.Workout, 0, len(sampleRoutines))
	for _, r := range sampleRoutines {
		w := domain.Workout{
			ID:        newID(),
			Name:      r.name,
			Completed: r.completed,
			Exercises: make([]domain.Exercise, 0, len(r.exercises)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		w.SetDate(monday.AddDate(0, 0, r.dayOffset))

		for _, e := range r.exercises {
			ex := domain.Exercise{
				ID:          newID(),
				WorkoutID:   w.ID,
				Name:        e.name,
				YoutubeLink: e.link,
				Sets:        make(domain.SetList, 0, len(e.sets)),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			for _, set := range e.sets {
				ex.Sets = append(ex.Sets, domain.ExerciseSet{
					ID:          newID(),
					ExerciseID:  ex.ID,
					Reps:        domain.Reps(set.reps),
					Measurement: set.measurement,
					Completed:   set.completed,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
			}
			w.Exercises = append(w.Exercises, ex)
		}
		out = append(out, w)
	}
	return out
}
