// Package templates derives reusable exercise configurations from workout history.
package templates

import (
	"sort"
	"strings"
	"time"

	"alcyxob/fitflow/internal/domain"

	log "github.com/sirupsen/logrus"
)

type candidate struct {
	exercise domain.Exercise
	sets     []domain.SetConfig
	lastUsed time.Time
}

// Derive returns, for every distinct exercise name found in workouts, the set
// configuration of its most recently dated occurrence, sorted by name.
//
// workouts is keyed by date key. Malformed exercises (no name, sets that are
// not a sequence, no set with a measurement) are skipped. Derive never fails:
// on any unexpected error it returns an empty slice.
func Derive(workouts map[string]domain.Workout) (result []domain.ExerciseTemplate) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("exercise template derivation failed")
			result = []domain.ExerciseTemplate{}
		}
	}()

	// Walk dates in order so equal dates resolve to the first occurrence.
	keys := make([]string, 0, len(workouts))
	for k := range workouts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	latest := make(map[string]candidate)
	for _, key := range keys {
		w := workouts[key]
		used := workoutDate(key, w)
		for _, ex := range w.Exercises {
			name := strings.TrimSpace(ex.Name)
			if name == "" || !ex.Sets.Valid() {
				continue
			}
			sets := usableSets(ex.Sets)
			if len(sets) == 0 {
				continue
			}
			existing, ok := latest[name]
			if ok && !used.After(existing.lastUsed) {
				continue
			}
			latest[name] = candidate{exercise: ex, sets: sets, lastUsed: used}
		}
	}

	result = make([]domain.ExerciseTemplate, 0, len(latest))
	for name, c := range latest {
		result = append(result, domain.ExerciseTemplate{
			Name:         name,
			YoutubeLink:  c.exercise.YoutubeLink,
			LastUsedSets: c.sets,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

func usableSets(sets domain.SetList) []domain.SetConfig {
	out := make([]domain.SetConfig, 0, len(sets))
	for _, s := range sets {
		if strings.TrimSpace(s.Measurement) == "" {
			continue
		}
		out = append(out, domain.SetConfig{
			Reps:        s.Reps.String(),
			Measurement: s.Measurement,
		})
	}
	return out
}

// workoutDate prefers the stored date and falls back to the calendar key.
func workoutDate(key string, w domain.Workout) time.Time {
	if !w.Date.IsZero() {
		return w.Date
	}
	if d, err := domain.ParseDateKey(key); err == nil {
		return d
	}
	if d, err := domain.ParseDateKey(w.DateKey); err == nil {
		return d
	}
	return time.Time{}
}
