package templates_test

import (
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/templates"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workoutOn(t *testing.T, key string, exercises ...domain.Exercise) domain.Workout {
	t.Helper()
	d, err := domain.ParseDateKey(key)
	require.NoError(t, err)
	w := domain.Workout{ID: key, Exercises: exercises}
	w.SetDate(d)
	return w
}

func exercise(name string, sets ...domain.ExerciseSet) domain.Exercise {
	return domain.Exercise{Name: name, Sets: domain.SetList(sets)}
}

func set(reps, measurement string) domain.ExerciseSet {
	return domain.ExerciseSet{Reps: domain.Reps(reps), Measurement: measurement}
}

func TestDerive_LaterDateWins(t *testing.T) {
	workouts := map[string]domain.Workout{
		"2024-06-03": workoutOn(t, "2024-06-03", exercise("Squat", set("8", "100kg"))),
		"2024-06-10": workoutOn(t, "2024-06-10", exercise("Squat", set("5", "120kg"))),
	}

	got := templates.Derive(workouts)
	require.Len(t, got, 1)
	assert.Equal(t, "Squat", got[0].Name)
	assert.Equal(t, []domain.SetConfig{{Reps: "5", Measurement: "120kg"}}, got[0].LastUsedSets)
}

func TestDerive_UsesDateNotMapKeyOrder(t *testing.T) {
	// map key disagrees with the stored date; the stored date is authoritative
	early := workoutOn(t, "2024-06-20", exercise("Row", set("10", "60kg")))
	late := workoutOn(t, "2024-06-01", exercise("Row", set("8", "70kg")))
	d, _ := domain.ParseDateKey("2024-07-01")
	late.SetDate(d)

	got := templates.Derive(map[string]domain.Workout{"a": early, "b": late})
	require.Len(t, got, 1)
	assert.Equal(t, "70kg", got[0].LastUsedSets[0].Measurement)
}

func TestDerive_SortedAndUnique(t *testing.T) {
	workouts := map[string]domain.Workout{
		"2024-06-03": workoutOn(t, "2024-06-03",
			exercise("Squat", set("8", "100kg")),
			exercise("Bench Press", set("8", "80kg")),
		),
		"2024-06-05": workoutOn(t, "2024-06-05",
			exercise("Deadlift", set("5", "140kg")),
			exercise("Bench Press", set("6", "85kg")),
		),
	}

	got := templates.Derive(workouts)
	names := make([]string, len(got))
	for i, tpl := range got {
		names[i] = tpl.Name
	}
	assert.Equal(t, []string{"Bench Press", "Deadlift", "Squat"}, names)
	assert.Equal(t, "85kg", got[0].LastUsedSets[0].Measurement)
}

func TestDerive_SkipsMalformed(t *testing.T) {
	var nullSets domain.Exercise
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Lunge","sets":null}`), &nullSets))
	var objectSets domain.Exercise
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Dip","sets":{"reps":1}}`), &objectSets))

	workouts := map[string]domain.Workout{
		"2024-06-03": workoutOn(t, "2024-06-03",
			exercise("", set("8", "100kg")),
			nullSets,
			objectSets,
			exercise("Plank", set("1", "")),
			exercise("Curl", set("12", "15kg"), set("12", "")),
		),
	}

	var got []domain.ExerciseTemplate
	require.NotPanics(t, func() { got = templates.Derive(workouts) })
	require.Len(t, got, 1)
	assert.Equal(t, "Curl", got[0].Name)
	assert.Equal(t, []domain.SetConfig{{Reps: "12", Measurement: "15kg"}}, got[0].LastUsedSets)
}

func TestDerive_MalformedLaterDoesNotShadowValid(t *testing.T) {
	workouts := map[string]domain.Workout{
		"2024-06-03": workoutOn(t, "2024-06-03", exercise("Squat", set("8", "100kg"))),
		"2024-06-10": workoutOn(t, "2024-06-10", exercise("Squat", set("5", ""))),
	}
	got := templates.Derive(workouts)
	require.Len(t, got, 1)
	assert.Equal(t, "100kg", got[0].LastUsedSets[0].Measurement)
}

func TestDerive_NamesComparedTrimmed(t *testing.T) {
	workouts := map[string]domain.Workout{
		"2024-06-03": workoutOn(t, "2024-06-03", exercise("Squat", set("8", "100kg"))),
		"2024-06-10": workoutOn(t, "2024-06-10", exercise(" Squat ", set("5", "110kg"))),
	}
	got := templates.Derive(workouts)
	require.Len(t, got, 1)
	assert.Equal(t, "Squat", got[0].Name)
	assert.Equal(t, "110kg", got[0].LastUsedSets[0].Measurement)
}

func TestDerive_EmptyInput(t *testing.T) {
	assert.Empty(t, templates.Derive(nil))
	assert.Empty(t, templates.Derive(map[string]domain.Workout{}))
}

func TestDerive_OutputIndependentOfInput(t *testing.T) {
	w := workoutOn(t, "2024-06-03", domain.Exercise{
		Name:        "Squat",
		YoutubeLink: "https://www.youtube.com",
		Sets:        domain.SetList{set("8", "100kg")},
	})
	workouts := map[string]domain.Workout{"2024-06-03": w}

	got := templates.Derive(workouts)
	require.Len(t, got, 1)
	got[0].LastUsedSets[0].Measurement = "changed"
	assert.Equal(t, "100kg", workouts["2024-06-03"].Exercises[0].Sets[0].Measurement)
	assert.Equal(t, "https://www.youtube.com", got[0].YoutubeLink)
}

func TestDerive_RandomHistory_OneTemplatePerName(t *testing.T) {
	gofakeit.Seed(42)
	names := []string{"Squat", "Bench Press", "Deadlift", "Row", "Curl"}
	workouts := make(map[string]domain.Workout)
	for day := 1; day <= 28; day++ {
		key := fmt.Sprintf("2024-02-%02d", day)
		var exs []domain.Exercise
		for i := 0; i < gofakeit.Number(1, 4); i++ {
			exs = append(exs, exercise(
				names[gofakeit.Number(0, len(names)-1)],
				set(gofakeit.DigitN(1), gofakeit.DigitN(2)+"kg"),
			))
		}
		workouts[key] = workoutOn(t, key, exs...)
	}

	got := templates.Derive(workouts)
	seen := make(map[string]bool)
	for _, tpl := range got {
		assert.False(t, seen[tpl.Name], "duplicate template %s", tpl.Name)
		seen[tpl.Name] = true
	}
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Name < got[j].Name }))
}
