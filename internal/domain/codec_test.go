package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestReps_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Reps
	}{
		{`"8-10"`, "8-10"},
		{`"AMRAP"`, "AMRAP"},
		{`8`, "8"},
		{`8.0`, "8"},
		{`12.5`, "12.5"},
		{`null`, ""},
		{`true`, ""},
	}
	for _, tt := range tests {
		var r Reps
		require.NoError(t, json.Unmarshal([]byte(tt.in), &r), tt.in)
		assert.Equal(t, tt.want, r, tt.in)
	}
}

func TestSetList_UnmarshalJSON_Lenient(t *testing.T) {
	var ex Exercise
	err := json.Unmarshal([]byte(`{"name":"Squat","sets":null}`), &ex)
	require.NoError(t, err)
	assert.False(t, ex.Sets.Valid())

	err = json.Unmarshal([]byte(`{"name":"Squat","sets":{"reps":5}}`), &ex)
	require.NoError(t, err)
	assert.False(t, ex.Sets.Valid())

	err = json.Unmarshal([]byte(`{"name":"Squat","sets":[{"reps":5,"measurement":"120kg"},"junk",{"reps":"3","measurement":"130kg"}]}`), &ex)
	require.NoError(t, err)
	require.True(t, ex.Sets.Valid())
	require.Len(t, ex.Sets, 2)
	assert.Equal(t, Reps("5"), ex.Sets[0].Reps)
	assert.Equal(t, Reps("3"), ex.Sets[1].Reps)
}

func TestExercise_UnmarshalBSON_NormalizesReps(t *testing.T) {
	doc := bson.M{
		"id":   "e1",
		"name": "Bench Press",
		"sets": bson.A{
			bson.M{"id": "s1", "reps": int32(8), "measurement": "80kg"},
			bson.M{"id": "s2", "reps": int64(10), "measurement": "75kg"},
			bson.M{"id": "s3", "reps": 12.0, "measurement": "70kg"},
			bson.M{"id": "s4", "reps": "AMRAP", "measurement": "Bodyweight"},
			"not a set",
		},
	}
	data, err := bson.Marshal(doc)
	require.NoError(t, err)

	var ex Exercise
	require.NoError(t, bson.Unmarshal(data, &ex))
	require.Len(t, ex.Sets, 4)
	assert.Equal(t, Reps("8"), ex.Sets[0].Reps)
	assert.Equal(t, Reps("10"), ex.Sets[1].Reps)
	assert.Equal(t, Reps("12"), ex.Sets[2].Reps)
	assert.Equal(t, Reps("AMRAP"), ex.Sets[3].Reps)
}

func TestExercise_UnmarshalBSON_NonSequenceSets(t *testing.T) {
	for name, sets := range map[string]interface{}{
		"null":     nil,
		"document": bson.M{"reps": 5},
		"string":   "5x5",
	} {
		data, err := bson.Marshal(bson.M{"id": "e1", "name": "Squat", "sets": sets})
		require.NoError(t, err, name)

		var ex Exercise
		require.NoError(t, bson.Unmarshal(data, &ex), name)
		assert.Equal(t, "Squat", ex.Name, name)
		assert.False(t, ex.Sets.Valid(), name)
	}
}

func TestWorkout_BSONRoundTripKeepsIDs(t *testing.T) {
	w := Workout{
		ID:      "w1",
		Name:    "Leg Day",
		DateKey: "2024-06-07",
		Exercises: []Exercise{{
			ID: "e1", WorkoutID: "w1", Name: "Squats",
			Sets: SetList{{ID: "s1", ExerciseID: "e1", Reps: "8", Measurement: "100kg"}},
		}},
	}
	data, err := bson.Marshal(w)
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, "w1", raw["_id"])

	var back Workout
	require.NoError(t, bson.Unmarshal(data, &back))
	assert.Equal(t, w.Exercises[0].Sets[0], back.Exercises[0].Sets[0])
}
