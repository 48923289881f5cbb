package domain

// SetConfig is the reps/measurement pair of one set, as reused by templates.
type SetConfig struct {
	Reps        string `json:"reps"`
	Measurement string `json:"measurement"`
}

// ExerciseTemplate is the most recently used configuration of an exercise
// name. It is derived from workout history and never persisted.
type ExerciseTemplate struct {
	Name         string      `json:"name"`
	YoutubeLink  string      `json:"youtubeLink,omitempty"`
	LastUsedSets []SetConfig `json:"lastUsedSets"`
}
