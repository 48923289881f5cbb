package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/metrics"
	"alcyxob/fitflow/internal/repository"
	"alcyxob/fitflow/internal/templates"

	"github.com/coocood/freecache"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrSetNotFound      = errors.New("set not found")
	ErrDateOccupied     = errors.New("a workout already exists on that date")
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidDate      = errors.New("invalid date, expected yyyy-MM-dd")
)

const (
	defaultTemplateCacheSize = 4 * 1024 * 1024
	defaultTemplateTTL       = 10 * time.Minute
)

// SetInput is one row of the exercise form. ID is set when editing an existing set.
type SetInput struct {
	ID          string      `json:"id,omitempty"`
	Reps        domain.Reps `json:"reps" validate:"required"`
	Measurement string      `json:"measurement" validate:"required"`
}

// ExerciseInput carries the fields of an add or edit exercise form.
type ExerciseInput struct {
	Name        string     `json:"name" validate:"required,min=2"`
	YoutubeLink string     `json:"youtubeLink" validate:"omitempty,url"`
	Sets        []SetInput `json:"sets" validate:"required,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (in *ExerciseInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.YoutubeLink = strings.TrimSpace(in.YoutubeLink)
	for i := range in.Sets {
		in.Sets[i].Reps = domain.Reps(strings.TrimSpace(string(in.Sets[i].Reps)))
		in.Sets[i].Measurement = strings.TrimSpace(in.Sets[i].Measurement)
	}
}

// Validate reports the first problem with the form, wrapped in ErrValidationFailed.
func (in ExerciseInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, describeFieldError(fieldErrs[0]))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Name":
		return "exercise name must be at least 2 characters"
	case "YoutubeLink":
		return "youtube link must be a valid URL"
	case "Sets":
		return "at least one set is required"
	case "Reps":
		return fmt.Sprintf("%s: reps are required", fe.Namespace())
	case "Measurement":
		return fmt.Sprintf("%s: measurement is required", fe.Namespace())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag())
	}
}

// WorkoutService carries out the user's calendar intents. Every mutation
// reads the latest workout document, applies the change and writes the whole
// document back, so concurrent edits resolve as last write wins.
type WorkoutService interface {
	ListWorkouts(ctx context.Context, owner primitive.ObjectID) (map[string]domain.Workout, error)
	GetWorkout(ctx context.Context, owner primitive.ObjectID, dateKey string) (*domain.Workout, error)
	CreateRoutine(ctx context.Context, owner primitive.ObjectID, dateKey, name string) (*domain.Workout, error)
	RenameWorkout(ctx context.Context, owner primitive.ObjectID, dateKey, name string) (*domain.Workout, error)
	AddExercise(ctx context.Context, owner primitive.ObjectID, dateKey string, input ExerciseInput) (*domain.Workout, error)
	EditExercise(ctx context.Context, owner primitive.ObjectID, dateKey, exerciseID string, input ExerciseInput) (*domain.Workout, error)
	DeleteExercise(ctx context.Context, owner primitive.ObjectID, dateKey, exerciseID string) (*domain.Workout, error)
	ToggleSet(ctx context.Context, owner primitive.ObjectID, dateKey, exerciseID, setID string) (*domain.Workout, error)
	ToggleWorkout(ctx context.Context, owner primitive.ObjectID, dateKey string) (*domain.Workout, error)
	MoveWorkout(ctx context.Context, owner primitive.ObjectID, fromKey, toKey string) (*domain.Workout, error)
	CopyWorkout(ctx context.Context, owner primitive.ObjectID, fromKey, toKey string) (*domain.Workout, error)
	DeleteWorkout(ctx context.Context, owner primitive.ObjectID, dateKey string) error
	Templates(ctx context.Context, owner primitive.ObjectID) ([]domain.ExerciseTemplate, error)
	// ImportWorkout stores a complete workout for owner on its date, taking
	// over the identity of any workout already there.
	ImportWorkout(ctx context.Context, owner primitive.ObjectID, workout domain.Workout) (*domain.Workout, error)
}

type workoutService struct {
	workoutRepo repository.WorkoutRepository
	metrics     *metrics.Manager
	now         func() time.Time
	newID       domain.IDGenerator
	cache       *freecache.Cache
	cacheTTL    time.Duration

	// cacheMu orders cache fills against invalidations; cacheGen counts
	// invalidations per owner so a fill started before a mutation is dropped.
	cacheMu  sync.Mutex
	cacheGen map[primitive.ObjectID]uint64
}

type WorkoutServiceOption func(*workoutService)

func WithClock(now func() time.Time) WorkoutServiceOption {
	return func(s *workoutService) { s.now = now }
}

func WithIDGenerator(gen domain.IDGenerator) WorkoutServiceOption {
	return func(s *workoutService) { s.newID = gen }
}

// WithTemplateCache sizes the per-owner template cache (bytes) and its entry TTL.
func WithTemplateCache(size int, ttl time.Duration) WorkoutServiceOption {
	return func(s *workoutService) {
		if size > 0 {
			s.cache = freecache.NewCache(size)
		}
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func NewWorkoutService(workoutRepo repository.WorkoutRepository, metricsManager *metrics.Manager, opts ...WorkoutServiceOption) WorkoutService {
	s := &workoutService{
		workoutRepo: workoutRepo,
		metrics:     metricsManager,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       domain.NewID,
		cacheTTL:    defaultTemplateTTL,
		cacheGen:    make(map[primitive.ObjectID]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = freecache.NewCache(defaultTemplateCacheSize)
	}
	return s
}

// ParseDate validates a yyyy-MM-dd key and returns it in canonical form.
func ParseDate(dateKey string) (time.Time, string, error) {
	t, err := domain.ParseDateKey(strings.TrimSpace(dateKey))
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidDate, dateKey)
	}
	return t, domain.DateKeyOf(t), nil
}

func (s *workoutService) ListWorkouts(ctx context.Context, owner primitive.ObjectID) (map[string]domain.Workout, error) {
	list, err := s.workoutRepo.ListByUser(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	byDate, duplicates := domain.IndexByDate(list)
	for _, d := range duplicates {
		log.WithFields(log.Fields{
			"owner":   owner.Hex(),
			"date":    d.DateKey,
			"workout": d.ID,
		}).Warn("ignoring older workout on an occupied date")
	}
	return byDate, nil
}

func (s *workoutService) GetWorkout(ctx context.Context, owner primitive.ObjectID, dateKey string) (*domain.Workout, error) {
	_, key, err := ParseDate(dateKey)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, owner, key)
}

func (s *workoutService) CreateRoutine(ctx context.Context, owner primitive.ObjectID, dateKey, name string) (*domain.Workout, error) {
	date, key, err := ParseDate(dateKey)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, owner, key); err == nil {
		return nil, ErrDateOccupied
	} else if !errors.Is(err, ErrWorkoutNotFound) {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultRoutineName
	}
	w := s.newWorkout(owner, date, name)
	if err := s.save(ctx, w, "create_routine"); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *workoutService) RenameWorkout(ctx context.Context, owner primitive.ObjectID, dateKey, name string) (*domain.Workout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: workout name is required", ErrValidationFailed)
	}
	return s.mutate(ctx, owner, dateKey, "rename", func(w *domain.Workout, _ time.Time) error {
		w.Name = name
		return nil
	})
}

// AddExercise appends a new exercise, creating a "New Routine" workout when
// the date is still empty.
func (s *workoutService) AddExercise(ctx context.Context, owner primitive.ObjectID, dateKey string, input ExerciseInput) (*domain.Workout, error) {
	input.normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	date, key, err := ParseDate(dateKey)
	if err != nil {
		return nil, err
	}

	w, err := s.load(ctx, owner, key)
	if errors.Is(err, ErrWorkoutNotFound) {
		w = s.newWorkout(owner, date, domain.DefaultRoutineName)
	} else if err != nil {
		return nil, err
	}

	now := s.now()
	ex := domain.Exercise{
		ID:          s.newID(),
		WorkoutID:   w.ID,
		Name:        input.Name,
		YoutubeLink: input.YoutubeLink,
		Sets:        make(domain.SetList, 0, len(input.Sets)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, in := range input.Sets {
		ex.Sets = append(ex.Sets, domain.ExerciseSet{
			ID:          s.newID(),
			ExerciseID:  ex.ID,
			Reps:        in.Reps,
			Measurement: in.Measurement,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	w.Exercises = append(w.Exercises, ex)
	w.UpdatedAt = now

	if err := s.save(ctx, w, "add_exercise"); err != nil {
		return nil, err
	}
	return w, nil
}

// EditExercise replaces the exercise's name, link and sets. Sets whose id
// matches an existing set keep their identity and completion state.
func (s *workoutService) EditExercise(ctx context.Context, owner primitive.ObjectID, dateKey, exerciseID string, input ExerciseInput) (*domain.Workout, error) {
	input.normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, owner, dateKey, "edit_exercise", func(w *domain.Workout, now time.Time) error {
		i := w.FindExercise(exerciseID)
		if i < 0 {
			return ErrExerciseNotFound
		}
		ex := &w.Exercises[i]

		sets := make(domain.SetList, 0, len(input.Sets))
		kept := make(map[string]bool, len(input.Sets))
		for _, in := range input.Sets {
			set := domain.ExerciseSet{
				ID:          s.newID(),
				ExerciseID:  ex.ID,
				Reps:        in.Reps,
				Measurement: in.Measurement,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if in.ID != "" && !kept[in.ID] {
				if j := ex.FindSet(in.ID); j >= 0 {
					kept[in.ID] = true
					set.ID = ex.Sets[j].ID
					set.Completed = ex.Sets[j].Completed
					set.CreatedAt = ex.Sets[j].CreatedAt
				}
			}
			sets = append(sets, set)
		}

		ex.Name = input.Name
		ex.YoutubeLink = input.YoutubeLink
		ex.Sets = sets
		ex.UpdatedAt = now
		return nil
	})
}

// DeleteExercise removes the exercise. The workout is kept even when it ends up empty.
func (s *workoutService) DeleteExercise(ctx context.Context, owner primitive.ObjectID, dateKey, exerciseID string) (*domain.Workout, error) {
	return s.mutate(ctx, owner, dateKey, "delete_exercise", func(w *domain.Workout, _ time.Time) error {
		i := w.FindExercise(exerciseID)
		if i < 0 {
			return ErrExerciseNotFound
		}
		w.Exercises = append(w.Exercises[:i], w.Exercises[i+1:]...)
		return nil
	})
}

func (s *workoutService) ToggleSet(ctx context.Context, owner primitive.ObjectID, dateKey, exerciseID, setID string) (*domain.Workout, error) {
	return s.mutate(ctx, owner, dateKey, "toggle_set", func(w *domain.Workout, now time.Time) error {
		i := w.FindExercise(exerciseID)
		if i < 0 {
			return ErrExerciseNotFound
		}
		ex := &w.Exercises[i]
		j := ex.FindSet(setID)
		if j < 0 {
			return ErrSetNotFound
		}
		ex.Sets[j].Completed = !ex.Sets[j].Completed
		ex.Sets[j].UpdatedAt = now
		ex.UpdatedAt = now
		return nil
	})
}

// ToggleWorkout logs or unlogs the workout.
func (s *workoutService) ToggleWorkout(ctx context.Context, owner primitive.ObjectID, dateKey string) (*domain.Workout, error) {
	return s.mutate(ctx, owner, dateKey, "toggle_workout", func(w *domain.Workout, _ time.Time) error {
		w.Completed = !w.Completed
		return nil
	})
}

// MoveWorkout relocates the workout keeping every identity. Moving onto the
// same date is a no-op.
func (s *workoutService) MoveWorkout(ctx context.Context, owner primitive.ObjectID, fromKey, toKey string) (*domain.Workout, error) {
	_, from, err := ParseDate(fromKey)
	if err != nil {
		return nil, err
	}
	toDate, to, err := ParseDate(toKey)
	if err != nil {
		return nil, err
	}

	w, err := s.load(ctx, owner, from)
	if err != nil {
		return nil, err
	}
	if from == to {
		return w, nil
	}
	if err := s.ensureFree(ctx, owner, to); err != nil {
		return nil, err
	}

	moved := w.MoveTo(toDate, s.now())
	if err := s.save(ctx, &moved, "move"); err != nil {
		return nil, err
	}
	return &moved, nil
}

// CopyWorkout duplicates the workout onto another date with fresh identities
// and cleared completion.
func (s *workoutService) CopyWorkout(ctx context.Context, owner primitive.ObjectID, fromKey, toKey string) (*domain.Workout, error) {
	_, from, err := ParseDate(fromKey)
	if err != nil {
		return nil, err
	}
	toDate, to, err := ParseDate(toKey)
	if err != nil {
		return nil, err
	}

	w, err := s.load(ctx, owner, from)
	if err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, owner, to); err != nil {
		return nil, err
	}

	cp := w.CopyTo(toDate, s.now(), s.newID)
	if err := s.save(ctx, &cp, "copy"); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *workoutService) DeleteWorkout(ctx context.Context, owner primitive.ObjectID, dateKey string) error {
	_, key, err := ParseDate(dateKey)
	if err != nil {
		return err
	}
	w, err := s.load(ctx, owner, key)
	if err != nil {
		return err
	}
	if err := s.workoutRepo.Delete(ctx, w.ID, owner); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		return fmt.Errorf("delete workout: %w", err)
	}
	s.metrics.CounterWorkoutMutations.WithLabelValues("delete_workout").Inc()
	s.invalidateTemplates(owner)
	return nil
}

// Templates returns the owner's exercise templates, derived from the full
// workout history and cached until the owner's next mutation.
func (s *workoutService) Templates(ctx context.Context, owner primitive.ObjectID) ([]domain.ExerciseTemplate, error) {
	cacheKey := templateCacheKey(owner)
	if cached, err := s.cache.Get(cacheKey); err == nil {
		var out []domain.ExerciseTemplate
		if err := json.Unmarshal(cached, &out); err == nil {
			s.metrics.CounterTemplateCache.WithLabelValues("hit").Inc()
			return out, nil
		} else {
			log.Errorf("failed to unmarshal cached templates for %s: %s", owner.Hex(), err)
		}
	}
	s.metrics.CounterTemplateCache.WithLabelValues("miss").Inc()

	gen := s.templateGeneration(owner)
	byDate, err := s.ListWorkouts(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := templates.Derive(byDate)

	if raw, err := json.Marshal(out); err == nil {
		s.storeTemplates(owner, gen, raw)
	}
	return out, nil
}

func (s *workoutService) templateGeneration(owner primitive.ObjectID) uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen[owner]
}

// storeTemplates caches raw unless the owner mutated something since gen was read.
func (s *workoutService) storeTemplates(owner primitive.ObjectID, gen uint64, raw []byte) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheGen[owner] != gen {
		log.Debugf("templates for %s changed while deriving, not cached", owner.Hex())
		return
	}
	if err := s.cache.Set(templateCacheKey(owner), raw, int(s.cacheTTL.Seconds())); err != nil {
		log.Debugf("templates for %s not cached: %s", owner.Hex(), err)
	}
}

func (s *workoutService) ImportWorkout(ctx context.Context, owner primitive.ObjectID, workout domain.Workout) (*domain.Workout, error) {
	date, key, err := ParseDate(workout.DateKey)
	if err != nil {
		return nil, err
	}

	w := workout.Clone()
	w.UserID = owner
	w.SetDate(date)
	if w.ID == "" {
		w.ID = s.newID()
	}

	existing, err := s.load(ctx, owner, key)
	switch {
	case err == nil:
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
	case !errors.Is(err, ErrWorkoutNotFound):
		return nil, err
	}
	for i := range w.Exercises {
		w.Exercises[i].WorkoutID = w.ID
	}

	if err := s.save(ctx, &w, "import"); err != nil {
		return nil, err
	}
	return &w, nil
}

// --- helpers ---

// mutate applies fn to the latest stored workout for dateKey and writes it back.
func (s *workoutService) mutate(ctx context.Context, owner primitive.ObjectID, dateKey, intent string, fn func(w *domain.Workout, now time.Time) error) (*domain.Workout, error) {
	_, key, err := ParseDate(dateKey)
	if err != nil {
		return nil, err
	}
	w, err := s.load(ctx, owner, key)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := fn(w, now); err != nil {
		return nil, err
	}
	w.UpdatedAt = now

	if err := s.save(ctx, w, intent); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *workoutService) load(ctx context.Context, owner primitive.ObjectID, key string) (*domain.Workout, error) {
	w, err := s.workoutRepo.GetByDate(ctx, owner, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("load workout %s: %w", key, err)
	}
	return w, nil
}

func (s *workoutService) ensureFree(ctx context.Context, owner primitive.ObjectID, key string) error {
	_, err := s.load(ctx, owner, key)
	switch {
	case err == nil:
		return ErrDateOccupied
	case errors.Is(err, ErrWorkoutNotFound):
		return nil
	default:
		return err
	}
}

func (s *workoutService) save(ctx context.Context, w *domain.Workout, intent string) error {
	if err := s.workoutRepo.Save(ctx, w); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDateOccupied
		}
		return fmt.Errorf("save workout: %w", err)
	}
	s.metrics.CounterWorkoutMutations.WithLabelValues(intent).Inc()
	s.invalidateTemplates(w.UserID)
	log.WithFields(log.Fields{
		"owner":   w.UserID.Hex(),
		"date":    w.DateKey,
		"workout": w.ID,
		"intent":  intent,
	}).Debug("workout saved")
	return nil
}

func (s *workoutService) newWorkout(owner primitive.ObjectID, date time.Time, name string) *domain.Workout {
	now := s.now()
	w := &domain.Workout{
		ID:        s.newID(),
		UserID:    owner,
		Name:      name,
		Exercises: []domain.Exercise{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.SetDate(date)
	return w
}

func (s *workoutService) invalidateTemplates(owner primitive.ObjectID) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen[owner]++
	s.cache.Del(templateCacheKey(owner))
}

func templateCacheKey(owner primitive.ObjectID) []byte {
	return []byte("templates::" + owner.Hex())
}
