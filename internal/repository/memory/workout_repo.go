// Package memory holds process-local repository implementations, used for
// local development (database.driver: memory) and as test doubles.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WorkoutRepository struct {
	mu       sync.RWMutex
	workouts map[string]domain.Workout
	watchers map[primitive.ObjectID]map[chan struct{}]struct{}
}

var _ repository.WorkoutRepository = (*WorkoutRepository)(nil)

func NewWorkoutRepository() *WorkoutRepository {
	return &WorkoutRepository{
		workouts: make(map[string]domain.Workout),
		watchers: make(map[primitive.ObjectID]map[chan struct{}]struct{}),
	}
}

func (r *WorkoutRepository) Save(_ context.Context, workout *domain.Workout) error {
	if workout.ID == "" || workout.UserID == primitive.NilObjectID || workout.DateKey == "" {
		return errors.New("workout requires id, userId and date")
	}

	r.mu.Lock()
	if existing, ok := r.workouts[workout.ID]; ok && existing.UserID != workout.UserID {
		r.mu.Unlock()
		return repository.ErrDuplicate
	}
	for id, w := range r.workouts {
		if id != workout.ID && w.UserID == workout.UserID && w.DateKey == workout.DateKey {
			r.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	r.workouts[workout.ID] = workout.Clone()
	r.mu.Unlock()

	r.notify(workout.UserID)
	return nil
}

func (r *WorkoutRepository) GetByID(_ context.Context, id string) (*domain.Workout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := w.Clone()
	return &cp, nil
}

func (r *WorkoutRepository) GetByDate(_ context.Context, userID primitive.ObjectID, dateKey string) (*domain.Workout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, w := range r.workouts {
		if w.UserID == userID && w.DateKey == dateKey {
			cp := w.Clone()
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *WorkoutRepository) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.Workout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Workout
	for _, w := range r.workouts {
		if w.UserID == userID {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *WorkoutRepository) Delete(_ context.Context, id string, userID primitive.ObjectID) error {
	r.mu.Lock()
	w, ok := r.workouts[id]
	if !ok || w.UserID != userID {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.workouts, id)
	r.mu.Unlock()

	r.notify(userID)
	return nil
}

// Watch emits the user's workouts now and after every Save/Delete for that user.
func (r *WorkoutRepository) Watch(ctx context.Context, userID primitive.ObjectID, fn func([]domain.Workout)) error {
	changed := make(chan struct{}, 1)

	r.mu.Lock()
	if r.watchers[userID] == nil {
		r.watchers[userID] = make(map[chan struct{}]struct{})
	}
	r.watchers[userID][changed] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.watchers[userID], changed)
		if len(r.watchers[userID]) == 0 {
			delete(r.watchers, userID)
		}
		r.mu.Unlock()
	}()

	for {
		workouts, err := r.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		fn(workouts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (r *WorkoutRepository) notify(userID primitive.ObjectID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ch := range r.watchers[userID] {
		// A pending signal already covers this change.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
