// Package realtime fans a store's change feed out to any number of
// subscribers per owner while keeping a process-local snapshot of the
// owner's calendar.
package realtime

import (
	"context"
	"errors"
	"sync"

	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/metrics"
	"alcyxob/fitflow/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrHubClosed = errors.New("realtime hub is shut down")

// Snapshot is an owner's calendar keyed by date key. Snapshots are shared
// between subscribers and must be treated as read-only.
type Snapshot map[string]domain.Workout

type Hub struct {
	watcher repository.WorkoutWatcher
	metrics *metrics.Manager

	mu     sync.Mutex
	feeds  map[primitive.ObjectID]*feed
	closed bool
	wg     sync.WaitGroup
}

// feed is the single watch kept open for one owner.
type feed struct {
	cancel context.CancelFunc
	latest Snapshot
	ready  bool
	subs   map[*Subscription]struct{}
}

type Subscription struct {
	hub   *Hub
	owner primitive.ObjectID
	feed  *feed
	ch    chan Snapshot
	once  sync.Once
}

func NewHub(watcher repository.WorkoutWatcher, metricsManager *metrics.Manager) *Hub {
	return &Hub{
		watcher: watcher,
		metrics: metricsManager,
		feeds:   make(map[primitive.ObjectID]*feed),
	}
}

// Subscribe registers for snapshots of owner's workouts. The owner's watch is
// started on the first subscription; later subscribers get the current
// snapshot right away.
func (h *Hub) Subscribe(owner primitive.ObjectID) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	f, ok := h.feeds[owner]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &feed{
			cancel: cancel,
			subs:   make(map[*Subscription]struct{}),
		}
		h.feeds[owner] = f
		h.wg.Add(1)
		go h.run(ctx, owner, f)
	}

	sub := &Subscription{
		hub:   h,
		owner: owner,
		feed:  f,
		ch:    make(chan Snapshot, 1),
	}
	f.subs[sub] = struct{}{}
	if f.ready {
		offer(sub.ch, f.latest)
	}
	h.metrics.GaugeRealtimeSubscribers.Inc()

	return sub, nil
}

// Latest returns the owner's current snapshot while the owner has a live watch.
func (h *Hub) Latest(owner primitive.ObjectID) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[owner]
	if !ok || !f.ready {
		return nil, false
	}
	return f.latest, true
}

// Shutdown cancels every watch, closes every subscription and waits for the
// watch goroutines to return.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for owner, f := range h.feeds {
		f.cancel()
		h.closeSubsLocked(f)
		delete(h.feeds, owner)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) run(ctx context.Context, owner primitive.ObjectID, f *feed) {
	defer h.wg.Done()

	err := h.watcher.Watch(ctx, owner, func(workouts []domain.Workout) {
		h.publish(owner, f, workouts)
	})
	if err != nil && ctx.Err() == nil {
		log.WithError(err).WithField("owner", owner.Hex()).Error("workout watch failed")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// A failed feed drops its subscribers so clients can reconnect.
	h.closeSubsLocked(f)
	if h.feeds[owner] == f {
		delete(h.feeds, owner)
	}
	f.cancel()
}

// publish is the only writer of a feed's snapshot.
func (h *Hub) publish(owner primitive.ObjectID, f *feed, workouts []domain.Workout) {
	byDate, duplicates := domain.IndexByDate(workouts)
	for _, d := range duplicates {
		log.WithFields(log.Fields{
			"owner":   owner.Hex(),
			"date":    d.DateKey,
			"workout": d.ID,
		}).Warn("more than one workout on a date, keeping the latest")
	}
	snap := Snapshot(byDate)

	h.mu.Lock()
	defer h.mu.Unlock()

	f.latest = snap
	f.ready = true
	for sub := range f.subs {
		offer(sub.ch, snap)
	}
}

func (h *Hub) closeSubsLocked(f *feed) {
	for sub := range f.subs {
		close(sub.ch)
		delete(f.subs, sub)
		h.metrics.GaugeRealtimeSubscribers.Dec()
	}
}

// offer delivers snap without blocking. An unread older snapshot is replaced.
// Callers hold the hub lock, so nothing else sends on ch concurrently.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Updates yields snapshots until the subscription is closed or the owner's
// watch ends.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Close unsubscribes. The owner's watch stops with its last subscriber.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		f := s.feed
		if _, ok := f.subs[s]; !ok {
			return
		}
		delete(f.subs, s)
		close(s.ch)
		h.metrics.GaugeRealtimeSubscribers.Dec()

		if len(f.subs) == 0 {
			f.cancel()
			if h.feeds[s.owner] == f {
				delete(h.feeds, s.owner)
			}
		}
	})
}
