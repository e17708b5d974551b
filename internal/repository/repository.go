// Package repository materializes the replicated task keyspace into an
// in-memory id → task view and notifies observers when it changes.
package repository

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"genotasks/internal/models"
	"genotasks/internal/replica"
)

// Snapshot is a point-in-time copy of the view, ordered by id.
type Snapshot []models.Task

// Get returns the task with the given id.
func (s Snapshot) Get(id string) (models.Task, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].ID >= id })
	if i < len(s) && s[i].ID == id {
		return s[i], true
	}
	return models.Task{}, false
}

// Observer is called with the latest snapshot after the view changes.
type Observer func(Snapshot)

// Repository is the local materialized view of the task keyspace.
type Repository struct {
	mu      sync.RWMutex
	tasks   map[string]models.Task
	stamps  map[string]replica.Timestamp
	synced  bool
	version uint64

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int

	changed     chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	unsubscribe func()
	logger      *slog.Logger
}

// New subscribes to the task keyspace of store. Call Close to unsubscribe.
func New(store replica.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		tasks:     make(map[string]models.Task),
		stamps:    make(map[string]replica.Timestamp),
		observers: make(map[int]Observer),
		changed:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		logger:    logger,
	}
	go r.notifyLoop()
	r.unsubscribe = store.Subscribe(Prefix, r.handle)
	return r
}

// Close unsubscribes from the store and stops notifying observers.
func (r *Repository) Close() {
	r.closeOnce.Do(func() {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		close(r.done)
		<-r.stopped
	})
}

// Synced reports whether at least one event has been received, telling
// "no data yet" apart from "loaded and empty".
func (r *Repository) Synced() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synced
}

// Version increases every time the view changes.
func (r *Repository) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Snapshot returns a consistent copy of the view.
func (r *Repository) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(Snapshot, 0, len(r.tasks))
	for _, t := range r.tasks {
		snap = append(snap, t.Clone())
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].ID < snap[j].ID })
	return snap
}

// Get returns a copy of the task with the given id.
func (r *Repository) Get(id string) (models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

// Observe registers fn for change notifications. fn is called from a single
// notifier goroutine with the latest snapshot; intermediate snapshots may be
// coalesced. The returned function cancels the registration.
func (r *Repository) Observe(fn Observer) (cancel func()) {
	r.obsMu.Lock()
	r.nextObs++
	id := r.nextObs
	r.observers[id] = fn
	r.obsMu.Unlock()

	r.signal()

	return func() {
		r.obsMu.Lock()
		defer r.obsMu.Unlock()
		delete(r.observers, id)
	}
}

// handle applies one replicated event to the view.
func (r *Repository) handle(_ context.Context, ev replica.Event) {
	id := IDFromKey(ev.Key)
	if id == "" {
		return
	}

	var (
		task models.Task
		err  error
	)
	if !ev.Tombstone() {
		task, err = DecodeTask(ev.Key, ev.Value)
	}

	r.mu.Lock()
	firstEvent := !r.synced
	r.synced = true

	changed := false
	switch cur, seen := r.stamps[id]; {
	case seen && !ev.Stamp.After(cur):
		// duplicate or stale delivery
	case err != nil:
		r.logger.Warn("dropping undecodable task record",
			slog.String("id", id),
			slog.String("stamp", ev.Stamp.String()),
			slog.String("error", err.Error()),
		)
	case ev.Tombstone():
		r.stamps[id] = ev.Stamp
		if _, ok := r.tasks[id]; ok {
			delete(r.tasks, id)
			changed = true
		}
	default:
		r.stamps[id] = ev.Stamp
		r.tasks[id] = task
		changed = true
	}
	if changed {
		r.version++
	}
	r.mu.Unlock()

	if changed || firstEvent {
		r.signal()
	}
}

func (r *Repository) signal() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *Repository) notifyLoop() {
	defer close(r.stopped)
	for {
		select {
		case <-r.done:
			return
		case <-r.changed:
			snap := r.Snapshot()

			r.obsMu.Lock()
			ids := make([]int, 0, len(r.observers))
			for id := range r.observers {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			targets := make([]Observer, 0, len(ids))
			for _, id := range ids {
				targets = append(targets, r.observers[id])
			}
			r.obsMu.Unlock()

			for _, fn := range targets {
				fn(snap)
			}
		}
	}
}
