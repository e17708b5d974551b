// Package replica implements the replicated key/value broadcast the task
// board is built on: every key holds the last-writer-wins value under a
// hybrid logical clock, deletions are tombstones compared by the same rule,
// and subscribers observe every accepted write, including their own.
package replica

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Event is one write to a key. A nil or empty Value is a tombstone.
type Event struct {
	Key   string    `json:"key"`
	Value []byte    `json:"value"`
	Stamp Timestamp `json:"stamp"`
}

// Tombstone reports whether the event deletes its key.
func (e Event) Tombstone() bool { return len(e.Value) == 0 }

// normalize makes every tombstone carry a nil Value.
func (e Event) normalize() Event {
	if e.Tombstone() {
		e.Value = nil
	}
	return e
}

// Handler receives accepted events for a subscribed prefix.
type Handler func(ctx context.Context, ev Event)

// Store is the replicated broadcast primitive consumed by the task repository.
type Store interface {
	// Put writes value at key; a nil value writes a tombstone.
	Put(ctx context.Context, key string, value []byte) (Event, error)

	// Subscribe replays the current winner of every key under prefix and then
	// delivers every accepted write. The returned function unsubscribes.
	Subscribe(prefix string, handler Handler) (unsubscribe func())
}

// Journal persists accepted winners so a node survives restarts.
type Journal interface {
	Append(ctx context.Context, ev Event) error
	Load(ctx context.Context) ([]Event, error)
}

// Feed is a batch of accepted winners in local acceptance order. Cursors
// are only meaningful within one Epoch; a node gets a new epoch every time
// it is opened.
type Feed struct {
	Epoch  string  `json:"epoch"`
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}

type entry struct {
	ev  Event
	seq uint64
}

type subscription struct {
	prefix  string
	handler Handler
}

// Node is an in-process replica. It is safe for concurrent use.
type Node struct {
	mu      sync.RWMutex
	clock   *Clock
	entries map[string]entry
	seq     uint64
	epoch   string
	subs    map[int]subscription
	nextSub int
	journal Journal
	logger  *slog.Logger
}

// Open creates a node with the given id and restores it from journal when
// one is provided.
func Open(ctx context.Context, id string, journal Journal, logger *slog.Logger) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("empty node id")
	}
	if logger == nil {
		logger = slog.Default()
	}

	n := &Node{
		clock:   NewClock(id),
		entries: make(map[string]entry),
		subs:    make(map[int]subscription),
		journal: journal,
		epoch:   uuid.NewString(),
		logger:  logger.With(slog.String("node", id)),
	}

	if journal != nil {
		events, err := journal.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load journal: %w", err)
		}
		for _, ev := range events {
			if ev = ev.normalize(); n.accept(ev) {
				n.clock.Observe(ev.Stamp)
			}
		}
		n.logger.Info("replica restored", slog.Int("keys", len(n.entries)))
	}
	return n, nil
}

// ID returns the node id.
func (n *Node) ID() string { return n.clock.Node() }

// Epoch identifies this incarnation of the node's feed numbering.
func (n *Node) Epoch() string { return n.epoch }

// Put stamps and applies a local write.
func (n *Node) Put(ctx context.Context, key string, value []byte) (Event, error) {
	if key == "" {
		return Event{}, fmt.Errorf("empty key")
	}
	ev := Event{Key: key, Value: value, Stamp: n.clock.Now()}.normalize()
	if _, err := n.apply(ctx, ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Merge applies remote events. Events that do not beat the stored winner
// for their key are ignored, so redelivery is a no-op. It returns the
// number of events accepted.
func (n *Node) Merge(ctx context.Context, events []Event) (int, error) {
	accepted := 0
	for _, ev := range events {
		if ev.Key == "" {
			continue
		}
		ok, err := n.apply(ctx, ev.normalize())
		if err != nil {
			return accepted, err
		}
		if ok {
			accepted++
		}
	}
	return accepted, nil
}

// Get returns the current winner for key, tombstones included.
func (n *Node) Get(key string) (Event, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.entries[key]
	return e.ev, ok
}

// Since returns every winner accepted after cursor.
func (n *Node) Since(cursor uint64) Feed {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var picked []entry
	for _, e := range n.entries {
		if e.seq > cursor {
			picked = append(picked, e)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].seq < picked[j].seq })

	feed := Feed{Epoch: n.epoch, Events: make([]Event, 0, len(picked)), Next: n.seq}
	for _, e := range picked {
		feed.Events = append(feed.Events, e.ev)
	}
	return feed
}

// Subscribe implements Store.
func (n *Node) Subscribe(prefix string, handler Handler) (unsubscribe func()) {
	n.mu.Lock()
	n.nextSub++
	id := n.nextSub
	n.subs[id] = subscription{prefix: prefix, handler: handler}

	var replay []Event
	for key, e := range n.entries {
		if strings.HasPrefix(key, prefix) {
			replay = append(replay, e.ev)
		}
	}
	n.mu.Unlock()

	sort.Slice(replay, func(i, j int) bool { return replay[i].Key < replay[j].Key })
	for _, ev := range replay {
		handler(context.Background(), ev)
	}

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// apply stores ev when it wins over the current value, journals it and
// publishes it to matching subscribers outside the lock.
func (n *Node) apply(ctx context.Context, ev Event) (bool, error) {
	n.mu.Lock()
	if cur, ok := n.entries[ev.Key]; ok && !ev.Stamp.After(cur.ev.Stamp) {
		n.mu.Unlock()
		return false, nil
	}
	if n.journal != nil {
		if err := n.journal.Append(ctx, ev); err != nil {
			n.mu.Unlock()
			return false, fmt.Errorf("journal %s: %w", ev.Key, err)
		}
	}
	n.accept(ev)
	n.clock.Observe(ev.Stamp)

	var targets []Handler
	for _, sub := range n.subs {
		if strings.HasPrefix(ev.Key, sub.prefix) {
			targets = append(targets, sub.handler)
		}
	}
	n.mu.Unlock()

	n.logger.Debug("replica write accepted",
		slog.String("key", ev.Key),
		slog.String("stamp", ev.Stamp.String()),
		slog.Bool("tombstone", ev.Tombstone()),
	)

	for _, h := range targets {
		h(ctx, ev)
	}
	return true, nil
}

// accept records ev without journaling or publishing. Callers hold n.mu or
// own n exclusively.
func (n *Node) accept(ev Event) bool {
	if cur, ok := n.entries[ev.Key]; ok && !ev.Stamp.After(cur.ev.Stamp) {
		return false
	}
	n.seq++
	n.entries[ev.Key] = entry{ev: ev, seq: n.seq}
	return true
}
