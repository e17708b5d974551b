package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

func feedServer(t *testing.T, n *Node) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(FeedPath, func(w http.ResponseWriter, r *http.Request) {
		cursor, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(n.Since(cursor))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSyncOncePullsPeerFeed(t *testing.T) {
	ctx := context.Background()
	local := openNode(t, "a")
	remote := openNode(t, "b")

	if _, err := remote.Put(ctx, "k1", []byte("one")); err != nil {
		t.Fatal(err)
	}
	srv := feedServer(t, remote)
	syncer := NewSyncer(local, []string{srv.URL + "/"}, time.Second, testLogger())

	if err := syncer.SyncOnce(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got, ok := local.Get("k1"); !ok || string(got.Value) != "one" {
		t.Fatalf("k1 = %q, %v", got.Value, ok)
	}

	if _, err := remote.Put(ctx, "k1", nil); err != nil {
		t.Fatal(err)
	}
	if err := syncer.SyncOnce(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if got, _ := local.Get("k1"); !got.Tombstone() {
		t.Fatalf("tombstone not replicated, got %q", got.Value)
	}
}

func TestSyncOnceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	local := openNode(t, "a")
	remote := openNode(t, "b")
	if _, err := remote.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	srv := feedServer(t, remote)
	syncer := NewSyncer(local, []string{srv.URL}, time.Second, testLogger())

	for i := 0; i < 3; i++ {
		if err := syncer.SyncOnce(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if feed := local.Since(0); len(feed.Events) != 1 {
		t.Fatalf("local feed has %d events, want 1", len(feed.Events))
	}
}

func TestSyncOnceReportsUnreachablePeer(t *testing.T) {
	local := openNode(t, "a")
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	syncer := NewSyncer(local, []string{url}, time.Second, testLogger())
	if err := syncer.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected error for unreachable peer")
	}
}

func TestRunWithoutPeersWaitsForCancel(t *testing.T) {
	local := openNode(t, "a")
	syncer := NewSyncer(local, []string{" ", ""}, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// winnerJournal keeps only the latest event per key, like the SQLite journal.
type winnerJournal struct {
	mu     sync.Mutex
	order  []string
	latest map[string]Event
}

func (j *winnerJournal) Append(_ context.Context, ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.latest == nil {
		j.latest = make(map[string]Event)
	}
	if _, ok := j.latest[ev.Key]; !ok {
		j.order = append(j.order, ev.Key)
	}
	j.latest[ev.Key] = ev
	return nil
}

func (j *winnerJournal) Load(context.Context) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	events := make([]Event, 0, len(j.order))
	for _, key := range j.order {
		events = append(events, j.latest[key])
	}
	return events, nil
}

func TestSyncAfterPeerRestart(t *testing.T) {
	ctx := context.Background()
	local := openNode(t, "a")
	journal := &winnerJournal{}

	remote, err := Open(ctx, "b", journal, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if _, err := remote.Put(ctx, "hot", []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	// The handler always serves whichever incarnation of the peer is current.
	var (
		mu      sync.Mutex
		current = remote
	)
	mux := http.NewServeMux()
	mux.HandleFunc(FeedPath, func(w http.ResponseWriter, r *http.Request) {
		cursor, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
		mu.Lock()
		n := current
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(n.Since(cursor))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	syncer := NewSyncer(local, []string{srv.URL}, time.Second, testLogger())
	if err := syncer.SyncOnce(ctx); err != nil {
		t.Fatal(err)
	}

	restarted, err := Open(ctx, "b", journal, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	current = restarted
	mu.Unlock()

	// Enough new writes to push the restarted feed past the old cursor.
	var keys []string
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("new%02d", i)
		keys = append(keys, key)
		if _, err := restarted.Put(ctx, key, []byte(key)); err != nil {
			t.Fatal(err)
		}
	}
	if next := restarted.Since(0).Next; next < 10 {
		t.Fatalf("restarted feed next = %d, test needs it past the old cursor", next)
	}

	if err := syncer.SyncOnce(ctx); err != nil {
		t.Fatal(err)
	}
	for _, key := range keys {
		if _, ok := local.Get(key); !ok {
			t.Errorf("%s missing after sync", key)
		}
	}
	if got, _ := local.Get("hot"); string(got.Value) != "v9" {
		t.Fatalf("hot = %q, want v9", got.Value)
	}
}
