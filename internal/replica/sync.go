package replica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeedPath is the HTTP path peers expose their feed on.
const FeedPath = "/api/replica/events"

// Syncer pulls the feed of every configured peer and merges it into the
// local node. Peers are a static list; discovery is not handled here.
type Syncer struct {
	node     *Node
	peers    []string
	client   *http.Client
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cursors map[string]peerCursor
}

// peerCursor is how far the feed of one peer has been merged.
type peerCursor struct {
	epoch string
	next  uint64
}

// NewSyncer returns a syncer for the given peer base URLs.
func NewSyncer(node *Node, peers []string, interval time.Duration, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	cleaned := make([]string, 0, len(peers))
	for _, p := range peers {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &Syncer{
		node:     node,
		peers:    cleaned,
		client:   &http.Client{Timeout: 10 * time.Second},
		interval: interval,
		logger:   logger,
		cursors:  make(map[string]peerCursor),
	}
}

// Run syncs immediately and then on every interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	if len(s.peers) == 0 {
		s.logger.Info("no replica peers configured; running standalone")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("replica sync failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncOnce pulls every peer once. Failures of one peer do not stop the others.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	var errs []error
	for _, peer := range s.peers {
		if err := s.pull(ctx, peer); err != nil {
			errs = append(errs, fmt.Errorf("peer %s: %w", peer, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Syncer) pull(ctx context.Context, peer string) error {
	s.mu.Lock()
	cursor := s.cursors[peer]
	s.mu.Unlock()

	feed, err := s.fetch(ctx, peer, cursor.next)
	if err != nil {
		return err
	}
	// A restarted peer numbers its feed from scratch; positions from an
	// earlier epoch say nothing about what is left to fetch.
	if feed.Epoch != cursor.epoch && cursor.next > 0 {
		s.logger.Info("replica peer restarted; pulling full feed", slog.String("peer", peer))
		if feed, err = s.fetch(ctx, peer, 0); err != nil {
			return err
		}
	}

	accepted, err := s.node.Merge(ctx, feed.Events)
	if err != nil {
		return fmt.Errorf("merge feed: %w", err)
	}

	s.mu.Lock()
	s.cursors[peer] = peerCursor{epoch: feed.Epoch, next: feed.Next}
	s.mu.Unlock()

	if accepted > 0 {
		s.logger.Info("replica sync merged events",
			slog.String("peer", peer),
			slog.Int("received", len(feed.Events)),
			slog.Int("accepted", accepted),
		)
	}
	return nil
}

func (s *Syncer) fetch(ctx context.Context, peer string, since uint64) (Feed, error) {
	url := peer + FeedPath + "?since=" + strconv.FormatUint(since, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Feed{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Feed{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Feed{}, fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
	}

	var feed Feed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return Feed{}, fmt.Errorf("decode feed: %w", err)
	}
	return feed, nil
}
