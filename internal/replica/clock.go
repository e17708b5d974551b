package replica

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timestamp is a hybrid logical clock reading. Timestamps are totally
// ordered by wall time, then logical counter, then node id.
type Timestamp struct {
	Wall    int64  `json:"wall"`
	Logical uint32 `json:"logical"`
	Node    string `json:"node"`
}

// Compare returns -1, 0 or +1 when t is before, equal to or after o.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.Wall < o.Wall:
		return -1
	case t.Wall > o.Wall:
		return 1
	case t.Logical < o.Logical:
		return -1
	case t.Logical > o.Logical:
		return 1
	}
	return strings.Compare(t.Node, o.Node)
}

// After reports whether t is strictly after o.
func (t Timestamp) After(o Timestamp) bool { return t.Compare(o) > 0 }

// IsZero reports whether t was never set.
func (t Timestamp) IsZero() bool { return t == Timestamp{} }

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d@%s", t.Wall, t.Logical, t.Node)
}

// Clock issues monotonically increasing timestamps for one node and
// advances past every remote timestamp it observes.
type Clock struct {
	mu   sync.Mutex
	node string
	last Timestamp
	now  func() time.Time
}

// NewClock returns a clock for the given node id.
func NewClock(node string) *Clock {
	return &Clock{node: node, now: time.Now}
}

// Node returns the node id stamped on every timestamp.
func (c *Clock) Node() string { return c.node }

// Now returns a timestamp greater than every timestamp issued or observed so far.
func (c *Clock) Now() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	wall := c.now().UnixNano()
	if wall > c.last.Wall {
		c.last = Timestamp{Wall: wall, Node: c.node}
	} else {
		c.last = Timestamp{Wall: c.last.Wall, Logical: c.last.Logical + 1, Node: c.node}
	}
	return c.last
}

// Observe merges a remote timestamp into the clock.
func (c *Clock) Observe(remote Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote.Wall > c.last.Wall || (remote.Wall == c.last.Wall && remote.Logical > c.last.Logical) {
		c.last = Timestamp{Wall: remote.Wall, Logical: remote.Logical, Node: c.node}
	}
}
