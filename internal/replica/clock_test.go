package replica

import (
	"testing"
	"time"
)

func fixedClock(node string, at time.Time) *Clock {
	c := NewClock(node)
	c.now = func() time.Time { return at }
	return c
}

func TestClockMonotonicWithFrozenTime(t *testing.T) {
	c := fixedClock("a", time.Unix(100, 0))

	first := c.Now()
	second := c.Now()
	if !second.After(first) {
		t.Fatalf("expected %s after %s", second, first)
	}
	if second.Wall != first.Wall || second.Logical != first.Logical+1 {
		t.Fatalf("expected logical increment, got %s then %s", first, second)
	}
}

func TestClockObserveAdvancesPastRemote(t *testing.T) {
	c := fixedClock("a", time.Unix(100, 0))
	remote := Timestamp{Wall: time.Unix(200, 0).UnixNano(), Logical: 4, Node: "b"}

	c.Observe(remote)
	next := c.Now()
	if !next.After(remote) {
		t.Fatalf("expected %s after observed %s", next, remote)
	}
	if next.Node != "a" {
		t.Fatalf("expected local node id, got %q", next.Node)
	}
}

func TestClockObserveIgnoresOlder(t *testing.T) {
	c := fixedClock("a", time.Unix(100, 0))
	before := c.Now()

	c.Observe(Timestamp{Wall: 1, Node: "b"})
	if after := c.Now(); !after.After(before) {
		t.Fatalf("clock went backwards: %s then %s", before, after)
	}
}

func TestTimestampCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Timestamp
		want int
	}{
		{name: "wall", a: Timestamp{Wall: 1}, b: Timestamp{Wall: 2}, want: -1},
		{name: "logical", a: Timestamp{Wall: 2, Logical: 3}, b: Timestamp{Wall: 2, Logical: 1}, want: 1},
		{name: "node tiebreak", a: Timestamp{Wall: 2, Node: "a"}, b: Timestamp{Wall: 2, Node: "b"}, want: -1},
		{name: "equal", a: Timestamp{Wall: 2, Node: "a"}, b: Timestamp{Wall: 2, Node: "a"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Fatalf("Compare = %d, want %d", got, tt.want)
			}
			if got := tt.b.Compare(tt.a); got != -tt.want {
				t.Fatalf("reverse Compare = %d, want %d", got, -tt.want)
			}
		})
	}
}
