// Package quota enforces how many tasks of a quota group (week, responsible
// team, area) may hold the top priority tiers at the same time.
//
// The check is advisory at write time: it runs against whatever snapshot the
// caller passes in and is not re-evaluated when the group changes later, so
// two replicas escalating concurrently can both pass and briefly exceed a cap
// once their writes converge.
package quota

import (
	"fmt"

	"genotasks/internal/models"
)

// Default caps per requested tier. Tiers without a cap are never limited.
const (
	UrgentCap = 1
	HighCap   = 2
)

// Caps maps a priority tier to the maximum number of open tasks in a quota
// group that may hold that tier or a higher one.
type Caps map[models.Priority]int

// DefaultCaps returns the caps used when none are configured.
func DefaultCaps() Caps {
	return Caps{
		models.PriorityUrgent: UrgentCap,
		models.PriorityHigh:   HighCap,
	}
}

// Group identifies a quota group.
type Group struct {
	Week string
	Team models.Team
	Area models.Area
}

func (g Group) String() string {
	return fmt.Sprintf("%s / %s / %s", g.Week, g.Team, g.Area)
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	Reason  string
	Group   Group
	Tier    models.Priority
	Count   int
	Cap     int
}

// Engine evaluates quota checks against a fixed set of caps.
type Engine struct {
	caps Caps
}

// New returns an engine for caps; nil caps fall back to DefaultCaps.
func New(caps Caps) *Engine {
	if caps == nil {
		caps = DefaultCaps()
	}
	copied := make(Caps, len(caps))
	for tier, limit := range caps {
		copied[tier] = limit
	}
	return &Engine{caps: copied}
}

// Cap returns the cap configured for tier.
func (e *Engine) Cap(tier models.Priority) (int, bool) {
	limit, ok := e.caps[tier]
	return limit, ok
}

// Check decides whether a task of the group may move to requested. Open
// tasks of the group holding requested or a higher tier are counted, except
// excludeID, which is the task being edited.
func (e *Engine) Check(snapshot []models.Task, week string, team models.Team, area models.Area, requested models.Priority, excludeID string) Decision {
	group := Group{Week: week, Team: team, Area: area}
	d := Decision{Allowed: true, Group: group, Tier: requested}

	limit, capped := e.caps[requested]
	if !capped {
		return d
	}
	d.Cap = limit

	rank := requested.Rank()
	for _, t := range snapshot {
		if t.ID == excludeID || t.Completed() {
			continue
		}
		if t.Week != week || t.Responsible != team || t.Area != area {
			continue
		}
		if t.Priority.Rank() >= rank {
			d.Count++
		}
	}

	if d.Count >= limit {
		d.Allowed = false
		d.Reason = fmt.Sprintf("%s already has %d open task(s) at %s or above (limit %d)",
			group, d.Count, requested, limit)
	}
	return d
}

var defaultEngine = New(nil)

// CheckPriorityLimit runs Check with the default caps.
func CheckPriorityLimit(snapshot []models.Task, week string, team models.Team, area models.Area, requested models.Priority, excludeID string) Decision {
	return defaultEngine.Check(snapshot, week, team, area, requested, excludeID)
}
