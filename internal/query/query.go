// Package query filters and orders task snapshots for display.
package query

import (
	"sort"
	"strings"

	"genotasks/internal/models"
)

// All is the filter value that matches every task, as sent by the board's
// dropdowns. An empty value means the same.
const All = "Todos"

// Filter selects tasks. Every set field must match.
type Filter struct {
	Week   string `form:"week" json:"week"`
	Area   string `form:"area" json:"area"`
	Team   string `form:"team" json:"team"`
	Status string `form:"status" json:"status"`
	Search string `form:"q" json:"q"`
}

// Match reports whether t passes every filter. Search matches title or
// requester, case-insensitively.
func (f Filter) Match(t models.Task) bool {
	if !matches(f.Week, t.Week) ||
		!matches(f.Area, string(t.Area)) ||
		!matches(f.Team, string(t.Responsible)) ||
		!matches(f.Status, string(t.Status)) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), term) ||
		strings.Contains(strings.ToLower(t.Requester), term)
}

func matches(want, got string) bool {
	return want == "" || want == All || want == got
}

// Apply returns the tasks matching f in display order.
func Apply(tasks []models.Task, f Filter) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	Sort(out)
	return out
}

// Sort orders tasks in place: priority descending, then delivery date
// ascending with undated tasks last, then title (case-insensitive), then id.
// The order is total, so sorting is a pure function of the set.
func Sort(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return Less(tasks[i], tasks[j]) })
}

// Less reports whether a is displayed before b.
func Less(a, b models.Task) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}
	if a.DeliveryDate != b.DeliveryDate {
		switch {
		case a.DeliveryDate == "":
			return false
		case b.DeliveryDate == "":
			return true
		}
		return a.DeliveryDate < b.DeliveryDate
	}
	if ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title); ta != tb {
		return ta < tb
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

// Weeks returns the distinct week labels of tasks, most recent first.
func Weeks(tasks []models.Task) []string {
	seen := make(map[string]struct{})
	var weeks []string
	for _, t := range tasks {
		if t.Week == "" {
			continue
		}
		if _, ok := seen[t.Week]; ok {
			continue
		}
		seen[t.Week] = struct{}{}
		weeks = append(weeks, t.Week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weekAfter(weeks[i], weeks[j]) })
	return weeks
}

// GroupByArea splits sorted tasks by area, in board area order. Areas
// outside the known set come last in name order.
func GroupByArea(tasks []models.Task) []AreaGroup {
	byArea := make(map[models.Area][]models.Task)
	for _, t := range tasks {
		byArea[t.Area] = append(byArea[t.Area], t)
	}

	var groups []AreaGroup
	for _, area := range models.Areas {
		if list, ok := byArea[area]; ok {
			groups = append(groups, AreaGroup{Area: area, Tasks: list})
			delete(byArea, area)
		}
	}
	rest := make([]models.Area, 0, len(byArea))
	for area := range byArea {
		rest = append(rest, area)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, area := range rest {
		groups = append(groups, AreaGroup{Area: area, Tasks: byArea[area]})
	}
	return groups
}

// AreaGroup is the tasks of one area.
type AreaGroup struct {
	Area  models.Area
	Tasks []models.Task
}

func weekAfter(a, b string) bool {
	ya, wa, okA := models.ParseWeek(a)
	yb, wb, okB := models.ParseWeek(b)
	switch {
	case okA && okB:
		if ya != yb {
			return ya > yb
		}
		if wa != wb {
			return wa > wb
		}
	case okA != okB:
		return okA
	}
	return a > b
}
