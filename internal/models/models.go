package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Area is the production area a task belongs to.
type Area string

const (
	AreaProduction Area = "Producción"
	AreaCreative   Area = "Creativo"
)

// Areas lists the areas in board order.
var Areas = []Area{AreaProduction, AreaCreative}

// Team is the team responsible for a task.
type Team string

const (
	TeamDesign  Team = "Diseño Gráfico"
	TeamVideo   Team = "Audiovisual"
	TeamContent Team = "Contenido"
	TeamWebDevs Team = "Desarrollo Web"
)

// Teams lists the teams in board order.
var Teams = []Team{TeamDesign, TeamVideo, TeamContent, TeamWebDevs}

// Priority is ordered Baja < Media < Alta < Urgente.
type Priority string

const (
	PriorityLow    Priority = "Baja"
	PriorityMedium Priority = "Media"
	PriorityHigh   Priority = "Alta"
	PriorityUrgent Priority = "Urgente"
)

// Priorities lists the priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank returns the position of p in the priority order, or -1 when p is unknown.
func (p Priority) Rank() int {
	for i, candidate := range Priorities {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool { return p.Rank() >= 0 }

// Status is the workflow state of a task.
type Status string

const (
	StatusBlocked    Status = "Bloqueada (falta Basecamp)"
	StatusActive     Status = "Activa"
	StatusInProgress Status = "En progreso"
	StatusCompleted  Status = "Completada"
)

// Statuses lists the statuses in board order.
var Statuses = []Status{StatusBlocked, StatusActive, StatusInProgress, StatusCompleted}

// Blocked reports whether s is a blocked status. The qualifier after
// "Bloqueada" may vary between clients.
func (s Status) Blocked() bool { return strings.HasPrefix(string(s), "Bloqueada") }

// Valid reports whether s is a known status or a qualified blocked status.
func (s Status) Valid() bool {
	if s.Blocked() {
		return true
	}
	for _, candidate := range Statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Role is the declared role of the person issuing an intent.
type Role string

const (
	RoleLeader Role = "Leader"
	RoleHead   Role = "Head"
)

// PendingRequester marks a task whose requester is not known yet.
const PendingRequester = "Pendiente"

// DateLayout is the layout of delivery dates.
const DateLayout = "2006-01-02"

// Comment is a single note appended to a task.
type Comment struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is the unit of replication on the board.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Week         string    `json:"week"`
	Area         Area      `json:"area"`
	Responsible  Team      `json:"responsible"`
	Requester    string    `json:"requester"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	DeliveryDate string    `json:"deliveryDate,omitempty"`
	Comments     []Comment `json:"comments"`
}

// ErrInvalidTask is wrapped by every validation failure returned by Validate.
var ErrInvalidTask = errors.New("invalid task")

// Validate checks the closed enumerations and required fields of t.
func (t Task) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("%w: empty title", ErrInvalidTask)
	case strings.TrimSpace(t.Week) == "":
		return fmt.Errorf("%w: empty week", ErrInvalidTask)
	case !ValidArea(t.Area):
		return fmt.Errorf("%w: unknown area %q", ErrInvalidTask, t.Area)
	case !ValidTeam(t.Responsible):
		return fmt.Errorf("%w: unknown team %q", ErrInvalidTask, t.Responsible)
	case !t.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	case !t.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, t.Status)
	}
	if t.DeliveryDate != "" {
		if _, err := time.Parse(DateLayout, t.DeliveryDate); err != nil {
			return fmt.Errorf("%w: delivery date %q", ErrInvalidTask, t.DeliveryDate)
		}
	}
	return nil
}

// IsPendingRequester reports whether the requester is still unknown.
func (t Task) IsPendingRequester() bool {
	return strings.Contains(t.Requester, PendingRequester)
}

// Completed reports whether the task is done.
func (t Task) Completed() bool { return t.Status == StatusCompleted }

// WithStatus returns a copy of t moved to status s. Completing a task drops
// its priority to Baja.
func (t Task) WithStatus(s Status) Task {
	t.Status = s
	if s == StatusCompleted {
		t.Priority = PriorityLow
	}
	return t
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	if t.Comments != nil {
		comments := make([]Comment, len(t.Comments))
		copy(comments, t.Comments)
		t.Comments = comments
	}
	return t
}

// ValidArea reports whether a is one of the known areas.
func ValidArea(a Area) bool {
	for _, candidate := range Areas {
		if candidate == a {
			return true
		}
	}
	return false
}

// ValidTeam reports whether team is one of the known teams.
func ValidTeam(team Team) bool {
	for _, candidate := range Teams {
		if candidate == team {
			return true
		}
	}
	return false
}

// WeekOf renders the ISO week label of t, e.g. "Sem 32 2024".
func WeekOf(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("Sem %d %d", week, year)
}

// ParseWeek reads a label produced by WeekOf.
func ParseWeek(label string) (year, week int, ok bool) {
	var w, y int
	if n, err := fmt.Sscanf(strings.TrimSpace(label), "Sem %d %d", &w, &y); err != nil || n != 2 {
		return 0, 0, false
	}
	if w < 1 || w > 53 {
		return 0, 0, false
	}
	return y, w, true
}
