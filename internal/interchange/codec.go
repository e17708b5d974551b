// Package interchange converts a week of tasks to and from the plain-text
// document teams exchange by file.
package interchange

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"genotasks/internal/models"
	"genotasks/internal/query"
)

// Document labels.
const (
	headerTitle    = "TAREAS GENOTASKS"
	labelWeek      = "SEMANA"
	labelArea      = "ÁREA"
	labelTitle     = "Tarea"
	labelRequester = "Solicitante"
	labelTeam      = "Responsable"
	labelPriority  = "Prioridad"
	labelStatus    = "Estado"
	labelDelivery  = "Entrega"
	blockSeparator = "----"
	pendingDate    = "Pendiente"
	shortDate      = "02/01/06"
)

// ErrNoWeek is returned when an export is requested without a week.
var ErrNoWeek = errors.New("no week selected")

var filenameUnsafe = regexp.MustCompile(`[\s/]`)

// Filename returns the file name an export of week is saved under.
func Filename(week string) string {
	return "Tareas_GenoTasks_" + filenameUnsafe.ReplaceAllString(week, "_") + ".txt"
}

// Export renders the tasks of week, grouped by area and in display order.
func Export(week string, tasks []models.Task) (string, error) {
	week = strings.TrimSpace(week)
	if week == "" {
		return "", ErrNoWeek
	}

	selected := query.Apply(tasks, query.Filter{Week: week})

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerTitle)
	fmt.Fprintf(&b, "%s: %s\n", labelWeek, week)
	fmt.Fprintf(&b, "Total: %d\n", len(selected))

	for _, group := range query.GroupByArea(selected) {
		fmt.Fprintf(&b, "\n%s: %s\n", labelArea, group.Area)
		for _, t := range group.Tasks {
			writeField(&b, labelTitle, t.Title)
			writeField(&b, labelRequester, t.Requester)
			writeField(&b, labelTeam, string(t.Responsible))
			writeField(&b, labelPriority, string(t.Priority))
			writeField(&b, labelStatus, string(t.Status))
			delivery := t.DeliveryDate
			if delivery == "" {
				delivery = pendingDate
			}
			writeField(&b, labelDelivery, delivery)
			b.WriteString(blockSeparator + "\n")
		}
	}
	return b.String(), nil
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.Join(strings.Fields(value), " ")
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

// ParseWarning describes a block skipped during import.
type ParseWarning struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (w ParseWarning) Error() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

// Parser reads export documents back into tasks.
type Parser struct {
	// NewID assigns ids to imported tasks. Imports never reuse ids.
	NewID func() string
}

// Parse reads r with fresh uuid ids.
func Parse(r io.Reader) ([]models.Task, []ParseWarning, error) {
	return Parser{}.Parse(r)
}

type block struct {
	line   int
	week   string
	area   string
	fields map[string]string
}

// Parse reads every recognizable task block of r. Malformed blocks are
// skipped and reported as warnings; only read failures return an error.
func (p Parser) Parse(r io.Reader) ([]models.Task, []ParseWarning, error) {
	newID := p.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	var (
		tasks    []models.Task
		warnings []ParseWarning
		week     string
		area     string
		cur      *block
	)

	flush := func() {
		if cur == nil {
			return
		}
		t, err := cur.task(newID())
		if err != nil {
			warnings = append(warnings, ParseWarning{Line: cur.line, Reason: err.Error()})
		} else {
			tasks = append(tasks, t)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		if line == blockSeparator {
			flush()
			continue
		}

		label, value, ok := splitField(line)
		if !ok {
			if cur != nil {
				warnings = append(warnings, ParseWarning{Line: lineNo, Reason: "unrecognized line ignored"})
			}
			continue
		}

		switch {
		case sameLabel(label, labelWeek):
			flush()
			week = value
		case sameLabel(label, labelArea) || sameLabel(label, "AREA"):
			flush()
			area = value
		case sameLabel(label, labelTitle):
			flush()
			cur = &block{line: lineNo, week: week, area: area, fields: map[string]string{labelTitle: value}}
		case cur != nil:
			for _, known := range []string{labelRequester, labelTeam, labelPriority, labelStatus, labelDelivery} {
				if sameLabel(label, known) {
					cur.fields[known] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("read import: %w", err)
	}
	flush()

	return tasks, warnings, nil
}

func splitField(line string) (label, value string, ok bool) {
	label, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(label), strings.TrimSpace(value), true
}

func sameLabel(got, want string) bool {
	return strings.EqualFold(got, want)
}

func (b *block) task(id string) (models.Task, error) {
	if b.week == "" {
		return models.Task{}, fmt.Errorf("task outside a %s section", labelWeek)
	}
	delivery, err := parseDelivery(b.fields[labelDelivery])
	if err != nil {
		return models.Task{}, err
	}

	t := models.Task{
		ID:           id,
		Title:        b.fields[labelTitle],
		Week:         b.week,
		Area:         models.Area(b.area),
		Responsible:  models.Team(b.fields[labelTeam]),
		Requester:    b.fields[labelRequester],
		Priority:     models.Priority(b.fields[labelPriority]),
		Status:       models.Status(b.fields[labelStatus]),
		DeliveryDate: delivery,
		Comments:     []models.Comment{},
	}
	if err := t.Validate(); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func parseDelivery(value string) (string, error) {
	if value == "" || strings.EqualFold(value, pendingDate) {
		return "", nil
	}
	if d, err := time.Parse(models.DateLayout, value); err == nil {
		return d.Format(models.DateLayout), nil
	}
	if d, err := time.Parse(shortDate, value); err == nil {
		return d.Format(models.DateLayout), nil
	}
	return "", fmt.Errorf("unrecognized delivery date %q", value)
}
