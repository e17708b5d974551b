// Package board turns user intents (create, change status or priority,
// comment, delete, import, export) into writes on the replicated store.
// Reads go through the repository, so every write is observed again when
// the store echoes it back.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"genotasks/internal/interchange"
	"genotasks/internal/models"
	"genotasks/internal/query"
	"genotasks/internal/quota"
	"genotasks/internal/replica"
	"genotasks/internal/repository"
)

var (
	ErrNotFound        = errors.New("task not found")
	ErrForbidden       = errors.New("role not allowed")
	ErrQuotaExceeded   = errors.New("priority quota exceeded")
	ErrNothingImported = errors.New("no valid tasks found")
	ErrInvalidTask     = models.ErrInvalidTask
)

// QuotaError carries the quota decision that rejected a priority change.
type QuotaError struct {
	Decision quota.Decision
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQuotaExceeded, e.Decision.Reason)
}

func (e *QuotaError) Is(target error) bool { return target == ErrQuotaExceeded }

// Service applies intents against one replica.
type Service struct {
	store  replica.Store
	repo   *repository.Repository
	quota  *quota.Engine
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// New returns a service writing to store and reading from repo.
func New(store replica.Store, repo *repository.Repository, engine *quota.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = quota.New(nil)
	}
	return &Service{
		store:  store,
		repo:   repo,
		quota:  engine,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Repository returns the view the service reads from.
func (s *Service) Repository() *repository.Repository { return s.repo }

// CurrentWeek returns the week label of today.
func (s *Service) CurrentWeek() string { return models.WeekOf(s.now()) }

// Tasks returns the tasks matching f in display order.
func (s *Service) Tasks(f query.Filter) []models.Task {
	return query.Apply(s.repo.Snapshot(), f)
}

// Weeks returns the week labels present on the board, most recent first.
func (s *Service) Weeks() []string {
	return query.Weeks(s.repo.Snapshot())
}

// Get returns the task with the given id.
func (s *Service) Get(id string) (models.Task, error) {
	t, ok := s.repo.Get(id)
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// Create broadcasts a new task. The id is always assigned here; missing
// week, status, priority and requester get board defaults. A task created at
// a capped priority tier is checked against the quota like an escalation.
func (s *Service) Create(ctx context.Context, t models.Task) (models.Task, error) {
	t.ID = s.newID()
	t.Title = strings.TrimSpace(t.Title)
	t.Requester = strings.TrimSpace(t.Requester)
	if t.Week == "" {
		t.Week = s.CurrentWeek()
	}
	if t.Requester == "" {
		t.Requester = models.PendingRequester
	}
	if t.Status == "" {
		t.Status = models.StatusActive
	}
	if t.Priority == "" {
		t.Priority = models.PriorityLow
	}
	t = t.WithStatus(t.Status)
	if t.Comments == nil {
		t.Comments = []models.Comment{}
	}
	if err := t.Validate(); err != nil {
		return models.Task{}, err
	}

	if !t.Completed() {
		if err := s.checkQuota(t, t.Priority); err != nil {
			return models.Task{}, err
		}
	}

	if err := s.save(ctx, t); err != nil {
		return models.Task{}, err
	}
	s.logger.Info("task created", slog.String("id", t.ID), slog.String("week", t.Week))
	return t, nil
}

// UpdateStatus moves a task to status. Completing a task drops its priority
// to Baja without a quota check.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.Status) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, status)
	}
	t, err := s.Get(id)
	if err != nil {
		return models.Task{}, err
	}
	t = t.WithStatus(status)
	if err := s.save(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// UpdatePriority changes the priority of a task. Only the Head role may do
// it; escalations are checked against the quota, downgrades never are.
// Completed tasks stay at Baja.
func (s *Service) UpdatePriority(ctx context.Context, role models.Role, id string, priority models.Priority) (models.Task, error) {
	if role != models.RoleHead {
		return models.Task{}, fmt.Errorf("%w: %s cannot change priority", ErrForbidden, role)
	}
	if !priority.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, priority)
	}
	t, err := s.Get(id)
	if err != nil {
		return models.Task{}, err
	}
	if t.Completed() && priority != models.PriorityLow {
		return models.Task{}, fmt.Errorf("%w: completed task %s stays at %s", ErrInvalidTask, id, models.PriorityLow)
	}
	if priority.Rank() > t.Priority.Rank() {
		if err := s.checkQuota(t, priority); err != nil {
			return models.Task{}, err
		}
	}
	t.Priority = priority
	if err := s.save(ctx, t); err != nil {
		return models.Task{}, err
	}
	s.logger.Info("task priority changed",
		slog.String("id", id),
		slog.String("priority", string(priority)),
	)
	return t, nil
}

// AddComment appends a comment to a task.
func (s *Service) AddComment(ctx context.Context, id, author, text string) (models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Task{}, fmt.Errorf("%w: empty comment", ErrInvalidTask)
	}
	t, err := s.Get(id)
	if err != nil {
		return models.Task{}, err
	}
	t.Comments = append(t.Comments, models.Comment{
		Author:    strings.TrimSpace(author),
		Text:      text,
		Timestamp: s.now().UTC(),
	})
	if err := s.save(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Delete broadcasts a tombstone for a task. Only the Head role may delete.
func (s *Service) Delete(ctx context.Context, role models.Role, id string) error {
	if role != models.RoleHead {
		return fmt.Errorf("%w: %s cannot delete tasks", ErrForbidden, role)
	}
	if _, err := s.Get(id); err != nil {
		return err
	}
	if _, err := s.store.Put(ctx, repository.Key(id), nil); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	s.logger.Info("task deleted", slog.String("id", id))
	return nil
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	Tasks    []models.Task              `json:"tasks"`
	Warnings []interchange.ParseWarning `json:"warnings"`
}

// Import parses an export document and broadcasts every valid task under a
// fresh id. Nothing is written when no valid task is found.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	parser := interchange.Parser{NewID: s.newID}
	tasks, warnings, err := parser.Parse(r)
	if err != nil {
		return ImportResult{}, err
	}
	for _, w := range warnings {
		s.logger.Debug("import block skipped", slog.Int("line", w.Line), slog.String("reason", w.Reason))
	}
	result := ImportResult{Tasks: tasks, Warnings: warnings}
	if len(tasks) == 0 {
		return result, ErrNothingImported
	}

	for _, t := range tasks {
		if err := s.save(ctx, t); err != nil {
			return result, err
		}
	}
	s.logger.Info("tasks imported", slog.Int("count", len(tasks)), slog.Int("skipped", len(warnings)))
	return result, nil
}

// Export renders the tasks of week and the file name to save them under.
func (s *Service) Export(week string) (filename, body string, err error) {
	body, err = interchange.Export(week, s.repo.Snapshot())
	if err != nil {
		return "", "", err
	}
	return interchange.Filename(strings.TrimSpace(week)), body, nil
}

func (s *Service) checkQuota(t models.Task, requested models.Priority) error {
	d := s.quota.Check(s.repo.Snapshot(), t.Week, t.Responsible, t.Area, requested, t.ID)
	if !d.Allowed {
		s.logger.Info("priority change rejected",
			slog.String("id", t.ID),
			slog.String("reason", d.Reason),
		)
		return &QuotaError{Decision: d}
	}
	return nil
}

func (s *Service) save(ctx context.Context, t models.Task) error {
	data, err := repository.EncodeTask(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	if _, err := s.store.Put(ctx, repository.Key(t.ID), data); err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}
