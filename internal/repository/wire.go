package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"genotasks/internal/models"
)

// Namespace is the keyspace root every task lives under.
const Namespace = "genotasks_production_v2_tasks"

// Prefix is the subscription prefix of the task keyspace.
const Prefix = Namespace + "/"

// Key returns the replicated key of task id.
func Key(id string) string { return Prefix + id }

// IDFromKey returns the task id stored at key, or "" when key is outside
// the task keyspace.
func IDFromKey(key string) string {
	id, ok := strings.CutPrefix(key, Prefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// wireTask is the flat record replicated per key. Comments travel as one
// JSON-encoded string so the record stays a flat map of scalars.
type wireTask struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Week         string `json:"week"`
	Area         string `json:"area"`
	Responsible  string `json:"responsible"`
	Requester    string `json:"requester"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	DeliveryDate string `json:"deliveryDate,omitempty"`
	Comments     string `json:"comments"`
}

// DecodeError reports a replicated record that could not be turned back
// into a task.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeTask renders t as its wire record.
func EncodeTask(t models.Task) ([]byte, error) {
	comments := t.Comments
	if comments == nil {
		comments = []models.Comment{}
	}
	encoded, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("encode comments: %w", err)
	}
	return json.Marshal(wireTask{
		ID:           t.ID,
		Title:        t.Title,
		Week:         t.Week,
		Area:         string(t.Area),
		Responsible:  string(t.Responsible),
		Requester:    t.Requester,
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		DeliveryDate: t.DeliveryDate,
		Comments:     string(encoded),
	})
}

// DecodeTask parses the wire record stored at key. The id always comes from
// the key.
func DecodeTask(key string, data []byte) (models.Task, error) {
	id := IDFromKey(key)
	if id == "" {
		return models.Task{}, &DecodeError{Key: key, Err: fmt.Errorf("key outside %s", Namespace)}
	}

	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Task{}, &DecodeError{Key: key, Err: err}
	}

	comments := []models.Comment{}
	if strings.TrimSpace(w.Comments) != "" {
		if err := json.Unmarshal([]byte(w.Comments), &comments); err != nil {
			return models.Task{}, &DecodeError{Key: key, Err: fmt.Errorf("comments: %w", err)}
		}
		if comments == nil {
			comments = []models.Comment{}
		}
	}

	return models.Task{
		ID:           id,
		Title:        w.Title,
		Week:         w.Week,
		Area:         models.Area(w.Area),
		Responsible:  models.Team(w.Responsible),
		Requester:    w.Requester,
		Priority:     models.Priority(w.Priority),
		Status:       models.Status(w.Status),
		DeliveryDate: w.DeliveryDate,
		Comments:     comments,
	}, nil
}
