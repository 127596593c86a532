// Package domain holds the task model shared by the import pipeline,
// the priority engine, and the persistence layer.
package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle   = errors.New("task title cannot be empty")
	ErrTaskNotFound = errors.New("task not found")
)

const (
	// TitleMaxLen is the persisted title limit.
	TitleMaxLen = 200
	// DescriptionMaxLen is the persisted description limit.
	DescriptionMaxLen = 500
)

// Source identifies the origin system of a task.
type Source string

const (
	SourceManual   Source = "manual"
	SourceSlack    Source = "slack"
	SourceAirtable Source = "airtable"
)

// Status represents the task lifecycle state. Tasks leave the board through a
// status transition, never through a pipeline delete.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusKilled    Status = "killed"
	StatusArchived  Status = "archived"
)

// IsValid returns true for a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusKilled, StatusArchived:
		return true
	default:
		return false
	}
}

// Urgency is the coarse deadline bucket used as the primary sort key.
type Urgency string

const (
	UrgencyToday    Urgency = "today"
	UrgencyThisWeek Urgency = "this_week"
	UrgencyWhenever Urgency = "whenever"
)

// Rank returns the sort rank for the urgency bucket; lower sorts first.
// Unknown values rank with "whenever".
func (u Urgency) Rank() int {
	switch u {
	case UrgencyToday:
		return 0
	case UrgencyThisWeek:
		return 1
	default:
		return 2
	}
}

// Metadata is source-specific extension data stored with a task. It may be
// entirely absent when the store's schema does not yet support it.
type Metadata map[string]string

// MarshalJSON ensures metadata is encoded as a JSON object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string(m))
}

// UnmarshalJSON decodes metadata JSON.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	values := map[string]string{}
	if err := json.Unmarshal(b, &values); err != nil {
		return err
	}
	*m = values
	return nil
}

// Task is the persisted entity.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Source      Source     `json:"source"`
	SourceID    string     `json:"source_id,omitempty"`
	Leverage    int        `json:"leverage"`
	Effort      int        `json:"effort"`
	Urgency     Urgency    `json:"urgency"`
	Category    string     `json:"category,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ContextURL  string     `json:"context_url,omitempty"`
	Tags        []string   `json:"tags"`
	Metadata    Metadata   `json:"metadata,omitempty"`
}

// Draft is a fully-shaped row awaiting persistence. Leverage, effort, urgency
// and status carry their documented defaults when built through NewDraft.
type Draft struct {
	Title       string
	Description string
	Source      Source
	SourceID    string
	Leverage    int
	Effort      int
	Urgency     Urgency
	Category    string
	Status      Status
	ContextURL  string
	Tags        []string
	Metadata    Metadata
}

// NewDraft builds a draft with the create-contract defaults: leverage and
// effort 5 when unset, urgency "whenever", status forced to active. The
// leverage/effort [1,10] domain is documented but not enforced here; callers
// own validation.
func NewDraft(title string) (Draft, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Draft{}, ErrEmptyTitle
	}
	return Draft{
		Title:    Truncate(title, TitleMaxLen),
		Source:   SourceManual,
		Leverage: 5,
		Effort:   5,
		Urgency:  UrgencyWhenever,
		Status:   StatusActive,
		Tags:     []string{},
	}, nil
}

// Truncate caps s at max bytes of visible text, by rune, preserving whole runes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
