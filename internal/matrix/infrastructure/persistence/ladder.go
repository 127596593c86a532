// Package persistence implements the task repository for Postgres and the
// local SQLite fallback. Writes and reads go through a bounded column ladder
// so the application keeps working against a store whose schema migration
// has not been applied yet.
package persistence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/database"
)

// columnSet is one rung of the ladder: which optional columns the row shape
// includes on top of the core fields.
type columnSet struct {
	Urgency  bool
	Category bool
	Metadata bool
}

// ladder is the ordered sequence of row shapes, widest first. Each rung drops
// the least essential field still present; the last rung is core fields only.
var ladder = [...]columnSet{
	{Urgency: true, Category: true, Metadata: true},
	{Urgency: true, Category: true},
	{Urgency: true},
	{},
}

// SchemaExhaustedError means every rung of the ladder failed with a schema
// mismatch. The store is missing core columns or the tasks table itself.
type SchemaExhaustedError struct {
	Last error
}

func (e *SchemaExhaustedError) Error() string {
	return fmt.Sprintf("store schema rejected every row shape: %v", e.Last)
}

func (e *SchemaExhaustedError) Unwrap() error {
	return e.Last
}

// runLadder tries each rung in order and stops at the first success. Only a
// schema mismatch steps to the next rung; any other error is surfaced
// unchanged.
func runLadder(attempt func(cols columnSet) error) error {
	var last error
	for _, cols := range ladder {
		err := attempt(cols)
		if err == nil {
			return nil
		}
		if !database.IsSchemaMismatch(err) {
			return err
		}
		last = err
	}
	return &SchemaExhaustedError{Last: last}
}

var coreInsertColumns = []string{
	"id", "title", "description", "source", "source_id",
	"leverage", "effort", "status", "created_at", "updated_at",
	"context_url", "tags",
}

var coreSelectColumns = []string{
	"id", "title", "description", "source", "source_id",
	"leverage", "effort", "status", "created_at", "updated_at",
	"completed_at", "context_url", "tags",
}

// insertColumns returns the column list for this rung, optional columns last.
func (c columnSet) insertColumns() []string {
	cols := make([]string, 0, len(coreInsertColumns)+3)
	cols = append(cols, coreInsertColumns...)
	return c.appendOptional(cols)
}

// selectColumns mirrors insertColumns for the read path, plus completed_at.
func (c columnSet) selectColumns() []string {
	cols := make([]string, 0, len(coreSelectColumns)+3)
	cols = append(cols, coreSelectColumns...)
	return c.appendOptional(cols)
}

func (c columnSet) appendOptional(cols []string) []string {
	if c.Urgency {
		cols = append(cols, "urgency")
	}
	if c.Category {
		cols = append(cols, "category")
	}
	if c.Metadata {
		cols = append(cols, "metadata")
	}
	return cols
}

// insertQuery builds a multi-row INSERT for the given rung.
func insertQuery(cols []string, rows int, driver database.Driver) string {
	var b strings.Builder
	b.WriteString("INSERT INTO tasks (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for i := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			if driver == database.DriverPostgres {
				fmt.Fprintf(&b, "$%d", n)
				n++
			} else {
				b.WriteString("?")
			}
		}
		b.WriteString(")")
	}
	return b.String()
}

// newTaskFromDraft shapes a draft into the row that will be written. IDs are
// assigned client-side so both stores behave identically.
func newTaskFromDraft(d domain.Draft, now time.Time) domain.Task {
	if d.Source == "" {
		d.Source = domain.SourceManual
	}
	if d.Leverage == 0 {
		d.Leverage = 5
	}
	if d.Effort == 0 {
		d.Effort = 5
	}
	if d.Urgency == "" {
		d.Urgency = domain.UrgencyWhenever
	}
	if d.Status == "" {
		d.Status = domain.StatusActive
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return domain.Task{
		ID:          uuid.New(),
		Title:       d.Title,
		Description: d.Description,
		Source:      d.Source,
		SourceID:    d.SourceID,
		Leverage:    d.Leverage,
		Effort:      d.Effort,
		Urgency:     d.Urgency,
		Category:    d.Category,
		Status:      d.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		ContextURL:  d.ContextURL,
		Tags:        d.Tags,
		Metadata:    d.Metadata,
	}
}

// applyDroppedDefaults zeroes the fields a rung did not persist, so the
// returned task matches what a later read would see.
func applyDroppedDefaults(t domain.Task, cols columnSet) domain.Task {
	if !cols.Urgency {
		t.Urgency = domain.UrgencyWhenever
	}
	if !cols.Category {
		t.Category = ""
	}
	if !cols.Metadata {
		t.Metadata = nil
	}
	return t
}

// childCategoryPattern builds the LIKE pattern matching descendants of a
// hierarchical category path, e.g. "work" matches "work > launch".
func childCategoryPattern(category string) string {
	return category + " > %"
}

// nullString maps "" to SQL NULL. source_id in particular must be NULL for
// manual tasks so the uniqueness constraint never collides empty values.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

// encodeMetadata returns NULL for empty metadata.
func encodeMetadata(m domain.Metadata) any {
	if len(m) == 0 {
		return nil
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func decodeMetadata(raw string) domain.Metadata {
	if raw == "" {
		return nil
	}
	var m domain.Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}
