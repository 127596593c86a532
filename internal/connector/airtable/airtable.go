// Package airtable implements the tabular connector: it pulls records
// assigned to a fixed owner from one Airtable table.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/airrdigital/taskmatrix/internal/connector"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// DefaultBaseURL is the Airtable REST API root.
const DefaultBaseURL = "https://api.airtable.com/v0"

const maxRecords = 100

// titleFields is the ordered list of field names tried for a record's title.
var titleFields = []string{"Name", "Task", "Title", "Task Name", "Summary"}

// descriptionFields is the ordered list tried for free-text notes.
var descriptionFields = []string{"Description", "Notes", "Details"}

// dueDateFields is the ordered list tried for a due date.
var dueDateFields = []string{"Due Date", "Due", "Deadline"}

// Config configures the Airtable connector.
type Config struct {
	// APIKey and BaseID are required; either missing is a configuration error.
	APIKey string
	BaseID string
	// TableName is the table queried, default "Tasks".
	TableName string
	// AssigneeField and AssigneeValue select the owner's records.
	AssigneeField string
	AssigneeValue string
	// BaseURL overrides the API root, for tests.
	BaseURL string
}

// Connector fetches the owner's records as task candidates.
type Connector struct {
	cfg    Config
	http   connector.Doer
	logger *slog.Logger
}

// New creates an Airtable connector. The client should already carry the
// bearer token.
func New(cfg Config, client connector.Doer, logger *slog.Logger) *Connector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TableName == "" {
		cfg.TableName = "Tasks"
	}
	if cfg.AssigneeField == "" {
		cfg.AssigneeField = "Assignee"
	}
	if cfg.AssigneeValue == "" {
		cfg.AssigneeValue = "Roshan"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{cfg: cfg, http: client, logger: logger}
}

// Source identifies tasks built from this connector.
func (c *Connector) Source() domain.Source {
	return domain.SourceAirtable
}

type listResponse struct {
	Records []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

// Fetch queries the table and shapes each record into a candidate.
func (c *Connector) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	if c.cfg.APIKey == "" || c.cfg.BaseID == "" {
		return nil, &connector.ConfigError{Reason: "AIRTABLE_API_KEY or AIRTABLE_BASE_ID not set"}
	}

	formula := fmt.Sprintf(`SEARCH("%s", {%s}) > 0`, c.cfg.AssigneeValue, c.cfg.AssigneeField)
	endpoint := fmt.Sprintf("%s/%s/%s?filterByFormula=%s&maxRecords=%d",
		c.cfg.BaseURL, c.cfg.BaseID, url.PathEscape(c.cfg.TableName), url.QueryEscape(formula), maxRecords)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &connector.UpstreamError{Service: "airtable", Detail: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &connector.UpstreamError{Service: "airtable", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &connector.UpstreamError{Service: "airtable", Status: resp.StatusCode, Detail: string(body)}
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &connector.UpstreamError{Service: "airtable", Detail: "decoding response: " + err.Error()}
	}

	contextURL := "https://airtable.com/" + c.cfg.BaseID

	var candidates []domain.Candidate
	for _, record := range list.Records {
		title := resolveTitle(record.Fields)
		if title == "" {
			continue
		}

		title, label := splitCompositeTitle(title)
		description := buildDescription(label, record.Fields)

		candidates = append(candidates, domain.Candidate{
			Title:       domain.Truncate(title, domain.TitleMaxLen),
			Description: domain.Truncate(description, domain.DescriptionMaxLen),
			SourceID:    "airtable_" + record.ID,
			ContextURL:  contextURL,
		})
	}

	return candidates, nil
}

// resolveTitle tries the known title fields in order, then falls back to the
// first string-valued field by name order.
func resolveTitle(fields map[string]any) string {
	for _, name := range titleFields {
		if s := stringValue(fields[name]); s != "" {
			return s
		}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if s := stringValue(fields[name]); s != "" {
			return s
		}
	}
	return ""
}

// splitCompositeTitle handles the "Client | Task | Detail" convention: the
// first segment is a client/context label folded into the description, the
// rest stays as the title.
func splitCompositeTitle(title string) (string, string) {
	parts := strings.Split(title, " | ")
	if len(parts) < 2 {
		return title, ""
	}
	return strings.Join(parts[1:], " | "), strings.TrimSpace(parts[0])
}

// buildDescription joins the client label, due date and notes with a middle
// dot.
func buildDescription(label string, fields map[string]any) string {
	var parts []string
	if label != "" {
		parts = append(parts, label)
	}
	for _, name := range dueDateFields {
		if s := stringValue(fields[name]); s != "" {
			parts = append(parts, "Due "+s)
			break
		}
	}
	for _, name := range descriptionFields {
		if s := stringValue(fields[name]); s != "" {
			parts = append(parts, s)
			break
		}
	}
	return strings.Join(parts, " · ")
}

// stringValue renders an Airtable field value as text. Linked-record and
// multi-select arrays join with a middle dot; non-text values are skipped.
func stringValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case []any:
		var parts []string
		for _, item := range value {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, " · ")
	default:
		return ""
	}
}
