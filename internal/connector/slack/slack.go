// Package slack implements the stream connector: it scans recent channel
// history and admits messages that look actionable.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airrdigital/taskmatrix/internal/connector"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

const titleLimit = 120

// actionablePhrases admit a message into the candidate set when any of them
// appears in its lower-cased text.
var actionablePhrases = []string{
	"?", "can you", "please", "could you", "need", "asap", "urgent", "todo", "follow up",
}

// Config configures the Slack connector.
type Config struct {
	// Token is the bot or user token. Empty is a configuration error.
	Token string
	// Workspace is the expected workspace-name substring; a mismatch is
	// logged, not fatal.
	Workspace string
	// Lookback bounds how far channel history is scanned.
	Lookback time.Duration
	// PageLimit is the per-channel history page size.
	PageLimit int
	// BaseURL overrides the API root, for tests.
	BaseURL string
}

// Connector fetches actionable messages from all channels the integration is
// a member of.
type Connector struct {
	cfg    Config
	http   connector.Doer
	users  *UserCache
	logger *slog.Logger
}

// New creates a Slack connector. The client should already carry the bearer
// token (oauth2 static token client wrapped in a breaker); users may be nil.
func New(cfg Config, client connector.Doer, users *UserCache, logger *slog.Logger) *Connector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{cfg: cfg, http: client, users: users, logger: logger}
}

// Source identifies tasks built from this connector.
func (c *Connector) Source() domain.Source {
	return domain.SourceSlack
}

type authTestResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Team  string `json:"team"`
}

type usersListResponse struct {
	OK      bool `json:"ok"`
	Members []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		RealName string `json:"real_name"`
		Profile  struct {
			DisplayName string `json:"display_name"`
		} `json:"profile"`
	} `json:"members"`
}

type channelsResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Channels []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsMember bool   `json:"is_member"`
	} `json:"channels"`
}

type message struct {
	TS      string `json:"ts"`
	Text    string `json:"text"`
	User    string `json:"user"`
	BotID   string `json:"bot_id"`
	Subtype string `json:"subtype"`
}

type historyResponse struct {
	OK       bool      `json:"ok"`
	Error    string    `json:"error"`
	Messages []message `json:"messages"`
}

// Fetch scans channel history over the lookback window and returns the
// actionable messages as candidates.
func (c *Connector) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	if c.cfg.Token == "" {
		return nil, &connector.ConfigError{Reason: "SLACK_BOT_TOKEN or SLACK_USER_TOKEN not set"}
	}

	if err := c.verifyWorkspace(ctx); err != nil {
		return nil, err
	}

	userMap := c.fetchUsers(ctx)

	var channels channelsResponse
	if err := c.get(ctx, "conversations.list", url.Values{
		"types": {"public_channel,private_channel"},
		"limit": {"100"},
	}, &channels); err != nil {
		return nil, err
	}
	if !channels.OK {
		return nil, &connector.UpstreamError{Service: "slack", Detail: "conversations.list: " + channels.Error}
	}

	cutoff := float64(time.Now().Add(-c.cfg.Lookback).Unix())

	var candidates []domain.Candidate
	for _, channel := range channels.Channels {
		if !channel.IsMember {
			continue
		}
		channelName := channel.Name
		if channelName == "" {
			channelName = channel.ID
		}

		var history historyResponse
		err := c.get(ctx, "conversations.history", url.Values{
			"channel": {channel.ID},
			"oldest":  {strconv.FormatFloat(cutoff, 'f', 6, 64)},
			"limit":   {strconv.Itoa(c.cfg.PageLimit)},
		}, &history)
		if err != nil || !history.OK {
			// A single channel failing does not abort the import.
			c.logger.Debug("skipping channel history",
				slog.String("channel", channelName),
				slog.String("error", history.Error))
			continue
		}

		for _, msg := range history.Messages {
			if msg.BotID != "" || msg.Text == "" || msg.Subtype != "" {
				continue
			}
			if !isActionable(msg.Text) {
				continue
			}
			candidates = append(candidates, c.buildCandidate(channel.ID, channelName, msg, history.Messages, userMap))
		}
	}

	return candidates, nil
}

// verifyWorkspace confirms the token works and warns when it is connected to
// an unexpected workspace.
func (c *Connector) verifyWorkspace(ctx context.Context) error {
	var auth authTestResponse
	if err := c.get(ctx, "auth.test", nil, &auth); err != nil {
		return err
	}
	if !auth.OK {
		return &connector.UpstreamError{Service: "slack", Detail: "auth failed: " + auth.Error}
	}
	if c.cfg.Workspace != "" &&
		!strings.Contains(strings.ToLower(auth.Team), strings.ToLower(c.cfg.Workspace)) {
		c.logger.Warn("connected to unexpected Slack workspace",
			slog.String("workspace", auth.Team),
			slog.String("expected", c.cfg.Workspace))
	}
	return nil
}

// fetchUsers builds the user ID to display name map, consulting the cache
// first. A failed users.list degrades to raw IDs, never aborts.
func (c *Connector) fetchUsers(ctx context.Context) map[string]string {
	if c.users != nil {
		if cached, ok := c.users.Get(ctx); ok {
			return cached
		}
	}

	var users usersListResponse
	if err := c.get(ctx, "users.list", url.Values{"limit": {"200"}}, &users); err != nil || !users.OK {
		c.logger.Debug("users.list unavailable, sender names degrade to IDs")
		return map[string]string{}
	}

	userMap := make(map[string]string, len(users.Members))
	for _, member := range users.Members {
		name := member.Profile.DisplayName
		if name == "" {
			name = member.RealName
		}
		if name == "" {
			name = member.Name
		}
		if name == "" {
			name = member.ID
		}
		userMap[member.ID] = name
	}

	if c.users != nil {
		c.users.Set(ctx, userMap)
	}
	return userMap
}

func (c *Connector) buildCandidate(channelID, channelName string, msg message, all []message, users map[string]string) domain.Candidate {
	title := strings.ReplaceAll(domain.Truncate(msg.Text, titleLimit), "\n", " ")
	description := ""
	if len([]rune(msg.Text)) > titleLimit {
		description = msg.Text
	}

	return domain.Candidate{
		Title:       title,
		Description: description,
		SourceID:    "slack_" + msg.TS,
		ContextURL:  fmt.Sprintf("https://slack.com/archives/%s/p%s", channelID, strings.ReplaceAll(msg.TS, ".", "")),
		SenderName:  senderName(msg, users),
		ChannelName: channelName,
		ContextText: contextWindow(msg, all, users),
	}
}

// contextWindow gathers up to 4 non-bot messages around the anchor, within
// [ts-120s, ts+30s], rendered as "<sender>: <text>" lines in chronological
// order. Falls back to the anchor's own text when the window is empty.
func contextWindow(anchor message, all []message, users map[string]string) string {
	anchorTS, err := strconv.ParseFloat(anchor.TS, 64)
	if err != nil {
		return anchor.Text
	}

	type stamped struct {
		ts   float64
		line string
	}
	var window []stamped
	for _, m := range all {
		if m.BotID != "" || m.Text == "" {
			continue
		}
		ts, err := strconv.ParseFloat(m.TS, 64)
		if err != nil {
			continue
		}
		if ts < anchorTS-120 || ts > anchorTS+30 {
			continue
		}
		window = append(window, stamped{ts: ts, line: senderName(m, users) + ": " + m.Text})
		if len(window) == 4 {
			break
		}
	}
	if len(window) == 0 {
		return anchor.Text
	}

	// History arrives newest first; the window reads top down.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	lines := make([]string, len(window))
	for i, s := range window {
		lines[i] = s.line
	}
	return strings.Join(lines, "\n")
}

func senderName(m message, users map[string]string) string {
	if m.User == "" {
		return "Unknown"
	}
	if name, ok := users[m.User]; ok {
		return name
	}
	return m.User
}

func isActionable(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range actionablePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// get issues a GET against a Web API method and decodes the JSON envelope.
func (c *Connector) get(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := c.cfg.BaseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &connector.UpstreamError{Service: "slack", Detail: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &connector.UpstreamError{Service: "slack", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &connector.UpstreamError{Service: "slack", Status: resp.StatusCode, Detail: method}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &connector.UpstreamError{Service: "slack", Detail: "decoding " + method + ": " + err.Error()}
	}
	return nil
}
