package domain

// Candidate is a task-shaped record produced by a connector before
// deduplication, enrichment and persistence.
type Candidate struct {
	Title       string
	Description string
	SourceID    string
	ContextURL  string

	// Slack extension fields; empty for tabular sources.
	SenderName  string
	ChannelName string
	ContextText string
}
