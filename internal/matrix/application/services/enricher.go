package services

import (
	"context"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

const (
	enrichMaxTokens   = 100
	enrichTemperature = 0.3
)

// ChatCompleter is the slice of the OpenAI client the enricher uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Enricher attaches a short AI summary of the requested action to each
// candidate. Every failure degrades to "no summary"; enrichment never aborts
// or delays the rest of the batch.
type Enricher struct {
	client ChatCompleter
	model  string
	logger *slog.Logger
}

// NewEnricher creates an enricher. A nil client disables enrichment.
func NewEnricher(client ChatCompleter, model string, logger *slog.Logger) *Enricher {
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{client: client, model: model, logger: logger}
}

// Enabled reports whether a summarizer is configured.
func (e *Enricher) Enabled() bool {
	return e.client != nil
}

// Summaries produces one summary per candidate, sequentially to bound load on
// the summarizer. The returned slice is index-aligned with the input; a
// failed candidate gets "".
func (e *Enricher) Summaries(ctx context.Context, candidates []domain.Candidate) []string {
	summaries := make([]string, len(candidates))
	if e.client == nil {
		return summaries
	}

	for i, candidate := range candidates {
		summary, err := e.summarize(ctx, candidate)
		if err != nil {
			e.logger.Debug("enrichment failed for candidate",
				slog.String("source_id", candidate.SourceID),
				slog.String("error", err.Error()))
			continue
		}
		summaries[i] = summary
	}
	return summaries
}

func (e *Enricher) summarize(ctx context.Context, candidate domain.Candidate) (string, error) {
	contextText := candidate.ContextText
	if contextText == "" {
		contextText = candidate.Title
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   enrichMaxTokens,
		Temperature: enrichTemperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				Content: "In 1-2 sentences, explain what task or action is being requested in this Slack message. " +
					"Be specific and concrete.\n\nMessage:\n" + contextText,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
