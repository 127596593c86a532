package services

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

type fakeCompleter struct {
	requests []openai.ChatCompletionRequest
	reply    func(req openai.ChatCompletionRequest) (string, error)
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	content, err := f.reply(req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func TestSummaries_Sequential(t *testing.T) {
	fake := &fakeCompleter{reply: func(openai.ChatCompletionRequest) (string, error) {
		return " Review the deploy pipeline. ", nil
	}}
	enricher := NewEnricher(fake, "", nil)

	candidates := []domain.Candidate{
		{SourceID: "slack_1", Title: "can you review", ContextText: "dana: can you review the deploy?"},
		{SourceID: "slack_2", Title: "need the runbook", ContextText: "sam: need the runbook"},
	}

	summaries := enricher.Summaries(context.Background(), candidates)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Review the deploy pipeline.", summaries[0])
	require.Len(t, fake.requests, 2)

	req := fake.requests[0]
	assert.Equal(t, openai.GPT4oMini, req.Model)
	assert.Equal(t, 100, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 0.001)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "dana: can you review the deploy?")
}

func TestSummaries_FailureDegradesToEmpty(t *testing.T) {
	calls := 0
	fake := &fakeCompleter{reply: func(openai.ChatCompletionRequest) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("rate limited")
		}
		return "Summary two.", nil
	}}
	enricher := NewEnricher(fake, "gpt-4o-mini", nil)

	summaries := enricher.Summaries(context.Background(), []domain.Candidate{
		{SourceID: "slack_1", ContextText: "a"},
		{SourceID: "slack_2", ContextText: "b"},
	})
	assert.Equal(t, []string{"", "Summary two."}, summaries)
	assert.Equal(t, 2, calls, "a failing candidate must not stop the batch")
}

func TestSummaries_NoClient(t *testing.T) {
	enricher := NewEnricher(nil, "", nil)
	assert.False(t, enricher.Enabled())

	summaries := enricher.Summaries(context.Background(), []domain.Candidate{{SourceID: "slack_1"}})
	assert.Equal(t, []string{""}, summaries)
}

func TestSummaries_EmptyContextFallsBackToTitle(t *testing.T) {
	fake := &fakeCompleter{reply: func(openai.ChatCompletionRequest) (string, error) {
		return "ok", nil
	}}
	enricher := NewEnricher(fake, "", nil)

	enricher.Summaries(context.Background(), []domain.Candidate{{Title: "just the title?"}})
	require.Len(t, fake.requests, 1)
	assert.Contains(t, fake.requests[0].Messages[0].Content, "just the title?")
}
