// Package risk implements the optional external risk-scoring
// collaborator: the core analyzer always returns risk=0.0, and a
// Scorer is the only thing that ever overwrites it, only in the
// HTTP server path.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sqlguardian/sqlguardian/analyzer"
)

// Scorer rates the residual risk of a query given the verdict the
// core already produced. A nil Scorer is valid and is never called;
// callers must check for nil rather than relying on a no-op
// implementation, since "no scorer configured" and "scorer declined
// to answer" are different outcomes worth distinguishing in logs.
type Scorer interface {
	Score(ctx context.Context, sql string, verdict analyzer.Verdict) (float64, error)
}

// OpenAIScorer asks an OpenAI-compatible chat-completion model to rate
// a query 0-1 given its verdict's error list. Grounded in the ekaya
// engine's use of github.com/sashabaranov/go-openai.
type OpenAIScorer struct {
	Client  *openai.Client
	Model   string
	Timeout time.Duration
}

// NewOpenAIScorer builds a Scorer from an API key. model defaults to
// "gpt-4o-mini" when empty; timeout defaults to 5 seconds.
func NewOpenAIScorer(apiKey, model string, timeout time.Duration) *OpenAIScorer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OpenAIScorer{Client: openai.NewClient(apiKey), Model: model, Timeout: timeout}
}

func (s *OpenAIScorer) Score(ctx context.Context, sql string, verdict analyzer.Verdict) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	prompt := buildPrompt(sql, verdict)
	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You rate the residual security risk of a SQL query on a scale from 0 to 1. Respond with only the number."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("risk scorer request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("risk scorer returned no choices")
	}
	return parseScore(resp.Choices[0].Message.Content)
}

func buildPrompt(sql string, verdict analyzer.Verdict) string {
	errs, _ := json.Marshal(verdict.Errors)
	var b strings.Builder
	b.WriteString("Query:\n")
	b.WriteString(sql)
	b.WriteString("\n\nPolicy violations found:\n")
	b.Write(errs)
	b.WriteString("\n\nallowed: ")
	b.WriteString(strconv.FormatBool(verdict.Allowed))
	return b.String()
}

func parseScore(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("risk scorer returned a non-numeric score %q: %w", trimmed, err)
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f, nil
}
