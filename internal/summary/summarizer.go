// Package summary is the AI-summary collaborator. It reads records
// through the registry and writes summaries back through it; the
// retrieval core never calls in here.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/casepulse/casepulse/internal/config"
	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/internal/metrics"
	"github.com/casepulse/casepulse/internal/registry"
	"github.com/casepulse/casepulse/pkg/logger"
)

// Summarizer generates case summaries through the OpenAI chat API.
type Summarizer struct {
	client   *openai.Client
	model    string
	registry *registry.Registry
	log      *logger.Logger
}

func New(cfg *config.Config, reg *registry.Registry, log *logger.Logger) *Summarizer {
	s := &Summarizer{
		model:    cfg.OpenAIModel,
		registry: reg,
		log:      log,
	}
	if cfg.OpenAIAPIKey != "" {
		s.client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	if s.model == "" {
		s.model = openai.GPT4oMini
	}
	return s
}

// Enabled reports whether an API key was configured.
func (s *Summarizer) Enabled() bool {
	return s.client != nil
}

// Generate fetches a case, summarizes it and attaches the result.
func (s *Summarizer) Generate(ctx context.Context, caseID uint) (string, error) {
	record, err := s.registry.Get(caseID)
	if err != nil {
		return "", err
	}

	text, err := s.Summarize(ctx, record)
	if err != nil {
		metrics.ObserveSummary("error")
		return "", err
	}

	if err := s.registry.AttachSummary(caseID, text); err != nil {
		metrics.ObserveSummary("error")
		return "", err
	}

	metrics.ObserveSummary("ok")
	return text, nil
}

// GenerateAsync runs Generate in the background, logging failures.
// Fire-and-forget from the caller's perspective.
func (s *Summarizer) GenerateAsync(caseID uint) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if _, err := s.Generate(ctx, caseID); err != nil {
			s.log.Warn("Background summary generation failed", "case_id", caseID, "error", err)
		}
	}()
}

// Summarize produces a plain-language summary of one case record.
func (s *Summarizer) Summarize(ctx context.Context, record *database.Case) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("summarizer is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize Indian court case records for laypeople. Be factual, cite only the provided data, and keep it under 200 words.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(record),
			},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary generation returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt renders a case record into the summarization prompt.
func BuildPrompt(record *database.Case) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Summarize this court case.\n\n")
	fmt.Fprintf(&b, "Case number: %s\n", record.CaseNumber)
	fmt.Fprintf(&b, "Court: %s\n", record.Court)
	fmt.Fprintf(&b, "Type: %s\n", record.CaseType)
	fmt.Fprintf(&b, "Status: %s\n", record.Status)
	if record.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", record.Title)
	}
	if !record.FilingDate.IsZero() {
		fmt.Fprintf(&b, "Filed: %s\n", record.FilingDate.Format("2006-01-02"))
	}
	if !record.NextHearing.IsZero() {
		fmt.Fprintf(&b, "Next hearing: %s\n", record.NextHearing.Format("2006-01-02"))
	}
	if record.Judge != "" {
		fmt.Fprintf(&b, "Judge: %s\n", record.Judge)
	}

	for _, p := range record.Parties {
		fmt.Fprintf(&b, "%s: %s\n", p.Role, p.Name)
	}

	if len(record.Orders) > 0 {
		fmt.Fprintf(&b, "\nOrders (chronological):\n")
		for _, o := range record.Orders {
			fmt.Fprintf(&b, "- %s: %s\n", o.OrderDate.Format("2006-01-02"), o.Description)
		}
	}

	if record.DataSource == database.DataSourceDemo {
		fmt.Fprintf(&b, "\nNote: this record comes from a demo dataset, not a live court source. Say so in the summary.\n")
	}

	return b.String()
}
