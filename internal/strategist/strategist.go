// Package strategist turns intercepted search queries into a content outline
// using a text-generation provider.
package strategist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"

	"github.com/searchintel/searchintel/internal/config"
)

const systemPrompt = "You are an elite SEO strategist. You analyze the real search queries an AI assistant issued for a keyword and design content that covers those intents."

// Strategist generates content outlines from a keyword and the search queries
// intercepted for it.
type Strategist struct {
	cfg    config.StrategyConfig
	logger *slog.Logger
}

// New constructs a Strategist.
func New(cfg config.StrategyConfig, logger *slog.Logger) *Strategist {
	return &Strategist{cfg: cfg, logger: logger}
}

// GenerateOutline produces a markdown content outline for the keyword based
// on the queries the chat backend actually searched for.
func (s *Strategist) GenerateOutline(ctx context.Context, keyword string, queries []string) (string, error) {
	if s.cfg.APIKey == "" {
		return "", fmt.Errorf("strategy API key is not configured")
	}

	prompt := buildPrompt(keyword, queries)

	start := time.Now()
	var (
		outline string
		err     error
	)
	switch s.cfg.Provider {
	case "openai":
		outline, err = s.callOpenAI(ctx, prompt)
	case "anthropic":
		outline, err = s.callAnthropic(ctx, prompt)
	default:
		return "", fmt.Errorf("unsupported provider: %s", s.cfg.Provider)
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("outline generated",
		"provider", s.cfg.Provider,
		"model", s.cfg.Model,
		"keyword", keyword,
		"query_count", len(queries),
		"latency", time.Since(start))

	return strings.TrimSpace(outline), nil
}

func (s *Strategist) callOpenAI(ctx context.Context, prompt string) (string, error) {
	client := openai.NewClient(s.cfg.APIKey)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}

func (s *Strategist) callAnthropic(ctx context.Context, prompt string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(s.cfg.APIKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.cfg.Model),
		MaxTokens:   int64(s.cfg.MaxTokens),
		Temperature: anthropic.Float(float64(s.cfg.Temperature)),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("no response from anthropic")
	}

	return message.Content[0].Text, nil
}

func buildPrompt(keyword string, queries []string) string {
	encoded, _ := json.MarshalIndent(queries, "", "  ")

	return fmt.Sprintf(`I have reverse-engineered ChatGPT's internal search logic for the keyword: "%s".
To answer this request, ChatGPT performed the following REAL search queries (search grounding):
%s

Based on these actual search intents, generate a high-ranking content outline (H2 and H3 structure).

Rules:
1. Analyze why the AI searched for these specific terms.
2. Create a content skeleton that covers these gaps.
3. Return ONLY the content outline in Markdown format.
4. Do not include introductory text.`, keyword, encoded)
}
