package summarize

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/user/stashd/internal/config"
)

// Summarizer generates a short summary of a bookmark's enriched content
// using the configured LLM provider.
type Summarizer struct {
	cfg *config.Config
}

func NewSummarizer(cfg *config.Config) *Summarizer {
	return &Summarizer{cfg: cfg}
}

const defaultSummaryPrompt = `Summarize this saved bookmark in 2-3 sentences.
Focus on what the content is about and why someone might have saved it.

Content:
%s`

func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	// Truncate content for the LLM
	const maxContentLen = 10000
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}

	promptTemplate := s.cfg.LLM.SummaryPrompt
	if promptTemplate == "" {
		promptTemplate = defaultSummaryPrompt
	}
	prompt := fmt.Sprintf(promptTemplate, content)

	var response string
	var err error

	switch s.cfg.LLM.Provider {
	case "anthropic":
		response, err = s.summarizeWithAnthropic(ctx, prompt)
	case "openai", "openrouter":
		response, err = s.summarizeWithOpenAI(ctx, prompt)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", s.cfg.LLM.Provider)
	}

	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func (s *Summarizer) summarizeWithAnthropic(ctx context.Context, prompt string) (string, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	client := anthropic.NewClient(apiKey)

	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(s.cfg.LLM.Model),
		MaxTokens: 500,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
			},
		},
	})

	if err != nil {
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	return resp.Content[0].GetText(), nil
}

func (s *Summarizer) summarizeWithOpenAI(ctx context.Context, prompt string) (string, error) {
	var apiKey string
	var baseURL string

	if s.cfg.LLM.Provider == "openrouter" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
		baseURL = s.cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
	} else {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return "", fmt.Errorf("API key not set for provider %s", s.cfg.LLM.Provider)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.cfg.LLM.Model,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})

	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
