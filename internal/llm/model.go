// Package llm provides LLM and embedding services using langchaingo.
package llm

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/raphaelgruber/ragweb/internal/config"
	"github.com/raphaelgruber/ragweb/internal/models"
)

// ChatMessage is one prior turn half handed to the model as history.
type ChatMessage struct {
	Role    string // models.RoleUser or models.RoleAssistant
	Content string
}

// StreamFunc receives successive answer fragments. A nil StreamFunc means
// the call is synchronous and returns the full answer atomically.
type StreamFunc func(fragment string) error

// Model wraps a langchaingo LLM for answer generation.
type Model struct {
	llm         llms.Model
	modelName   string
	temperature float64
	maxTokens   int
	language    string
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awscfg, awsErr := awsconfig.LoadDefaultConfig(context.Background())
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awscfg)
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:         model,
		modelName:   cfg.LLMModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		language:    cfg.ResponseLanguage,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// GenerateDirect answers a question without retrieval context.
func (m *Model) GenerateDirect(ctx context.Context, history []ChatMessage, question string, stream StreamFunc) (string, error) {
	systemPrompt := fmt.Sprintf(`You are a helpful AI assistant. Respond clearly and helpfully in %s.
If knowledge scraped from web pages is available, use it; otherwise answer from your general knowledge.`, m.language)

	return m.generate(ctx, systemPrompt, history, question, stream)
}

// GenerateGrounded answers a question using retrieved chunk texts as
// grounding context. The context travels in the system prompt; history and
// question are passed as alternating conversation turns.
func (m *Model) GenerateGrounded(ctx context.Context, history []ChatMessage, contexts []string, question string, stream StreamFunc) (string, error) {
	systemPrompt := fmt.Sprintf(`You are a helpful AI assistant. Answer the user's question in %s, based on the provided context from scraped web pages.
If the context doesn't contain enough information to answer the question, say so.

Context:
%s`, m.language, strings.Join(contexts, "\n---\n"))

	return m.generate(ctx, systemPrompt, history, question, stream)
}

func (m *Model) generate(ctx context.Context, systemPrompt string, history []ChatMessage, question string, stream StreamFunc) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))

	opts := []llms.CallOption{
		llms.WithTemperature(m.temperature),
		llms.WithMaxTokens(m.maxTokens),
	}
	if stream != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return stream(string(chunk))
		}))
	}

	response, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}
