package llm

import (
	"context"
	"fmt"
	"time"

	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider names as they appear in the model catalog
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// OpenAIProvider calls any OpenAI-compatible chat completions endpoint.
// OpenRouter is served by the same adapter with a different base URL.
type OpenAIProvider struct {
	name         string
	apiKey       string
	defaultModel string
	client       openai.Client
	logger       logger.Logger
}

// NewOpenAIProvider creates an adapter. An empty apiKey leaves the provider unavailable.
func NewOpenAIProvider(name, apiKey, baseURL, defaultModel string, timeout time.Duration, logger logger.Logger) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		client:       openai.NewClient(opts...),
		logger:       logger,
	}
}

func (p *OpenAIProvider) Name() string      { return p.name }
func (p *OpenAIProvider) IsAvailable() bool { return p.apiKey != "" }

// Execute sends one chat completion
func (p *OpenAIProvider) Execute(ctx context.Context, req usecase.GenerationRequest) (*usecase.GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	p.logger.Debug("Chat completion finished",
		"provider", p.name,
		"model", resp.Model,
		"operation", req.Operation,
		"finishReason", resp.Choices[0].FinishReason)

	return &usecase.GenerationResponse{
		Text:      resp.Choices[0].Message.Content,
		Provider:  p.name,
		Model:     model,
		TokensIn:  int(resp.Usage.PromptTokens),
		TokensOut: int(resp.Usage.CompletionTokens),
	}, nil
}
