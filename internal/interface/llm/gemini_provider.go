package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider calls Google Gemini. The client is created on first use.
type GeminiProvider struct {
	apiKey       string
	defaultModel string
	logger       logger.Logger

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// NewGeminiProvider creates an adapter. An empty apiKey leaves the provider unavailable.
func NewGeminiProvider(apiKey, defaultModel string, logger logger.Logger) *GeminiProvider {
	return &GeminiProvider{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (p *GeminiProvider) Name() string      { return ProviderGemini }
func (p *GeminiProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *GeminiProvider) getClient() (*genai.Client, error) {
	p.once.Do(func() {
		p.client, p.clientErr = genai.NewClient(context.Background(), option.WithAPIKey(p.apiKey))
		if p.clientErr != nil {
			p.clientErr = fmt.Errorf("failed to create Gemini client: %w", p.clientErr)
		}
	})
	return p.client, p.clientErr
}

// Execute generates content with a single prompt
func (p *GeminiProvider) Execute(ctx context.Context, req usecase.GenerationRequest) (*usecase.GenerationResponse, error) {
	client, err := p.getClient()
	if err != nil {
		return nil, err
	}

	modelName := req.Model
	if modelName == "" {
		modelName = p.defaultModel
	}

	model := client.GenerativeModel(modelName)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}

	out := &usecase.GenerationResponse{
		Text:     sb.String(),
		Provider: ProviderGemini,
		Model:    modelName,
	}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// Close releases the underlying client
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
