package provider

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for the hosted OpenAI API
type OpenAIProvider struct {
	*BaseProvider
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(host, apiKey string) *OpenAIProvider {
	base := NewBaseProvider(TypeOpenAI, host, apiKey)
	base.info.SupportsTools = true
	return &OpenAIProvider{BaseProvider: base}
}

// Info returns provider metadata
func (p *OpenAIProvider) Info() *Info {
	return p.BaseProvider.Info()
}

// DetectModels queries available models from the API
func (p *OpenAIProvider) DetectModels(ctx context.Context) ([]string, error) {
	return p.DetectModelsOpenAI(ctx)
}

// CreateClient returns an OpenAI-compatible client
func (p *OpenAIProvider) CreateClient() *openai.Client {
	return p.BaseProvider.CreateClient()
}

// SetModel sets the active model
func (p *OpenAIProvider) SetModel(model string) {
	p.BaseProvider.SetModel(model)
}
