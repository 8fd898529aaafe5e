package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient wraps genai.Client behind GenerativeClient.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini API client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// GenerateContent implements GenerativeClient by delegating to genai.
func (c *GeminiClient) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	genaiContents := make([]*genai.Content, len(contents))
	for i, content := range contents {
		parts := make([]*genai.Part, len(content.Parts))
		for j, part := range content.Parts {
			parts[j] = &genai.Part{Text: part.Text}
		}
		genaiContents[i] = &genai.Content{Parts: parts}
	}

	var genaiConfig *genai.GenerateContentConfig
	if config != nil {
		genaiConfig = &genai.GenerateContentConfig{
			Temperature:      config.Temperature,
			ResponseMIMEType: config.ResponseMIMEType,
			ResponseSchema:   convertSchema(config.ResponseSchema),
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, model, genaiContents, genaiConfig)
	if err != nil {
		return nil, providerError("gemini", err)
	}

	return &GenerateContentResponse{Text: result.Text()}, nil
}

func convertSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{
		Type:             genai.Type(s.Type),
		Description:      s.Description,
		Required:         s.Required,
		PropertyOrdering: s.PropertyOrdering,
	}
	if s.Properties != nil {
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			gs.Properties[name] = convertSchema(prop)
		}
	}
	if s.Items != nil {
		gs.Items = convertSchema(s.Items)
	}
	return gs
}

var _ GenerativeClient = (*GeminiClient)(nil)
