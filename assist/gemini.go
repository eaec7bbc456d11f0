package assist

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

var _ Model = (*Gemini)(nil)

// Gemini is a Model backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini model client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("assist: gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// GenerateJSON implements Model.
func (g *Gemini) GenerateJSON(ctx context.Context, req Request) (string, error) {
	parts := make([]*genai.Part, 0, 2)
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, req.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0)),
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		},
	)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}
