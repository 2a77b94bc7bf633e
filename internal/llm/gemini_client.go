// ABOUTME: Gemini client for the code generation collaborator
// ABOUTME: Uses the genai SDK with the same timeout and backoff policy as the OpenAI client
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sisyph/mcoder/internal/util"
)

// GeminiModelPrefix marks model names served by Gemini
const GeminiModelPrefix = "gemini-"

// GeminiClient wraps the genai client with retry logic
type GeminiClient struct {
	client     *genai.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewGeminiClient creates a Gemini API client. BaseURL in config overrides the public endpoint.
func NewGeminiClient(ctx context.Context, config *ClientConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiClient{
		client:     client,
		timeout:    timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}, nil
}

// Complete asks model for code solving prompt and returns the raw completion text
func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	var content string

	temperature := float32(0.2)
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(codeSystemPrompt, genai.RoleUser),
		Temperature:       &temperature,
	}

	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.GenerateContent(callCtx, model, genai.Text(prompt), genConfig)
		if err != nil {
			return err
		}
		content = responseText(resp)
		if strings.TrimSpace(content) == "" {
			return errors.New("empty completion returned")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("model %s: %w", model, err)
	}
	return content, nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
