package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"bilisum/pkg/bilisum"
	"bilisum/pkg/llm"
)

const (
	defaultAPIVersion = "v1beta"

	maxGenerateAttempts = 3
	retryBaseInterval   = 2 * time.Second
)

// ProviderConfig configures one Gemini-backed generator instance.
type ProviderConfig struct {
	// APIKey is the credential used to authenticate requests.
	APIKey string
	// Model is the model name used for generation.
	Model string
	// BaseURL optionally overrides the Gemini endpoint.
	BaseURL string
	// APIVersion optionally overrides the Gemini API version.
	//
	// Zero defaults to v1beta.
	APIVersion string
}

// Provider generates summaries and answers over the Gemini API.
//
// The genai SDK does not retry on its own, so transient failures are retried
// here with bounded attempts and exponential backoff; callers never retry.
type Provider struct {
	models geminiModelsClient
	model  string
	sleep  func(ctx context.Context, delay time.Duration) error
}

type geminiModelsClient interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// New builds one Gemini API provider instance.
func New(cfg ProviderConfig) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new gemini provider: missing api key")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("new gemini provider: missing model")
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimSpace(cfg.BaseURL),
			APIVersion: apiVersion,
		},
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	if client == nil || client.Models == nil {
		return nil, fmt.Errorf("new gemini client: models client is nil")
	}

	return &Provider{
		models: client.Models,
		model:  model,
		sleep:  sleepWithContext,
	}, nil
}

// Summarize generates the default summary for a video context prompt.
func (p *Provider) Summarize(ctx context.Context, videoContext string) (string, error) {
	text, err := p.generate(ctx, llm.SummarySystemPrompt, videoContext)
	if err != nil {
		return "", fmt.Errorf("gemini summarize: %w", err)
	}

	return text, nil
}

// Answer generates an answer to the user's question about the video.
func (p *Provider) Answer(ctx context.Context, videoContext, question string) (string, error) {
	userMessage := fmt.Sprintf("%s\n\n用户问题：%s", videoContext, question)

	text, err := p.generate(ctx, llm.AnswerSystemPrompt, userMessage)
	if err != nil {
		return "", fmt.Errorf("gemini answer: %w", err)
	}

	return text, nil
}

func (p *Provider) generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if p == nil || p.models == nil {
		return "", fmt.Errorf("nil provider")
	}
	if ctx == nil {
		return "", fmt.Errorf("nil context")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](llm.DefaultTemperature),
		MaxOutputTokens:   llm.DefaultMaxOutputTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		response, err := p.models.GenerateContent(ctx, p.model, genai.Text(userMessage), config)
		if err == nil {
			return strings.TrimSpace(response.Text()), nil
		}
		lastErr = err

		if attempt == maxGenerateAttempts {
			break
		}
		delay := retryBaseInterval << (attempt - 1)
		if waitErr := p.wait(ctx, delay); waitErr != nil {
			return "", fmt.Errorf("generate content after %d attempts: %w", attempt, waitErr)
		}
	}

	return "", fmt.Errorf("generate content after %d attempts: %w", maxGenerateAttempts, lastErr)
}

func (p *Provider) wait(ctx context.Context, delay time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, delay)
	}

	return sleepWithContext(ctx, delay)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ bilisum.LLMProvider = (*Provider)(nil)
