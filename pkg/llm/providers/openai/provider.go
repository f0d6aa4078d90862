package openai

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"bilisum/pkg/bilisum"
	"bilisum/pkg/llm"
)

// ProviderConfig configures one OpenAI-backed generator instance.
type ProviderConfig struct {
	// APIKey is the credential used to authenticate requests.
	APIKey string
	// Model is the model (or Azure deployment) name used for generation.
	Model string
	// BaseURL optionally overrides the OpenAI endpoint.
	BaseURL string
	// AzureEndpoint optionally routes requests to an Azure OpenAI resource.
	//
	// When set, AzureAPIVersion is required and BaseURL must be empty.
	AzureEndpoint string
	// AzureAPIVersion selects the Azure OpenAI API version.
	AzureAPIVersion string
	// MaxRetries optionally overrides the SDK retry count.
	//
	// Nil keeps the SDK default behavior (bounded retries with backoff).
	MaxRetries *int
}

// Provider generates summaries and answers over OpenAI chat completions.
type Provider struct {
	chat  chatCompletionsClient
	model string
}

type chatCompletionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type chatCompletionServiceAdapter struct {
	service openai.ChatCompletionService
}

func (a chatCompletionServiceAdapter) New(
	ctx context.Context,
	body openai.ChatCompletionNewParams,
	opts ...option.RequestOption,
) (*openai.ChatCompletion, error) {
	return a.service.New(ctx, body, opts...)
}

// New builds one OpenAI-backed provider instance.
func New(cfg ProviderConfig) (*Provider, error) {
	normalized, err := normalizeProviderConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("new openai provider: %w", err)
	}

	options := make([]option.RequestOption, 0, 4)
	if normalized.AzureEndpoint != "" {
		options = append(options,
			azure.WithEndpoint(normalized.AzureEndpoint, normalized.AzureAPIVersion),
			azure.WithAPIKey(normalized.APIKey),
		)
	} else {
		options = append(options, option.WithAPIKey(normalized.APIKey))
		if normalized.BaseURL != "" {
			options = append(options, option.WithBaseURL(normalized.BaseURL))
		}
	}
	if normalized.MaxRetries != nil {
		options = append(options, option.WithMaxRetries(*normalized.MaxRetries))
	}

	client := openai.NewClient(options...)

	return &Provider{
		chat:  chatCompletionServiceAdapter{service: client.Chat.Completions},
		model: normalized.Model,
	}, nil
}

// Summarize generates the default summary for a video context prompt.
func (p *Provider) Summarize(ctx context.Context, videoContext string) (string, error) {
	text, err := p.generate(ctx, llm.SummarySystemPrompt, videoContext)
	if err != nil {
		return "", fmt.Errorf("openai summarize: %w", err)
	}

	return text, nil
}

// Answer generates an answer to the user's question about the video.
func (p *Provider) Answer(ctx context.Context, videoContext, question string) (string, error) {
	userMessage := fmt.Sprintf("%s\n\n用户问题：%s", videoContext, question)

	text, err := p.generate(ctx, llm.AnswerSystemPrompt, userMessage)
	if err != nil {
		return "", fmt.Errorf("openai answer: %w", err)
	}

	return text, nil
}

func (p *Provider) generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if p == nil || p.chat == nil {
		return "", fmt.Errorf("nil provider")
	}
	if ctx == nil {
		return "", fmt.Errorf("nil context")
	}

	completion, err := p.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		MaxCompletionTokens: openai.Int(llm.DefaultMaxOutputTokens),
		Temperature:         openai.Float(llm.DefaultTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func normalizeProviderConfig(cfg ProviderConfig) (ProviderConfig, error) {
	normalized := ProviderConfig{
		APIKey:          strings.TrimSpace(cfg.APIKey),
		Model:           strings.TrimSpace(cfg.Model),
		BaseURL:         strings.TrimSpace(cfg.BaseURL),
		AzureEndpoint:   strings.TrimSpace(cfg.AzureEndpoint),
		AzureAPIVersion: strings.TrimSpace(cfg.AzureAPIVersion),
		MaxRetries:      cfg.MaxRetries,
	}

	if normalized.APIKey == "" {
		return ProviderConfig{}, fmt.Errorf("missing api key")
	}
	if normalized.Model == "" {
		return ProviderConfig{}, fmt.Errorf("missing model")
	}
	if normalized.MaxRetries != nil && *normalized.MaxRetries < 0 {
		return ProviderConfig{}, fmt.Errorf("max retries must be >= 0")
	}
	if normalized.BaseURL != "" {
		if err := validateEndpoint(normalized.BaseURL); err != nil {
			return ProviderConfig{}, fmt.Errorf("base url: %w", err)
		}
	}
	if normalized.AzureEndpoint != "" {
		if normalized.BaseURL != "" {
			return ProviderConfig{}, fmt.Errorf("azure endpoint and base url are mutually exclusive")
		}
		if normalized.AzureAPIVersion == "" {
			return ProviderConfig{}, fmt.Errorf("azure endpoint requires api version")
		}
		if err := validateEndpoint(normalized.AzureEndpoint); err != nil {
			return ProviderConfig{}, fmt.Errorf("azure endpoint: %w", err)
		}
	}

	return normalized, nil
}

func validateEndpoint(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}

	return nil
}

var _ bilisum.LLMProvider = (*Provider)(nil)
