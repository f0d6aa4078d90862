package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"bilisum/pkg/llm"
)

type stubChatClient struct {
	lastParams openai.ChatCompletionNewParams
	completion *openai.ChatCompletion
	err        error
	calls      int
}

func (s *stubChatClient) New(
	_ context.Context,
	body openai.ChatCompletionNewParams,
	_ ...option.RequestOption,
) (*openai.ChatCompletion, error) {
	s.calls++
	s.lastParams = body
	if s.err != nil {
		return nil, s.err
	}

	return s.completion, nil
}

func completionWithContent(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func intPtr(value int) *int {
	return &value
}

func TestNormalizeProviderConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr bool
	}{
		{
			name: "plain openai",
			cfg:  ProviderConfig{APIKey: "sk-test", Model: "gpt-4o"},
		},
		{
			name: "trims whitespace",
			cfg:  ProviderConfig{APIKey: " sk-test ", Model: " gpt-4o "},
		},
		{
			name: "custom base url",
			cfg:  ProviderConfig{APIKey: "sk-test", Model: "gpt-4o", BaseURL: "https://proxy.example.com/v1"},
		},
		{
			name: "azure endpoint with api version",
			cfg: ProviderConfig{
				APIKey:          "azure-key",
				Model:           "my-deployment",
				AzureEndpoint:   "https://myresource.openai.azure.com",
				AzureAPIVersion: "2024-06-01",
			},
		},
		{
			name:    "missing api key",
			cfg:     ProviderConfig{Model: "gpt-4o"},
			wantErr: true,
		},
		{
			name:    "missing model",
			cfg:     ProviderConfig{APIKey: "sk-test"},
			wantErr: true,
		},
		{
			name:    "negative max retries",
			cfg:     ProviderConfig{APIKey: "sk-test", Model: "gpt-4o", MaxRetries: intPtr(-1)},
			wantErr: true,
		},
		{
			name:    "base url without scheme",
			cfg:     ProviderConfig{APIKey: "sk-test", Model: "gpt-4o", BaseURL: "proxy.example.com"},
			wantErr: true,
		},
		{
			name: "azure endpoint without api version",
			cfg: ProviderConfig{
				APIKey:        "azure-key",
				Model:         "my-deployment",
				AzureEndpoint: "https://myresource.openai.azure.com",
			},
			wantErr: true,
		},
		{
			name: "azure endpoint and base url are exclusive",
			cfg: ProviderConfig{
				APIKey:          "azure-key",
				Model:           "my-deployment",
				BaseURL:         "https://proxy.example.com/v1",
				AzureEndpoint:   "https://myresource.openai.azure.com",
				AzureAPIVersion: "2024-06-01",
			},
			wantErr: true,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			normalized, err := normalizeProviderConfig(testCase.cfg)
			if testCase.wantErr {
				if err == nil {
					t.Fatal("expected config error")
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if normalized.APIKey != strings.TrimSpace(testCase.cfg.APIKey) {
				t.Fatalf("api key = %q, want trimmed", normalized.APIKey)
			}
			if normalized.Model != strings.TrimSpace(testCase.cfg.Model) {
				t.Fatalf("model = %q, want trimmed", normalized.Model)
			}
		})
	}
}

func TestProviderSummarize(t *testing.T) {
	t.Parallel()

	chat := &stubChatClient{completion: completionWithContent("  一句话总结  ")}
	provider := &Provider{chat: chat, model: "gpt-4o"}

	text, err := provider.Summarize(context.Background(), "视频标题：测试")
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if text != "一句话总结" {
		t.Fatalf("text = %q, want trimmed completion content", text)
	}

	params := chat.lastParams
	if string(params.Model) != "gpt-4o" {
		t.Fatalf("model = %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(params.Messages))
	}
	if params.MaxCompletionTokens.Value != llm.DefaultMaxOutputTokens {
		t.Fatalf("max completion tokens = %d", params.MaxCompletionTokens.Value)
	}
	if params.Temperature.Value != llm.DefaultTemperature {
		t.Fatalf("temperature = %v", params.Temperature.Value)
	}
}

func TestProviderAnswerEmbedsQuestion(t *testing.T) {
	t.Parallel()

	chat := &stubChatClient{completion: completionWithContent("回答")}
	provider := &Provider{chat: chat, model: "gpt-4o"}

	if _, err := provider.Answer(context.Background(), "视频标题：测试", "第三个要点是什么"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	userMessage := chat.lastParams.Messages[1].OfUser
	if userMessage == nil {
		t.Fatal("second message must be the user message")
	}
	if !strings.Contains(userMessage.Content.OfString.Value, "用户问题：第三个要点是什么") {
		t.Fatalf("user message %q must embed the question", userMessage.Content.OfString.Value)
	}
}

func TestProviderGenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		chat *stubChatClient
	}{
		{
			name: "transport error",
			chat: &stubChatClient{err: errors.New("connection reset")},
		},
		{
			name: "empty choices",
			chat: &stubChatClient{completion: &openai.ChatCompletion{}},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			provider := &Provider{chat: testCase.chat, model: "gpt-4o"}
			if _, err := provider.Summarize(context.Background(), "视频标题：测试"); err == nil {
				t.Fatal("expected generation error")
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(ProviderConfig{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected config error")
	}
}
