package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"bilisum/internal/bilibili"
	"bilisum/internal/bot"
	"bilisum/internal/secret"
	"bilisum/pkg/bilisum"
	"bilisum/pkg/llm"
	geminiprovider "bilisum/pkg/llm/providers/gemini"
	openaiprovider "bilisum/pkg/llm/providers/openai"
)

const (
	envConfigFile           = "BILISUM_CONFIG_FILE"
	defaultConfigFilePath   = "config/bot.json"
	alternateConfigFilePath = "bot.json"

	providerKeyOpenAI = "openai"
	providerKeyGemini = "gemini"

	defaultAPIKeySecretName   = "AzureAI--ApiKey"
	defaultSessDataSecretName = "Bili--Sessdata"
	defaultJCTSecretName      = "Bili--JCT"
	defaultUIDSecretName      = "Bili--UID"
)

type appConfig struct {
	logLevel slog.Level

	pollInterval    time.Duration
	pacingDelay     time.Duration
	cacheTTL        time.Duration
	cacheMaxSize    int
	maxSubtitleRune int
	replyPrefix     string
	maxReplyRune    int
	maxProcessedIDs int

	llmProvider     string
	llmModel        string
	openAIBaseURL   string
	azureEndpoint   string
	azureAPIVersion string
	openAIRetries   *int
	geminiBaseURL   string
	geminiVersion   string

	vaultURL           string
	apiKeySecretName   string
	sessDataSecretName string
	jctSecretName      string
	uidSecretName      string

	bilibiliBaseURL string
}

type fileConfig struct {
	LogLevel string             `json:"log_level"`
	Bot      fileBotConfig      `json:"bot"`
	LLM      fileLLMConfig      `json:"llm"`
	KeyVault fileKeyVaultConfig `json:"keyvault"`
	Bilibili fileBilibiliConfig `json:"bilibili"`
}

type fileBotConfig struct {
	PollInterval     string `json:"poll_interval"`
	PacingDelay      string `json:"pacing_delay"`
	MaxSubtitleChars *int   `json:"max_subtitle_chars"`
	CacheTTL         string `json:"cache_ttl"`
	CacheMaxSize     *int   `json:"cache_max_size"`
	ReplyPrefix      string `json:"reply_prefix"`
	MaxReplyChars    *int   `json:"max_reply_chars"`
	MaxProcessedIDs  *int   `json:"max_processed_ids"`
}

type fileLLMConfig struct {
	Provider string            `json:"provider"`
	Model    string            `json:"model"`
	OpenAI   *fileOpenAIConfig `json:"openai"`
	Gemini   *fileGeminiConfig `json:"gemini"`
}

type fileOpenAIConfig struct {
	BaseURL         string `json:"base_url"`
	AzureEndpoint   string `json:"azure_endpoint"`
	AzureAPIVersion string `json:"azure_api_version"`
	MaxRetries      *int   `json:"max_retries"`
}

type fileGeminiConfig struct {
	BaseURL    string `json:"base_url"`
	APIVersion string `json:"api_version"`
}

type fileKeyVaultConfig struct {
	VaultURL           string `json:"vault_url"`
	APIKeySecretName   string `json:"api_key_secret_name"`
	SessDataSecretName string `json:"sessdata_secret_name"`
	JCTSecretName      string `json:"bili_jct_secret_name"`
	UIDSecretName      string `json:"uid_secret_name"`
}

type fileBilibiliConfig struct {
	BaseURL string `json:"base_url"`
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secrets, err := buildSecretProvider(cfg)
	if err != nil {
		return err
	}

	credentials, err := loadCredentials(ctx, cfg, secrets)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	logger.Info("credentials loaded", "source", credentials.source)

	client, err := bilibili.NewClient(bilibili.ClientConfig{
		SessData: credentials.sessData,
		BiliJCT:  credentials.biliJCT,
		UID:      credentials.uid,
		BaseURL:  cfg.bilibiliBaseURL,
		Logger:   logger.With("component", "bilibili"),
	})
	if err != nil {
		return fmt.Errorf("build bilibili client: %w", err)
	}

	provider, err := buildLLMProvider(cfg, credentials.apiKey)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	cache := bot.NewSummaryCache(
		bot.WithCacheTTL(cfg.cacheTTL),
		bot.WithCacheMaxEntries(cfg.cacheMaxSize),
	)

	processor, err := bot.NewProcessor(client, client, provider, cache,
		bot.WithProcessorLogger(logger.With("component", "processor")),
		bot.WithMaxSubtitleChars(cfg.maxSubtitleRune),
		bot.WithReplyPrefix(cfg.replyPrefix),
		bot.WithMaxReplyChars(cfg.maxReplyRune),
	)
	if err != nil {
		return fmt.Errorf("build processor: %w", err)
	}

	monitor, err := bot.NewMonitor(client, processor,
		bot.WithMonitorLogger(logger.With("component", "monitor")),
		bot.WithPollInterval(cfg.pollInterval),
		bot.WithPacingDelay(cfg.pacingDelay),
		bot.WithMaxProcessedIDs(cfg.maxProcessedIDs),
	)
	if err != nil {
		return fmt.Errorf("build monitor: %w", err)
	}

	logger.Info("bilisum starting",
		"poll_interval", cfg.pollInterval,
		"cache_ttl", cfg.cacheTTL,
		"provider", cfg.llmProvider,
		"model", cfg.llmModel,
	)

	runErr := monitor.Run(ctx)

	stats := cache.Stats()
	logger.Info("bilisum stopped",
		"cache_size", stats.Size,
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
	)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run monitor: %w", runErr)
	}

	return nil
}

type credentials struct {
	apiKey   string
	sessData string
	biliJCT  string
	uid      int64
	source   string
}

func buildSecretProvider(cfg appConfig) (bilisum.SecretProvider, error) {
	if cfg.vaultURL == "" {
		return secret.NewEnvProvider(os.LookupEnv), nil
	}

	provider, err := secret.NewKeyVaultProvider(cfg.vaultURL)
	if err != nil {
		return nil, fmt.Errorf("build key vault provider: %w", err)
	}

	return provider, nil
}

func loadCredentials(ctx context.Context, cfg appConfig, secrets bilisum.SecretProvider) (credentials, error) {
	apiKey, err := secrets.GetSecret(ctx, cfg.apiKeySecretName)
	if err != nil {
		return credentials{}, err
	}
	sessData, err := secrets.GetSecret(ctx, cfg.sessDataSecretName)
	if err != nil {
		return credentials{}, err
	}
	biliJCT, err := secrets.GetSecret(ctx, cfg.jctSecretName)
	if err != nil {
		return credentials{}, err
	}
	rawUID, err := secrets.GetSecret(ctx, cfg.uidSecretName)
	if err != nil {
		return credentials{}, err
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(rawUID), 10, 64)
	if err != nil {
		return credentials{}, fmt.Errorf("parse uid secret %s: %w", cfg.uidSecretName, err)
	}

	source := "environment"
	if cfg.vaultURL != "" {
		source = "keyvault"
	}

	return credentials{
		apiKey:   apiKey,
		sessData: sessData,
		biliJCT:  biliJCT,
		uid:      uid,
		source:   source,
	}, nil
}

func buildLLMProvider(cfg appConfig, apiKey string) (bilisum.LLMProvider, error) {
	providers := make(map[string]bilisum.LLMProvider, 1)

	switch cfg.llmProvider {
	case providerKeyOpenAI:
		provider, err := openaiprovider.New(openaiprovider.ProviderConfig{
			APIKey:          apiKey,
			Model:           cfg.llmModel,
			BaseURL:         cfg.openAIBaseURL,
			AzureEndpoint:   cfg.azureEndpoint,
			AzureAPIVersion: cfg.azureAPIVersion,
			MaxRetries:      cfg.openAIRetries,
		})
		if err != nil {
			return nil, err
		}
		providers[providerKeyOpenAI] = provider
	case providerKeyGemini:
		provider, err := geminiprovider.New(geminiprovider.ProviderConfig{
			APIKey:     apiKey,
			Model:      cfg.llmModel,
			BaseURL:    cfg.geminiBaseURL,
			APIVersion: cfg.geminiVersion,
		})
		if err != nil {
			return nil, err
		}
		providers[providerKeyGemini] = provider
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.llmProvider)
	}

	registry, err := llm.NewRegistry(providers)
	if err != nil {
		return nil, err
	}

	return registry.Resolve(cfg.llmProvider)
}

func loadConfig() (appConfig, error) {
	cfg := defaultAppConfig()

	configFile, err := resolveConfigFilePath()
	if err != nil {
		return appConfig{}, err
	}
	if err := applyConfigFile(&cfg, configFile); err != nil {
		return appConfig{}, err
	}
	if err := validateAppConfig(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("validate config file %s: %w", configFile, err)
	}

	return cfg, nil
}

func resolveConfigFilePath() (string, error) {
	if configFile := strings.TrimSpace(os.Getenv(envConfigFile)); configFile != "" {
		return configFile, nil
	}

	candidates := []string{defaultConfigFilePath, alternateConfigFilePath}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config file %s is a directory", candidate)
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}

	return "", fmt.Errorf(
		"config file not found; create %s or %s, or set %s",
		defaultConfigFilePath,
		alternateConfigFilePath,
		envConfigFile,
	)
}

func defaultAppConfig() appConfig {
	return appConfig{
		logLevel: slog.LevelInfo,

		pollInterval:    30 * time.Second,
		pacingDelay:     3 * time.Second,
		cacheTTL:        24 * time.Hour,
		cacheMaxSize:    500,
		maxSubtitleRune: 8000,
		replyPrefix:     "【AI总结】",
		maxReplyRune:    900,
		maxProcessedIDs: 10000,

		llmProvider: providerKeyOpenAI,

		apiKeySecretName:   defaultAPIKeySecretName,
		sessDataSecretName: defaultSessDataSecretName,
		jctSecretName:      defaultJCTSecretName,
		uidSecretName:      defaultUIDSecretName,
	}
}

func applyConfigFile(cfg *appConfig, path string) error {
	if cfg == nil {
		return fmt.Errorf("apply config file: nil config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if rawLevel := strings.TrimSpace(parsed.LogLevel); rawLevel != "" {
		level, err := parseLogLevel(rawLevel)
		if err != nil {
			return fmt.Errorf("parse log_level: %w", err)
		}
		cfg.logLevel = level
	}

	if err := applyBotConfig(cfg, parsed.Bot); err != nil {
		return err
	}
	applyLLMConfig(cfg, parsed.LLM)
	applyKeyVaultConfig(cfg, parsed.KeyVault)

	cfg.bilibiliBaseURL = strings.TrimSpace(parsed.Bilibili.BaseURL)

	return nil
}

func applyBotConfig(cfg *appConfig, parsed fileBotConfig) error {
	if rawInterval := strings.TrimSpace(parsed.PollInterval); rawInterval != "" {
		interval, err := time.ParseDuration(rawInterval)
		if err != nil {
			return fmt.Errorf("parse bot.poll_interval: %w", err)
		}
		cfg.pollInterval = interval
	}
	if rawDelay := strings.TrimSpace(parsed.PacingDelay); rawDelay != "" {
		delay, err := time.ParseDuration(rawDelay)
		if err != nil {
			return fmt.Errorf("parse bot.pacing_delay: %w", err)
		}
		cfg.pacingDelay = delay
	}
	if rawTTL := strings.TrimSpace(parsed.CacheTTL); rawTTL != "" {
		ttl, err := time.ParseDuration(rawTTL)
		if err != nil {
			return fmt.Errorf("parse bot.cache_ttl: %w", err)
		}
		cfg.cacheTTL = ttl
	}
	if parsed.MaxSubtitleChars != nil {
		cfg.maxSubtitleRune = *parsed.MaxSubtitleChars
	}
	if parsed.CacheMaxSize != nil {
		cfg.cacheMaxSize = *parsed.CacheMaxSize
	}
	if prefix := strings.TrimSpace(parsed.ReplyPrefix); prefix != "" {
		cfg.replyPrefix = prefix
	}
	if parsed.MaxReplyChars != nil {
		cfg.maxReplyRune = *parsed.MaxReplyChars
	}
	if parsed.MaxProcessedIDs != nil {
		cfg.maxProcessedIDs = *parsed.MaxProcessedIDs
	}

	return nil
}

func applyLLMConfig(cfg *appConfig, parsed fileLLMConfig) {
	if provider := strings.TrimSpace(parsed.Provider); provider != "" {
		cfg.llmProvider = strings.ToLower(provider)
	}
	cfg.llmModel = strings.TrimSpace(parsed.Model)

	if parsed.OpenAI != nil {
		cfg.openAIBaseURL = strings.TrimSpace(parsed.OpenAI.BaseURL)
		cfg.azureEndpoint = strings.TrimSpace(parsed.OpenAI.AzureEndpoint)
		cfg.azureAPIVersion = strings.TrimSpace(parsed.OpenAI.AzureAPIVersion)
		cfg.openAIRetries = parsed.OpenAI.MaxRetries
	}
	if parsed.Gemini != nil {
		cfg.geminiBaseURL = strings.TrimSpace(parsed.Gemini.BaseURL)
		cfg.geminiVersion = strings.TrimSpace(parsed.Gemini.APIVersion)
	}
}

func applyKeyVaultConfig(cfg *appConfig, parsed fileKeyVaultConfig) {
	cfg.vaultURL = strings.TrimSpace(parsed.VaultURL)
	if name := strings.TrimSpace(parsed.APIKeySecretName); name != "" {
		cfg.apiKeySecretName = name
	}
	if name := strings.TrimSpace(parsed.SessDataSecretName); name != "" {
		cfg.sessDataSecretName = name
	}
	if name := strings.TrimSpace(parsed.JCTSecretName); name != "" {
		cfg.jctSecretName = name
	}
	if name := strings.TrimSpace(parsed.UIDSecretName); name != "" {
		cfg.uidSecretName = name
	}
}

func validateAppConfig(cfg *appConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.pollInterval <= 0 {
		return fmt.Errorf("bot.poll_interval: must be > 0")
	}
	if cfg.pacingDelay < 0 {
		return fmt.Errorf("bot.pacing_delay: must be >= 0")
	}
	if cfg.cacheTTL <= 0 {
		return fmt.Errorf("bot.cache_ttl: must be > 0")
	}
	if cfg.cacheMaxSize <= 0 {
		return fmt.Errorf("bot.cache_max_size: must be > 0")
	}
	if cfg.maxSubtitleRune <= 0 {
		return fmt.Errorf("bot.max_subtitle_chars: must be > 0")
	}
	if cfg.maxReplyRune <= utf8.RuneCountInString(cfg.replyPrefix) {
		return fmt.Errorf("bot.max_reply_chars: must exceed reply prefix length")
	}
	if cfg.maxProcessedIDs <= 0 {
		return fmt.Errorf("bot.max_processed_ids: must be > 0")
	}
	if cfg.llmProvider != providerKeyOpenAI && cfg.llmProvider != providerKeyGemini {
		return fmt.Errorf("llm.provider: unsupported provider %q", cfg.llmProvider)
	}
	if cfg.llmModel == "" {
		return fmt.Errorf("llm.model: required")
	}

	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}
