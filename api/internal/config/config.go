package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/imaging"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	Port string

	TelegramBotToken string
	WebhookURL       string
	// WebhookSecret is sent to setWebhook and checked on every call. Empty means a fresh one per start.
	WebhookSecret string
	// APIToken enables POST /v1/forecast for bearer-authenticated clients.
	APIToken string

	Provider     string
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIURL    string
	GeminiAPIKey string
	GeminiModel  string

	SystemPrompt     string
	SystemPromptPath string

	Image imaging.Options
}

type Options struct {
	// EnvFile is loaded with godotenv before reading the environment. Missing file is not an error.
	EnvFile string
	// RequireTelegram is false for the offline analyze command.
	RequireTelegram bool
}

var reWebhookSecret = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

func mustEnv(k string) (string, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return "", apperr.New(apperr.KindConfig, "config.load", "missing required env "+k)
	}
	return v, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindConfig, "config.load", "bad integer in "+k, err)
	}
	return n, nil
}

// Load reads the process configuration. A missing credential is an error the caller treats as fatal.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.KindConfig, "config.load", "cannot read "+opts.EnvFile, err)
		}
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),
		APIToken:         getEnv("FORECAST_API_TOKEN", ""),
		Provider:         strings.ToLower(getEnv("INFERENCE_PROVIDER", ProviderOpenAI)),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIURL:        getEnv("OPENAI_BASE_URL", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		SystemPromptPath: getEnv("PROMPT_SYSTEM_FILE", "prompt_system.txt"),
	}

	var err error
	if opts.RequireTelegram {
		if cfg.TelegramBotToken, err = mustEnv("TELEGRAM_BOT_TOKEN"); err != nil {
			return nil, err
		}
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey, err = mustEnv("OPENAI_API_KEY"); err != nil {
			return nil, err
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey, err = mustEnv("GEMINI_API_KEY"); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.New(apperr.KindConfig, "config.load",
			fmt.Sprintf("unknown INFERENCE_PROVIDER %q; use %s or %s", cfg.Provider, ProviderOpenAI, ProviderGemini))
	}

	if cfg.WebhookSecret != "" && !reWebhookSecret.MatchString(cfg.WebhookSecret) {
		return nil, apperr.New(apperr.KindConfig, "config.load", "WEBHOOK_SECRET must be 1-256 of A-Z a-z 0-9 _ -")
	}

	if cfg.Image.MaxEdge, err = getEnvInt("IMAGE_MAX_EDGE", imaging.DefaultMaxEdge); err != nil {
		return nil, err
	}
	if cfg.Image.Quality, err = getEnvInt("IMAGE_JPEG_QUALITY", imaging.DefaultQuality); err != nil {
		return nil, err
	}
	if cfg.Image.Quality < 1 || cfg.Image.Quality > 100 {
		return nil, apperr.New(apperr.KindConfig, "config.load", "IMAGE_JPEG_QUALITY must be within 1..100")
	}
	if cfg.Image.MaxEdge < 0 {
		return nil, apperr.New(apperr.KindConfig, "config.load", "IMAGE_MAX_EDGE must not be negative")
	}

	cfg.SystemPrompt, err = LoadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSystemPrompt reads the strategy prompt. When the file does not exist the built-in prompt is used.
func LoadSystemPrompt(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSystemPrompt, nil
		}
		return "", apperr.Wrap(apperr.KindConfig, "config.prompt", "cannot read "+path, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", apperr.New(apperr.KindConfig, "config.prompt", path+" is empty")
	}
	return s, nil
}

// PromptFromFile reports whether the prompt came from disk rather than the built-in default.
func (c *Config) PromptFromFile() bool {
	return c.SystemPrompt != DefaultSystemPrompt
}
