package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/narrative-cli/internal/llm"
)

// Config holds the full application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Prompts PromptsConfig `yaml:"prompts" mapstructure:"prompts"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects the default provider and model and holds per-provider
// credentials.
type LLMConfig struct {
	Provider  string         `yaml:"provider" mapstructure:"provider"`
	Model     string         `yaml:"model" mapstructure:"model"`
	Anthropic ProviderConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai" mapstructure:"openai"`
	Google    ProviderConfig `yaml:"google" mapstructure:"google"`
}

// ProviderConfig holds one provider's API key and optional base URL.
type ProviderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// KeyFor returns the configured key for a provider, or "".
func (c LLMConfig) KeyFor(provider llm.Provider) string {
	switch provider {
	case llm.ProviderAnthropic:
		return c.Anthropic.Key
	case llm.ProviderOpenAI:
		return c.OpenAI.Key
	case llm.ProviderGoogle:
		return c.Google.Key
	}
	return ""
}

// Settings returns the default gateway settings with the matching key. The
// provider name is canonicalized, so "openai" in a config file resolves to
// OpenAI.
func (c LLMConfig) Settings() llm.Settings {
	s := llm.Settings{Provider: llm.Provider(c.Provider), Model: c.Model}
	if p, ok := llm.LookupProvider(c.Provider); ok {
		s.Provider = p.Name
	}
	s.APIKey = c.KeyFor(s.Provider)
	return s
}

// Endpoints returns the base URL overrides.
func (c LLMConfig) Endpoints() llm.Endpoints {
	return llm.Endpoints{
		Anthropic: c.Anthropic.BaseURL,
		OpenAI:    c.OpenAI.BaseURL,
		Google:    c.Google.BaseURL,
	}
}

// ScrapeConfig configures the research fetcher.
type ScrapeConfig struct {
	Enabled         bool     `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent       string   `yaml:"user_agent" mapstructure:"user_agent"`
	MaxChars        int      `yaml:"max_chars" mapstructure:"max_chars"`
	AboutMaxChars   int      `yaml:"about_max_chars" mapstructure:"about_max_chars"`
	AboutMinChars   int      `yaml:"about_min_chars" mapstructure:"about_min_chars"`
	AboutPaths      []string `yaml:"about_paths" mapstructure:"about_paths"`
	ProbesPerSecond float64  `yaml:"probes_per_second" mapstructure:"probes_per_second"`
	DetectBlocks    bool     `yaml:"detect_blocks" mapstructure:"detect_blocks"`
}

// Timeout returns the per-request fetch timeout.
func (c ScrapeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PromptsConfig locates the creative-director system prompt.
type PromptsConfig struct {
	SystemPromptPath string `yaml:"system_prompt_path" mapstructure:"system_prompt_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// PricingConfig overrides per-model token pricing. Entries are a list
// because model ids contain dots, which viper treats as key separators.
type PricingConfig struct {
	Models []ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Model  string  `yaml:"model" mapstructure:"model"`
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the default provider and model, the store driver and
// the server port.
func (c *Config) Validate() error {
	if err := c.LLM.Settings().Validate(); err != nil {
		return eris.Wrap(err, "config: llm")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NARRATIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider SDK conventions are honored as fallbacks.
	for key, names := range map[string][]string{
		"llm.anthropic.key": {"NARRATIVE_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
		"llm.openai.key":    {"NARRATIVE_LLM_OPENAI_KEY", "OPENAI_API_KEY"},
		"llm.google.key":    {"NARRATIVE_LLM_GOOGLE_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
	} {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	v.SetDefault("llm.provider", string(llm.DefaultProvider))
	v.SetDefault("llm.model", llm.DefaultModel)
	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.max_chars", 8000)
	v.SetDefault("scrape.about_max_chars", 4000)
	v.SetDefault("scrape.about_min_chars", 200)
	v.SetDefault("scrape.probes_per_second", 4.0)
	v.SetDefault("scrape.detect_blocks", true)
	v.SetDefault("prompts.system_prompt_path", "brand_narrative_system_prompt.md")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "narrative.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 180)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
