package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the service and the CLI.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Bedrock       BedrockConfig       `mapstructure:"bedrock"`
	History       HistoryConfig       `mapstructure:"history"`
	Reps          RepsConfig          `mapstructure:"reps"`
	Upload        UploadConfig        `mapstructure:"upload"`
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

type TranscriptionConfig struct {
	Backend      string        `mapstructure:"backend"`
	Language     string        `mapstructure:"language"`
	Model        string        `mapstructure:"model"`
	ServiceURL   string        `mapstructure:"service_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxPolls     int           `mapstructure:"max_polls"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

type AnalysisConfig struct {
	Backend     string        `mapstructure:"backend"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	PromptStyle string        `mapstructure:"prompt_style"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type BedrockConfig struct {
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxTokens       int32  `mapstructure:"max_tokens"`
}

type HistoryConfig struct {
	Backend  string        `mapstructure:"backend"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RepsConfig struct {
	Path string `mapstructure:"path"`
}

type UploadConfig struct {
	MaxMB   int64  `mapstructure:"max_mb"`
	TempDir string `mapstructure:"temp_dir"`
}

// DefaultGeminiModel is used when the gemini backend has no LLM_MODEL.
// The other analysis backends have no sensible default and require one.
const DefaultGeminiModel = "gemini-1.5-flash-latest"

// Backend names.
const (
	BackendMock    = "mock"
	BackendOpenAI  = "openai"
	BackendService = "service"
	BackendGemini  = "gemini"
	BackendBedrock = "bedrock"
	BackendMemory  = "memory"
	BackendRedis   = "redis"
)

// Options controls where configuration is read from.
type Options struct {
	EnvFile    string
	ConfigFile string
}

// envBindings maps config keys onto the environment variable names the
// service has always used. The first name found wins.
var envBindings = map[string][]string{
	"server.port":                 {"PORT"},
	"server.environment":          {"ENVIRONMENT"},
	"server.log_level":            {"LOG_LEVEL"},
	"transcription.backend":       {"TRANSCRIBE_BACKEND"},
	"transcription.language":      {"TRANSCRIBE_LANGUAGE"},
	"transcription.model":         {"TRANSCRIBE_MODEL"},
	"transcription.service_url":   {"TRANSCRIBE_URL"},
	"transcription.poll_interval": {"TRANSCRIBE_POLL_INTERVAL"},
	"transcription.max_polls":     {"TRANSCRIBE_MAX_POLLS"},
	"transcription.http_timeout":  {"TRANSCRIBE_HTTP_TIMEOUT"},
	"analysis.backend":            {"LLM_BACKEND"},
	"analysis.model":              {"LLM_MODEL"},
	"analysis.api_key":            {"LLM_API_KEY", "GEMINI_API_KEY"},
	"analysis.base_url":           {"LLM_GATEWAY_URL"},
	"analysis.prompt_style":       {"PROMPT_STYLE"},
	"analysis.http_timeout":       {"LLM_HTTP_TIMEOUT"},
	"openai.api_key":              {"OPENAI_API_KEY"},
	"openai.base_url":             {"OPENAI_BASE_URL"},
	"bedrock.region":              {"AWS_REGION", "AWS_DEFAULT_REGION"},
	"bedrock.profile":             {"AWS_PROFILE"},
	"bedrock.access_key_id":       {"AWS_ACCESS_KEY_ID"},
	"bedrock.secret_access_key":   {"AWS_SECRET_ACCESS_KEY"},
	"bedrock.max_tokens":          {"BEDROCK_MAX_TOKENS"},
	"history.backend":             {"HISTORY_BACKEND"},
	"history.redis_url":           {"REDIS_URL"},
	"history.ttl":                 {"HISTORY_TTL"},
	"reps.path":                   {"REPS_PATH"},
	"upload.max_mb":               {"UPLOAD_MAX_MB"},
	"upload.temp_dir":             {"UPLOAD_TEMP_DIR"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "local")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("transcription.backend", BackendOpenAI)
	v.SetDefault("transcription.language", "ar")
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("transcription.poll_interval", 1500*time.Millisecond)
	v.SetDefault("transcription.max_polls", 40)
	v.SetDefault("transcription.http_timeout", 5*time.Minute)

	v.SetDefault("analysis.backend", BackendGemini)
	v.SetDefault("analysis.prompt_style", "json")
	v.SetDefault("analysis.http_timeout", 60*time.Second)

	v.SetDefault("bedrock.max_tokens", 1024)

	v.SetDefault("history.backend", BackendMemory)
	v.SetDefault("history.ttl", 24*time.Hour)

	v.SetDefault("upload.max_mb", 25)
}

// Load reads .env, an optional config file and the environment.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load() // loads .env
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("CALLINSIGHTS_CONFIG"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}
	if !explicitFile {
		v.SetConfigName("callinsights")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// legacy mock switches
	if os.Getenv("USE_MOCK_TRANSCRIBE") == "true" {
		v.Set("transcription.backend", BackendMock)
	}
	if os.Getenv("USE_MOCK_LLM") == "true" {
		v.Set("analysis.backend", BackendMock)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	c.Analysis.Backend = strings.ToLower(strings.TrimSpace(c.Analysis.Backend))
	c.History.Backend = strings.ToLower(strings.TrimSpace(c.History.Backend))
	c.Analysis.PromptStyle = strings.ToLower(strings.TrimSpace(c.Analysis.PromptStyle))
	c.Analysis.Model = strings.TrimSpace(c.Analysis.Model)
	if c.Analysis.Model == "" && c.Analysis.Backend == BackendGemini {
		c.Analysis.Model = DefaultGeminiModel
	}
	if c.Upload.TempDir == "" {
		c.Upload.TempDir = os.TempDir()
	}
}

// Validate ensures each selected backend has what it needs.
func (c *Config) Validate() error {
	var missing []string

	switch c.Transcription.Backend {
	case BackendMock:
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case BackendService:
		if c.Transcription.ServiceURL == "" {
			missing = append(missing, "TRANSCRIBE_URL")
		}
	default:
		return fmt.Errorf("unknown transcription backend %q", c.Transcription.Backend)
	}

	switch c.Analysis.Backend {
	case BackendMock:
	case BackendGemini:
		if c.Analysis.APIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	case BackendOpenAI:
		if c.Analysis.APIKey == "" && c.OpenAI.APIKey == "" {
			missing = append(missing, "LLM_API_KEY")
		}
		if c.Analysis.Model == "" {
			missing = append(missing, "LLM_MODEL")
		}
	case BackendBedrock:
		if c.Bedrock.Region == "" {
			missing = append(missing, "AWS_REGION")
		}
		if c.Analysis.Model == "" {
			missing = append(missing, "LLM_MODEL")
		}
	default:
		return fmt.Errorf("unknown analysis backend %q", c.Analysis.Backend)
	}

	switch c.History.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.History.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}

	switch c.Analysis.PromptStyle {
	case "json", "legacy":
	default:
		return fmt.Errorf("unknown prompt style %q", c.Analysis.PromptStyle)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Upload.MaxMB <= 0 {
		return fmt.Errorf("upload.max_mb must be > 0")
	}
	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Upload.MaxMB << 20
}
