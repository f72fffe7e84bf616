package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mockEnv(t *testing.T) {
	t.Helper()
	t.Setenv("USE_MOCK_TRANSCRIBE", "true")
	t.Setenv("USE_MOCK_LLM", "true")
}

func TestLoadDefaults(t *testing.T) {
	mockEnv(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, BackendMock, cfg.Transcription.Backend)
	require.Equal(t, BackendMock, cfg.Analysis.Backend)
	require.Equal(t, "ar", cfg.Transcription.Language)
	require.Equal(t, 1500*time.Millisecond, cfg.Transcription.PollInterval)
	require.Equal(t, 40, cfg.Transcription.MaxPolls)
	require.Equal(t, BackendMemory, cfg.History.Backend)
	require.Equal(t, 24*time.Hour, cfg.History.TTL)
	require.Equal(t, "json", cfg.Analysis.PromptStyle)
	require.Equal(t, int64(25<<20), cfg.MaxUploadBytes())
	require.NotEmpty(t, cfg.Upload.TempDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	mockEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TRANSCRIBE_LANGUAGE", "en")
	t.Setenv("HISTORY_TTL", "2h")
	t.Setenv("PROMPT_STYLE", "Legacy")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "en", cfg.Transcription.Language)
	require.Equal(t, 2*time.Hour, cfg.History.TTL)
	require.Equal(t, "legacy", cfg.Analysis.PromptStyle)
	require.Equal(t, "g-key", cfg.Analysis.APIKey)
}

func TestLoadEnvFile(t *testing.T) {
	mockEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("REPS_PATH=/data/reps.xlsx\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("REPS_PATH") })

	cfg, err := Load(Options{EnvFile: envPath})
	require.NoError(t, err)
	require.Equal(t, "/data/reps.xlsx", cfg.Reps.Path)
}

func TestLoadConfigFile(t *testing.T) {
	mockEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "callinsights.yaml")
	body := "server:\n  port: \"7000\"\nupload:\n  max_mb: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
}

func TestValidateMissingCredentials(t *testing.T) {
	t.Setenv("TRANSCRIBE_BACKEND", "openai")
	t.Setenv("LLM_BACKEND", "gemini")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")

	_, err := Load(Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_API_KEY")
	require.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestAnalysisModelDefaultsPerBackend(t *testing.T) {
	t.Setenv("USE_MOCK_TRANSCRIBE", "true")
	t.Setenv("USE_MOCK_LLM", "")
	t.Setenv("LLM_MODEL", "")

	t.Setenv("LLM_BACKEND", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, DefaultGeminiModel, cfg.Analysis.Model)

	t.Setenv("LLM_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "sk")
	_, err = Load(Options{})
	require.ErrorContains(t, err, "LLM_MODEL")

	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	cfg, err = Load(Options{})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", cfg.Analysis.Model)

	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_BACKEND", "bedrock")
	t.Setenv("AWS_REGION", "us-east-1")
	_, err = Load(Options{})
	require.ErrorContains(t, err, "LLM_MODEL")
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := Config{
		Transcription: TranscriptionConfig{Backend: "carrier-pigeon"},
		Analysis:      AnalysisConfig{Backend: BackendMock, PromptStyle: "json"},
		History:       HistoryConfig{Backend: BackendMemory},
		Upload:        UploadConfig{MaxMB: 1},
	}
	require.ErrorContains(t, cfg.Validate(), "unknown transcription backend")
}

func TestValidateRedisNeedsURL(t *testing.T) {
	cfg := Config{
		Transcription: TranscriptionConfig{Backend: BackendMock},
		Analysis:      AnalysisConfig{Backend: BackendMock, PromptStyle: "json"},
		History:       HistoryConfig{Backend: BackendRedis},
		Upload:        UploadConfig{MaxMB: 1},
	}
	require.ErrorContains(t, cfg.Validate(), "REDIS_URL")
}
