package pdfquiz

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv isolates a test from the developer's environment and .env file
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "PORT", "SESSION_SECRET",
		"REDIS_ADDR", "REDIS_PASSWORD", "ARCHIVE_PATH", "TRANSCRIPT_DIR", "VERBOSE",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.OpenAI.Model)
	assert.Equal(t, "8180", cfg.Server.Port)
	assert.Equal(t, 20, cfg.Server.MaxUploadMB)
	assert.Empty(t, cfg.Server.SessionSecret)
	assert.Equal(t, DefaultQuestionTimeLimit, cfg.QuestionTimeLimit())
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL())
	assert.Equal(t, DefaultTimeout, cfg.Generator().Timeout)
	assert.False(t, NewGenerator(cfg.Generator()).Configured())
}

func TestLoadConfigFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, `
openai:
  api_key: sk-from-file
  model: gpt-4o-mini
  timeout: 15s
  max_input_chars: 12000
server:
  port: "9000"
  session_secret: a-very-long-session-secret
redis:
  addr: localhost:6379
  ttl: 30m
quiz:
  question_time: 45s
log:
  verbose: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator().Model)
	assert.Equal(t, 15*time.Second, cfg.Generator().Timeout)
	assert.Equal(t, 12000, cfg.Generator().MaxInputChars)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 45*time.Second, cfg.QuestionTimeLimit())
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "openai:\n  api_key: sk-from-file\nserver:\n  port: \"9000\"\n")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("PORT", "9100")
	t.Setenv("VERBOSE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadConfigDotEnv(t *testing.T) {
	clearConfigEnv(t)
	// godotenv never overrides variables that are already set, even to ""
	os.Unsetenv("SESSION_SECRET")
	require.NoError(t, os.WriteFile(".env", []byte("SESSION_SECRET=secret-from-dotenv-file\n"), 0644))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "secret-from-dotenv-file", cfg.Server.SessionSecret)
}

func TestLoadConfigInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"port not numeric": "server:\n  port: http\n",
		"short secret":     "server:\n  session_secret: short\n",
		"bad base url":     "openai:\n  base_url: not a url\n",
		"bad redis addr":   "redis:\n  addr: nocolon\n",
		"huge upload":      "server:\n  max_upload_mb: 5000\n",
		"broken yaml":      "openai: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			clearConfigEnv(t)
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	clearConfigEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDurationOr(t *testing.T) {
	assert.Equal(t, time.Minute, DurationOr("", time.Minute))
	assert.Equal(t, time.Minute, DurationOr("soon", time.Minute))
	assert.Equal(t, 5*time.Second, DurationOr("5s", time.Minute))
}
