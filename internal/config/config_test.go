package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	cli "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *cli.FlagSet {
	return cli.NewFlagSet("scribe", cli.ContinueOnError)
}

func noEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(newFlagSet(), []string{"--env", noEnv(t)})
	require.NoError(t, err)
	assert.Equal(t, ":8501", c.Addr)
	assert.Equal(t, BackendLocal, c.Backend)
	assert.Equal(t, int64(200), c.MaxUploadMB)
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv("SCRIBE_ADDR", ":9000")
	t.Setenv("SCRIBE_SESSION_TTL", "15m")
	t.Setenv("SCRIBE_MAX_UPLOAD_MB", "not-a-number")

	_, err := Load(newFlagSet(), []string{"--env", noEnv(t)})
	require.Error(t, err)

	c, err := Load(newFlagSet(), []string{"--env", noEnv(t), "--max-upload-mb", "10"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, 15*time.Minute, c.SessionTTL)
	assert.Equal(t, int64(10), c.MaxUploadMB, "flags win over env")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCRIBE_BACKEND=openai\nOPENAI_API_KEY=sk-test\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SCRIBE_BACKEND")
		os.Unsetenv("OPENAI_API_KEY")
	})

	c, err := Load(newFlagSet(), []string{"-e", path})
	require.NoError(t, err)
	assert.Equal(t, BackendOpenAI, c.Backend)
	assert.Equal(t, "sk-test", c.OpenAIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Backend: BackendLocal, LogLevel: "info", MaxUploadMB: 1, MaxSessions: 1}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.Backend = BackendOpenAI
	require.ErrorContains(t, c.Validate(), "OPENAI_API_KEY")

	c = base()
	c.Backend = "cloud"
	require.ErrorContains(t, c.Validate(), "unknown backend")

	c = base()
	c.LogLevel = "loud"
	require.ErrorContains(t, c.Validate(), "log level")

	c = base()
	c.MaxSessions = 0
	require.Error(t, c.Validate())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	c := &Config{LogLevel: "warn"}
	l := c.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
