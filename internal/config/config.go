package config

import (
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"
)

const (
	BackendLocal  = "local"
	BackendOpenAI = "openai"
)

type Config struct {
	EnvFile string

	Addr            string
	Backend         string
	ModelsDir       string
	MaxLoadedModels int
	Threads         int

	UploadDir   string
	MaxUploadMB int64
	SessionTTL  time.Duration
	MaxSessions int

	FFmpeg    string
	FFprobe   string
	ThemePath string

	OpenAIKey   string
	OpenAIModel string
	Proxy       string

	LogLevel string
}

// flag name -> environment variable consulted when the flag is not given
var envFallback = map[string]string{
	"addr":           "SCRIBE_ADDR",
	"backend":        "SCRIBE_BACKEND",
	"models":         "SCRIBE_MODELS_DIR",
	"loaded-models":  "SCRIBE_LOADED_MODELS",
	"threads":        "SCRIBE_THREADS",
	"uploads":        "SCRIBE_UPLOAD_DIR",
	"max-upload-mb":  "SCRIBE_MAX_UPLOAD_MB",
	"session-ttl":    "SCRIBE_SESSION_TTL",
	"max-sessions":   "SCRIBE_MAX_SESSIONS",
	"ffmpeg":         "SCRIBE_FFMPEG",
	"ffprobe":        "SCRIBE_FFPROBE",
	"theme-file":     "SCRIBE_THEME_FILE",
	"openai-api-key": "OPENAI_API_KEY",
	"openai-model":   "SCRIBE_OPENAI_MODEL",
	"proxy":          "SCRIBE_PROXY",
	"log":            "SCRIBE_LOG",
}

// Flags registers every setting on fs and returns the Config they fill.
func Flags(fs *cli.FlagSet) *Config {
	c := &Config{}
	fs.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&c.Addr, "addr", "a", ":8501", "HTTP listen address")
	fs.StringVarP(&c.Backend, "backend", "b", BackendLocal, "Transcription backend: local|openai")
	fs.StringVar(&c.ModelsDir, "models", "models", "Directory with ggml whisper models")
	fs.IntVar(&c.MaxLoadedModels, "loaded-models", 1, "Whisper models kept in memory")
	fs.IntVar(&c.Threads, "threads", 0, "Whisper threads (0 = all CPUs)")
	fs.StringVar(&c.UploadDir, "uploads", os.TempDir(), "Directory for uploaded and extracted files")
	fs.Int64Var(&c.MaxUploadMB, "max-upload-mb", 200, "Maximum upload size in MB")
	fs.DurationVar(&c.SessionTTL, "session-ttl", 2*time.Hour, "Session lifetime, counted from upload")
	fs.IntVar(&c.MaxSessions, "max-sessions", 256, "Maximum concurrent sessions")
	fs.StringVar(&c.FFmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	fs.StringVar(&c.FFprobe, "ffprobe", "ffprobe", "ffprobe binary")
	fs.StringVar(&c.ThemePath, "theme-file", ".scribe/config.toml", "Persisted theme file")
	fs.StringVar(&c.OpenAIKey, "openai-api-key", "", "OpenAI API key (or OPENAI_API_KEY)")
	fs.StringVar(&c.OpenAIModel, "openai-model", "whisper-1", "OpenAI transcription model")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "Socks proxy address for OpenAI")
	fs.StringVarP(&c.LogLevel, "log", "l", "info", "Log level")
	return c
}

// Load parses args, reads the env file and fills unset flags from the
// environment.
func Load(fs *cli.FlagSet, args []string) (*Config, error) {
	c := Flags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("env file %s: %w", c.EnvFile, err)
	}
	for name, env := range envFallback {
		if fs.Changed(name) {
			continue
		}
		if v, ok := os.LookupEnv(env); ok && v != "" {
			if err := fs.Set(name, v); err != nil {
				return nil, fmt.Errorf("%s: %w", env, err)
			}
		}
	}
	return c, c.Validate()
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendOpenAI:
		if c.OpenAIKey == "" {
			return errors.New("openai backend selected but OPENAI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	if _, ok := logLevelMap[c.LogLevel]; !ok {
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("max-upload-mb must be positive")
	}
	if c.MaxSessions <= 0 {
		return errors.New("max-sessions must be positive")
	}
	return nil
}

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Logger builds the colored handler used by both binaries.
func (c *Config) Logger(w io.Writer) *log.Logger {
	return log.New(tint.NewHandler(w, &tint.Options{
		Level:      logLevelMap[c.LogLevel],
		TimeFormat: time.TimeOnly,
	}))
}
