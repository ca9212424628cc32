package pipeline

import (
	"fmt"
	"io"
	log "log/slog"
	"time"

	"scribe/internal/config"
	"scribe/internal/media"
	"scribe/internal/proxy"
	"scribe/pkg/stt"
)

const openAITimeout = 10 * time.Minute

// FromConfig wires the extractor and the configured provider. The returned
// closer releases loaded models.
func FromConfig(cfg *config.Config) (*Pipeline, io.Closer, error) {
	p := &Pipeline{
		Extractor: media.Extractor{FFmpeg: cfg.FFmpeg, FFprobe: cfg.FFprobe, TmpDir: cfg.UploadDir},
		Threads:   cfg.Threads,
	}

	switch cfg.Backend {
	case config.BackendOpenAI:
		httpClient, err := proxy.NewHTTPClient(cfg.Proxy, openAITimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("proxy %s: %w", cfg.Proxy, err)
		}
		provider, err := stt.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, httpClient)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("Using OpenAI backend", "model", cfg.OpenAIModel, "proxy", cfg.Proxy)
		p.Provider = provider
		return p, nopCloser{}, nil
	default:
		local, err := stt.NewLocal(cfg.ModelsDir, cfg.MaxLoadedModels)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("Using local whisper backend", "models", cfg.ModelsDir)
		p.Provider = local
		return p, local, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
