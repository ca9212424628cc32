package stt

import (
	"context"
	"fmt"
	log "log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"scribe/pkg/audioconv"
	"scribe/pkg/progress"
	"scribe/pkg/transcript"
)

type pcmTranscriber interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt Options, report progress.Func) (transcript.Result, error)
	Close() error
}

var modelFiles = map[string]string{
	"tiny":   "ggml-tiny.bin",
	"base":   "ggml-base.bin",
	"small":  "ggml-small.bin",
	"medium": "ggml-medium.bin",
	"large":  "ggml-large-v3.bin",
}

// Local runs whisper.cpp in process. Loaded models are kept in a small LRU.
// An evicted model is closed once its last running transcription ends.
type Local struct {
	dir string

	mu     sync.Mutex
	models *lru.Cache[string, *loadedModel]
	load   func(path string) (pcmTranscriber, error)
}

// loadedModel counts the transcriptions using a model. Fields are guarded
// by Local.mu.
type loadedModel struct {
	name    string
	m       pcmTranscriber
	refs    int
	evicted bool
}

func NewLocal(modelsDir string, maxLoaded int) (*Local, error) {
	return newLocal(modelsDir, maxLoaded, func(path string) (pcmTranscriber, error) {
		return NewTranscriber(path)
	})
}

func newLocal(modelsDir string, maxLoaded int, load func(string) (pcmTranscriber, error)) (*Local, error) {
	if maxLoaded <= 0 {
		maxLoaded = 1
	}
	l := &Local{dir: modelsDir, load: load}
	cache, err := lru.NewWithEvict(maxLoaded, l.onEvict)
	if err != nil {
		return nil, err
	}
	l.models = cache
	return l, nil
}

// onEvict runs with l.mu held.
func (l *Local) onEvict(name string, lm *loadedModel) {
	lm.evicted = true
	if lm.refs == 0 {
		closeModel(lm)
	}
}

func closeModel(lm *loadedModel) {
	log.Debug("Unloading whisper model", "model", lm.name)
	if err := lm.m.Close(); err != nil {
		log.Warn("Failed to close model", "model", lm.name, "err", err)
	}
}

// ModelPath resolves a model size to its ggml file.
func (l *Local) ModelPath(name string) (string, error) {
	file, ok := modelFiles[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return filepath.Join(l.dir, file), nil
}

func (l *Local) TranscribeFile(ctx context.Context, path string, opt Options, report progress.Func) (transcript.Result, error) {
	lm, err := l.acquire(opt.model())
	if err != nil {
		return transcript.Result{}, err
	}
	defer l.release(lm)

	pcm, err := audioconv.ConvertFileToPCM16k(ctx, path, audioconv.Options{Progress: report})
	if err != nil {
		return transcript.Result{}, err
	}
	return lm.m.TranscribePCM(ctx, pcm, opt, report)
}

// acquire returns the named model, loading it if needed. The model stays
// open until the matching release.
func (l *Local) acquire(name string) (*loadedModel, error) {
	path, err := l.ModelPath(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lm, ok := l.models.Get(name); ok {
		lm.refs++
		return lm, nil
	}
	log.Info("Loading whisper model", "model", name, "path", path)
	m, err := l.load(path)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	lm := &loadedModel{name: name, m: m, refs: 1}
	l.models.Add(name, lm)
	return lm, nil
}

func (l *Local) release(lm *loadedModel) {
	l.mu.Lock()
	lm.refs--
	done := lm.evicted && lm.refs == 0
	l.mu.Unlock()
	if done {
		closeModel(lm)
	}
}

// Close unloads every cached model. Models still in use are closed when
// their transcription ends.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.models.Purge()
	return nil
}
