package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"scribe/pkg/progress"
	"scribe/pkg/transcript"
)

type Transcriber struct {
	mu    sync.Mutex // whisper_full is not safe to run twice on one model
	model whisper.Model
}

func NewTranscriber(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m}, nil
}

// Close waits for a running transcription and releases the model.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// TranscribePCM runs whisper over pcm16k, which must be mono @ 16 kHz,
// float32 in [-1, 1]. Segments come back with word timings.
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options, report progress.Func) (transcript.Result, error) {
	if len(pcm16k) == 0 {
		return transcript.Result{}, errors.New("no audio samples provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return transcript.Result{}, errors.New("model closed")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return transcript.Result{}, fmt.Errorf("new context: %w", err)
	}
	if err := configure(wctx, opt); err != nil {
		return transcript.Result{}, err
	}

	onProgress := func(pct int) {
		report.Report(progress.Event{
			Stage:   progress.StageTranscribe,
			Unit:    "%",
			Current: float64(pct),
			Total:   100,
		})
	}
	if err := wctx.Process(pcm16k, nil, nil, onProgress); err != nil {
		return transcript.Result{}, fmt.Errorf("process: %w", err)
	}

	var res transcript.Result
	for {
		if err := ctx.Err(); err != nil {
			return transcript.Result{}, err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return transcript.Result{}, fmt.Errorf("next segment: %w", err)
		}

		toks := make([]token, 0, len(s.Tokens))
		for _, tk := range s.Tokens {
			if !wctx.IsText(tk) {
				continue
			}
			toks = append(toks, token{Text: tk.Text, Start: tk.Start.Seconds(), End: tk.End.Seconds()})
		}
		res.Segments = append(res.Segments, transcript.Segment{
			Start: s.Start.Seconds(),
			End:   s.End.Seconds(),
			Text:  strings.TrimSpace(s.Text),
			Words: joinTokens(toks),
		})
	}

	res.Language = wctx.DetectedLanguage()
	if res.Language == "" {
		res.Language = wctx.Language()
	}
	return res, nil
}

func configure(wctx whisper.Context, opt Options) error {
	if err := wctx.SetLanguage(opt.language()); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)
	wctx.SetTokenTimestamps(true)

	if opt.Offset > 0 {
		wctx.SetOffset(opt.Offset)
	}
	if opt.Duration > 0 {
		wctx.SetDuration(opt.Duration)
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.MaxSegmentChars > 0 {
		wctx.SetMaxSegmentLength(opt.MaxSegmentChars)
	}
	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	if opt.Temperature != 0 {
		wctx.SetTemperature(opt.Temperature)
	}
	return nil
}
