package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"scribe/internal/config"
	"scribe/internal/lang"
	"scribe/internal/pipeline"
	"scribe/pkg/progress"
	"scribe/pkg/stt"
	"scribe/pkg/transcript"
)

func main() {
	input := cli.StringP("input", "i", "", "Audio or video file to transcribe")
	output := cli.StringP("output", "o", "", "CSV output path (default transcription_<time>.csv)")
	words := cli.Bool("words", true, "One row per word when word timings are available")
	chunk := cli.Int("chunk", 0, "Group words into rows of this many words (0 = off)")
	model := cli.StringP("model", "m", stt.DefaultModel, "Model size: tiny|base|small|medium|large")
	language := cli.String("language", "en", "Language code, empty to auto-detect")

	cfg, err := config.Load(cli.CommandLine, os.Args[1:])
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}
	log.SetDefault(cfg.Logger(os.Stderr))

	if err := run(cfg, *input, *output, *model, *language, transcript.FormatOptions{
		IncludeWords: *words,
		ChunkSize:    *chunk,
	}); err != nil {
		log.Error("Transcription failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, input, output, model, language string, opt transcript.FormatOptions) error {
	if input == "" {
		return errors.New("--input is required")
	}
	if !stt.ValidModel(model) {
		return fmt.Errorf("%w: %q", stt.ErrUnknownModel, model)
	}
	if !lang.Known(language) {
		return fmt.Errorf("unknown language %q", language)
	}
	if opt.ChunkSize < 0 || opt.ChunkSize > 50 {
		return errors.New("--chunk must be between 0 and 50")
	}

	p, closer, err := pipeline.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := progress.Throttle(func(e progress.Event) {
		log.Info("Progress", "stage", e.Stage, "percent", e.Percent(), "unit", e.Unit)
	}, 10)

	out, err := p.Run(ctx, input, pipeline.Request{Model: model, Language: language}, report)
	if out.AudioPath != "" && out.AudioPath != input {
		defer os.Remove(out.AudioPath)
	}
	if pipeline.NoAudio(err) {
		return fmt.Errorf("%s has no audio track", input)
	}
	if err != nil {
		return err
	}

	rows := transcript.Format(out.Result, opt)
	if output == "" {
		output = transcript.CSVFileName(time.Now())
	}
	if err := writeCSV(output, rows); err != nil {
		return err
	}
	abs, _ := filepath.Abs(output)
	log.Info("Saved", "rows", len(rows), "language", out.Result.Language, "file", abs)
	return nil
}

func writeCSV(path string, rows []transcript.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := transcript.WriteCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
