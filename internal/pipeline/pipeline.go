package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"

	"scribe/internal/media"
	"scribe/pkg/audioconv"
	"scribe/pkg/progress"
	"scribe/pkg/stt"
	"scribe/pkg/transcript"
)

type Request struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

type Output struct {
	AudioPath string
	Result    transcript.Result
}

type extractor interface {
	ExtractAudio(ctx context.Context, videoPath string, report progress.Func) (string, error)
}

// Pipeline takes one uploaded file through audio extraction and
// transcription.
type Pipeline struct {
	Extractor extractor
	Provider  stt.Provider
	Threads   int
}

// Run transcribes inputPath. Output.AudioPath is the file that was fed to
// the provider; it differs from inputPath only when audio was extracted,
// and it is returned even on failure so the caller can remove it.
func (p *Pipeline) Run(ctx context.Context, inputPath string, req Request, report progress.Func) (Output, error) {
	out := Output{AudioPath: inputPath}

	extract, err := needsExtraction(inputPath)
	if err != nil {
		return out, err
	}
	if extract {
		log.Info("Extracting audio", "input", inputPath)
		audio, err := p.Extractor.ExtractAudio(ctx, inputPath, report)
		if err != nil {
			return out, fmt.Errorf("extract audio: %w", err)
		}
		out.AudioPath = audio
	}

	opt := stt.Options{Model: req.Model, Language: req.Language, Threads: p.Threads}
	log.Info("Transcribing", "audio", out.AudioPath, "model", opt.Model, "language", opt.Language)
	res, err := p.Provider.TranscribeFile(ctx, out.AudioPath, opt, report)
	if err != nil {
		return out, fmt.Errorf("transcribe: %w", err)
	}
	if err := transcript.Validate(res); err != nil {
		log.Warn("Provider returned inconsistent timings", "err", err)
	}
	log.Info("Transcribed", "segments", len(res.Segments), "language", res.Language)

	out.Result = res
	return out, nil
}

// NoAudio reports whether err came from an input without an audio track.
func NoAudio(err error) bool {
	return errors.Is(err, media.ErrNoAudio)
}

// needsExtraction is true for video and for audio containers the native
// decoders cannot read, such as aac.
func needsExtraction(path string) (bool, error) {
	video, err := sniffVideo(path)
	if err != nil || video {
		return video, err
	}
	return !audioconv.Supported(path), nil
}

func sniffVideo(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 3072)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return media.IsVideo(path, head[:n]), nil
}
