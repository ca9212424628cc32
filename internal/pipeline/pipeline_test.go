package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/internal/media"
	"scribe/pkg/progress"
	"scribe/pkg/stt"
	"scribe/pkg/transcript"
)

type fakeExtractor struct {
	out   string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractAudio(_ context.Context, _ string, report progress.Func) (string, error) {
	f.calls++
	report.Report(progress.Event{Stage: progress.StageExtract, Current: 1, Total: 1})
	return f.out, f.err
}

type fakeProvider struct {
	gotPath string
	gotOpt  stt.Options
	res     transcript.Result
	err     error
}

func (f *fakeProvider) TranscribeFile(_ context.Context, path string, opt stt.Options, report progress.Func) (transcript.Result, error) {
	f.gotPath, f.gotOpt = path, opt
	report.Report(progress.Event{Stage: progress.StageTranscribe, Current: 100, Total: 100})
	return f.res, f.err
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))
	return path
}

func TestRunAudio(t *testing.T) {
	ex := &fakeExtractor{}
	pr := &fakeProvider{res: transcript.Result{Language: "en", Segments: []transcript.Segment{{End: 1, Text: "hi"}}}}
	p := &Pipeline{Extractor: ex, Provider: pr, Threads: 2}
	in := touch(t, "talk.wav")

	var stages []string
	out, err := p.Run(context.Background(), in, Request{Model: "tiny", Language: "en"}, func(e progress.Event) {
		stages = append(stages, e.Stage)
	})
	require.NoError(t, err)
	assert.Zero(t, ex.calls)
	assert.Equal(t, in, out.AudioPath)
	assert.Equal(t, in, pr.gotPath)
	assert.Equal(t, stt.Options{Model: "tiny", Language: "en", Threads: 2}, pr.gotOpt)
	assert.Equal(t, "en", out.Result.Language)
	assert.Equal(t, []string{progress.StageTranscribe}, stages)
}

func TestRunVideoExtractsFirst(t *testing.T) {
	ex := &fakeExtractor{out: "/tmp/extracted.wav"}
	pr := &fakeProvider{}
	p := &Pipeline{Extractor: ex, Provider: pr}

	out, err := p.Run(context.Background(), touch(t, "clip.mkv"), Request{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, "/tmp/extracted.wav", pr.gotPath)
	assert.Equal(t, "/tmp/extracted.wav", out.AudioPath)
}

func TestRunNoAudio(t *testing.T) {
	p := &Pipeline{Extractor: &fakeExtractor{err: media.ErrNoAudio}, Provider: &fakeProvider{}}
	_, err := p.Run(context.Background(), touch(t, "silent.mp4"), Request{}, nil)
	require.Error(t, err)
	assert.True(t, NoAudio(err))
}

func TestRunProviderError(t *testing.T) {
	p := &Pipeline{Extractor: &fakeExtractor{}, Provider: &fakeProvider{err: errors.New("boom")}}
	_, err := p.Run(context.Background(), touch(t, "a.flac"), Request{}, nil)
	require.ErrorContains(t, err, "transcribe: boom")
	assert.False(t, NoAudio(err))
}

func TestRunMissingInput(t *testing.T) {
	p := &Pipeline{Extractor: &fakeExtractor{}, Provider: &fakeProvider{}}
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "gone.wav"), Request{}, nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunExtractsUndecodableAudio(t *testing.T) {
	ex := &fakeExtractor{out: "/tmp/voice.wav"}
	pr := &fakeProvider{}
	p := &Pipeline{Extractor: ex, Provider: pr}

	out, err := p.Run(context.Background(), touch(t, "voice.aac"), Request{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, "/tmp/voice.wav", pr.gotPath)
	assert.Equal(t, "/tmp/voice.wav", out.AudioPath)
}
