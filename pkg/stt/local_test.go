package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/pkg/progress"
	"scribe/pkg/transcript"
)

type fakeModel struct {
	path    string
	closed  bool
	gotPCM  int
	gotOpts Options
}

func (f *fakeModel) TranscribePCM(_ context.Context, pcm []float32, opt Options, report progress.Func) (transcript.Result, error) {
	if f.closed {
		return transcript.Result{}, errors.New("model closed")
	}
	f.gotPCM = len(pcm)
	f.gotOpts = opt
	report.Report(progress.Event{Stage: progress.StageTranscribe, Unit: "%", Current: 100, Total: 100})
	return transcript.Result{Language: "en", Segments: []transcript.Segment{{Start: 0, End: 1, Text: "ok"}}}, nil
}

func (f *fakeModel) Close() error {
	f.closed = true
	return nil
}

func newFakeLocal(t *testing.T, maxLoaded int) (*Local, map[string]*fakeModel) {
	t.Helper()
	loaded := map[string]*fakeModel{}
	l, err := newLocal("/models", maxLoaded, func(path string) (pcmTranscriber, error) {
		m := &fakeModel{path: path}
		loaded[filepath.Base(path)] = m
		return m, nil
	})
	require.NoError(t, err)
	return l, loaded
}

func silentWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           make([]int, 16000),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestLocalModelPath(t *testing.T) {
	l, _ := newFakeLocal(t, 1)
	p, err := l.ModelPath("large")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/models", "ggml-large-v3.bin"), p)

	_, err = l.ModelPath("gigantic")
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestLocalTranscribeFile(t *testing.T) {
	l, loaded := newFakeLocal(t, 1)
	path := silentWAV(t)

	var stages []string
	res, err := l.TranscribeFile(context.Background(), path, Options{Language: "en"}, func(e progress.Event) {
		stages = append(stages, e.Stage)
	})
	require.NoError(t, err)
	assert.Equal(t, "en", res.Language)

	m := loaded["ggml-base.bin"]
	require.NotNil(t, m)
	assert.Equal(t, 16000, m.gotPCM)
	assert.Equal(t, "en", m.gotOpts.Language)
	assert.Equal(t, []string{progress.StageDecode, progress.StageDecode, progress.StageTranscribe}, stages)
}

func TestLocalEvictsAndClosesModels(t *testing.T) {
	l, loaded := newFakeLocal(t, 1)
	path := silentWAV(t)

	_, err := l.TranscribeFile(context.Background(), path, Options{Model: "tiny"}, nil)
	require.NoError(t, err)
	_, err = l.TranscribeFile(context.Background(), path, Options{Model: "tiny"}, nil)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	_, err = l.TranscribeFile(context.Background(), path, Options{Model: "small"}, nil)
	require.NoError(t, err)
	assert.True(t, loaded["ggml-tiny.bin"].closed)
	assert.False(t, loaded["ggml-small.bin"].closed)

	require.NoError(t, l.Close())
	assert.True(t, loaded["ggml-small.bin"].closed)
}

func TestLocalUnknownModel(t *testing.T) {
	l, loaded := newFakeLocal(t, 1)
	_, err := l.TranscribeFile(context.Background(), "ignored.wav", Options{Model: "xl"}, nil)
	require.ErrorIs(t, err, ErrUnknownModel)
	assert.Empty(t, loaded)
}

func TestLocalEvictedModelStaysOpenWhileInUse(t *testing.T) {
	l, loaded := newFakeLocal(t, 1)
	path := silentWAV(t)

	tiny, err := l.acquire("tiny")
	require.NoError(t, err)

	// loading base pushes tiny out of the cache
	_, err = l.TranscribeFile(context.Background(), path, Options{Model: "base"}, nil)
	require.NoError(t, err)
	assert.False(t, loaded["ggml-tiny.bin"].closed)

	res, err := tiny.m.TranscribePCM(context.Background(), make([]float32, 10), Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Segments[0].Text)

	l.release(tiny)
	assert.True(t, loaded["ggml-tiny.bin"].closed)
	assert.False(t, loaded["ggml-base.bin"].closed)
}

func TestLocalCloseWaitsForRunningModel(t *testing.T) {
	l, loaded := newFakeLocal(t, 2)

	base, err := l.acquire("base")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	assert.False(t, loaded["ggml-base.bin"].closed)

	l.release(base)
	assert.True(t, loaded["ggml-base.bin"].closed)
}
