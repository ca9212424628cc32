package media

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/pkg/progress"
)

func TestReadProgress(t *testing.T) {
	in := strings.Join([]string{
		"frame=0",
		"out_time_us=1500000",
		"out_time_ms=3000000",
		"out_time=00:00:03.000000",
		"out_time_us=N/A",
		"progress=continue",
		"out_time_us=-1",
		"progress=end",
	}, "\n")

	var got []float64
	readProgress(strings.NewReader(in), func(p float64) { got = append(got, p) })
	assert.Equal(t, []float64{1.5, 3}, got)
}

func TestNoAudio(t *testing.T) {
	assert.True(t, noAudio("Stream map '0:a:0' matches no streams.\nTo ignore this, add a trailing '?' to the map."))
	assert.True(t, noAudio("Output file #0 does not contain any stream"))
	assert.False(t, noAudio("Invalid data found when processing input"))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "c", lastLine("a\nb\nc\n"))
	assert.Equal(t, "only", lastLine("only"))
}

func TestExtractAudio(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	gen := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "color=c=black:s=64x64:d=1",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-shortest", video)
	require.NoError(t, gen.Run())

	var last progress.Event
	out, err := Extractor{TmpDir: dir}.ExtractAudio(context.Background(), video, func(e progress.Event) { last = e })
	require.NoError(t, err)
	defer os.Remove(out)

	assert.Equal(t, ".wav", filepath.Ext(out))
	assert.Equal(t, progress.StageExtract, last.Stage)
	fi, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(44))
}

func TestExtractAudioNoAudioTrack(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	video := filepath.Join(dir, "silent.mp4")
	gen := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "color=c=black:s=64x64:d=1", video)
	require.NoError(t, gen.Run())

	_, err := Extractor{TmpDir: dir}.ExtractAudio(context.Background(), video, nil)
	require.ErrorIs(t, err, ErrNoAudio)

	left, _ := filepath.Glob(filepath.Join(dir, "*.wav"))
	assert.Empty(t, left)
}
