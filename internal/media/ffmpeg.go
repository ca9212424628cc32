package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"scribe/pkg/progress"
)

// ErrNoAudio means the input has no audio track to extract.
var ErrNoAudio = errors.New("no audio stream in input")

type Extractor struct {
	FFmpeg  string // ffmpeg binary; "" => "ffmpeg" from PATH
	FFprobe string // ffprobe binary; "" => "ffprobe" from PATH
	TmpDir  string // "" => os.TempDir()
}

// ExtractAudio writes the first audio stream of videoPath as mono 16 kHz
// pcm_s16le wav and returns its path. Progress is reported as seconds of
// output against the probed input duration.
func (e Extractor) ExtractAudio(ctx context.Context, videoPath string, report progress.Func) (string, error) {
	tmpDir := e.TmpDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	f, err := os.CreateTemp(tmpDir, strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))+"_*.wav")
	if err != nil {
		return "", err
	}
	out := f.Name()
	f.Close()

	duration := e.probeDuration(ctx, videoPath)

	// ffmpeg -y -i input -map 0:a:0 -vn -ac 1 -ar 16000 -c:a pcm_s16le -progress pipe:1 output
	cmd := exec.CommandContext(ctx, e.bin(e.FFmpeg, "ffmpeg"),
		"-hide_banner", "-nostats", "-y",
		"-i", videoPath,
		"-map", "0:a:0", "-vn",
		"-ac", "1", "-ar", "16000",
		"-c:a", "pcm_s16le",
		"-progress", "pipe:1",
		"-f", "wav", out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(out)
		return "", err
	}
	if err := cmd.Start(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w", err)
	}

	report.Report(progress.FromPosition(progress.StageExtract, 0, duration))
	readProgress(stdout, func(pos float64) {
		report.Report(progress.FromPosition(progress.StageExtract, pos, duration))
	})

	if err := cmd.Wait(); err != nil {
		os.Remove(out)
		if noAudio(stderr.String()) {
			return "", ErrNoAudio
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}

	report.Report(progress.Event{Stage: progress.StageExtract, Unit: "s", Current: duration, Total: duration})
	return out, nil
}

func (e Extractor) bin(path, def string) string {
	if path == "" {
		return def
	}
	return path
}

// probeDuration returns 0 when the duration is unknown; progress then
// carries positions without a total.
func (e Extractor) probeDuration(ctx context.Context, path string) float64 {
	out, err := exec.CommandContext(ctx, e.bin(e.FFprobe, "ffprobe"),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		log.Debug("ffprobe failed", "path", path, "err", err)
		return 0
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0
	}
	return d
}

// readProgress parses ffmpeg's -progress key=value stream and calls onPos
// with the output position in seconds.
func readProgress(r io.Reader, onPos func(float64)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms": // both are microseconds
			us, err := strconv.ParseInt(val, 10, 64)
			if err != nil || us < 0 {
				continue
			}
			onPos(float64(us) / 1e6)
		}
	}
}

func noAudio(stderr string) bool {
	return strings.Contains(stderr, "matches no streams") ||
		strings.Contains(stderr, "does not contain any stream")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
