package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"

	"scribe/pkg/progress"
)

const SampleRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int
	Progress   progress.Func
}

type decodeFunc func(io.ReadSeeker) ([]float32, error)

var byExt = map[string]decodeFunc{
	".wav":  decodeWAV,
	".mp3":  decodeMP3,
	".ogg":  decodeOgg,
	".oga":  decodeOgg,
	".opus": decodeOggOpus,
	".flac": decodeFLAC,
}

// Supported reports whether path's extension has a native decoder.
// Anything else has to be converted by ffmpeg first.
func Supported(path string) bool {
	_, ok := byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ConvertFileToPCM16k decodes path into mono float32 samples at 16 kHz.
func ConvertFileToPCM16k(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opt.Progress.Report(progress.Event{Stage: progress.StageDecode, Unit: "file", Current: 0, Total: 1})

	dec, err := pickDecoder(f, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}

	opt.Progress.Report(progress.Event{
		Stage:   progress.StageDecode,
		Unit:    "file",
		Current: 1,
		Total:   1,
		Message: fmt.Sprintf("%.1fs of audio", Duration(x)),
	})
	return x, nil
}

// Duration is the length of 16 kHz pcm in seconds.
func Duration(pcm []float32) float64 {
	return float64(len(pcm)) / SampleRate
}

func pickDecoder(f io.ReadSeeker, ext string) (decodeFunc, error) {
	if dec, ok := byExt[strings.ToLower(ext)]; ok {
		return dec, nil
	}
	// Quick sniff
	magic, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch {
	case string(magic) == "RIFF":
		return decodeWAV, nil
	case string(magic) == "OggS":
		return decodeOgg, nil
	case string(magic) == "fLaC":
		return decodeFLAC, nil
	case len(magic) >= 3 && string(magic[:3]) == "ID3",
		len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return decodeMP3, nil
	}
	return nil, fmt.Errorf("%w: %q (supported: wav/mp3/ogg-vorbis/opus/flac)", ErrUnsupported, ext)
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err == nil {
			err = errors.New("empty wav")
		}
		return nil, err
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intSliceToFloat32(pb.Data, bd)

	ch := 1
	sr := 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return resampleLinear(downmixInterleaved(x, ch), sr, SampleRate), nil
}

func decodeMP3(r io.ReadSeeker) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}
	// go-mp3 always produces interleaved stereo
	x := downmixInterleaved(int16SliceToFloat32(ints), 2)

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	return resampleLinear(x, sr, SampleRate), nil
}

// decodeOgg tries Vorbis first and falls back to Opus.
func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	x, err := decodeOggVorbis(r)
	if err == nil {
		return x, nil
	}
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	x, oerr := decodeOggOpus(r)
	if oerr != nil {
		return nil, fmt.Errorf("not vorbis (%v) nor opus: %w", err, oerr)
	}
	return x, nil
}

func decodeOggVorbis(r io.ReadSeeker) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	return resampleLinear(downmixInterleaved(pcm, format.Channels), format.SampleRate, SampleRate), nil
}

func decodeOggOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// opus always decodes at 48 kHz; read ~0.5s per call
	var (
		pcm48 []float32
		buf   = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf) // samples per channel
		if n > 0 {
			pcm48 = append(pcm48, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm48) == 0 {
		return nil, errors.New("empty opus stream")
	}
	return resampleLinear(downmixInterleaved(pcm48, ch), 48000, SampleRate), nil
}
