package stt

import (
	"context"
	"errors"
	"time"

	"scribe/pkg/progress"
	"scribe/pkg/transcript"
)

var ErrUnknownModel = errors.New("unknown model")

// ModelSizes are the selectable model sizes, smallest first.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large"}

const DefaultModel = "base"

type Options struct {
	Model           string        // one of ModelSizes; "" => DefaultModel
	Language        string        // e.g. "en", "ru"; "" or "auto" => detect
	TranslateToEn   bool          // if true, translate non-EN -> EN
	Threads         int           // <=0 => NumCPU()
	InitialPrompt   string        // optional system/prefix prompt
	MaxSegmentChars uint          // 0 = default
	BeamSize        int           // 0 = default (greedy); >0 enables beam search
	Temperature     float32       // 0 = default
	Offset          time.Duration // start offset (optional)
	Duration        time.Duration // max duration (optional)
}

func (o Options) model() string {
	if o.Model == "" {
		return DefaultModel
	}
	return o.Model
}

func (o Options) language() string {
	if o.Language == "" {
		return "auto"
	}
	return o.Language
}

// Provider turns an audio file into timed segments with word timings.
type Provider interface {
	TranscribeFile(ctx context.Context, path string, opt Options, report progress.Func) (transcript.Result, error)
}

func ValidModel(name string) bool {
	for _, m := range ModelSizes {
		if m == name {
			return true
		}
	}
	return false
}
