package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"scribe/pkg/progress"
	"scribe/pkg/transcript"
)

// OpenAI sends the file to the hosted transcription endpoint. Only
// whisper-1 returns segment and word timestamps.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, httpClient *http.Client) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("empty api key")
	}
	if model == "" {
		model = "whisper-1"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

type verboseWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type verboseSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type verboseTranscription struct {
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Text     string           `json:"text"`
	Segments []verboseSegment `json:"segments"`
	Words    []verboseWord    `json:"words"`
}

func (o *OpenAI) TranscribeFile(ctx context.Context, path string, opt Options, report progress.Func) (transcript.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return transcript.Result{}, err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  openai.AudioModel(o.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word", "segment"},
	}
	if lang := opt.language(); lang != "auto" {
		params.Language = openai.String(lang)
	}
	if opt.InitialPrompt != "" {
		params.Prompt = openai.String(opt.InitialPrompt)
	}

	report.Report(progress.Event{Stage: progress.StageTranscribe, Unit: "request", Current: 0, Total: 1})

	var out verboseTranscription
	if _, err := o.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&out)); err != nil {
		return transcript.Result{}, fmt.Errorf("openai transcription: %w", err)
	}

	report.Report(progress.Event{Stage: progress.StageTranscribe, Unit: "request", Current: 1, Total: 1})
	return out.result(), nil
}

func (v verboseTranscription) result() transcript.Result {
	res := transcript.Result{Language: v.Language}
	if len(v.Segments) == 0 {
		if text := strings.TrimSpace(v.Text); text != "" {
			// plain response without timings
			v.Segments = []verboseSegment{{Start: 0, End: v.Duration, Text: text}}
		}
	}
	for _, s := range v.Segments {
		res.Segments = append(res.Segments, transcript.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	attachWords(res.Segments, v.Words)
	return res
}

// attachWords hands each word to the segment it starts in. Both inputs
// are expected in time order.
func attachWords(segs []transcript.Segment, words []verboseWord) {
	if len(segs) == 0 {
		return
	}
	i := 0
	for _, w := range words {
		for i < len(segs)-1 && w.Start >= segs[i].End {
			i++
		}
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		segs[i].Words = append(segs[i].Words, transcript.Word{Start: w.Start, End: w.End, Text: text})
	}
}
