package stt

import (
	"strings"
	"unicode"

	"scribe/pkg/transcript"
)

type token struct {
	Text       string
	Start, End float64
}

// joinTokens folds whisper sub-word tokens into words. A token that begins
// with whitespace starts a new word; anything else extends the current one.
func joinTokens(toks []token) []transcript.Word {
	var (
		words []transcript.Word
		cur   *transcript.Word
		text  strings.Builder
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(text.String())
		if cur.Text != "" {
			words = append(words, *cur)
		}
		cur = nil
		text.Reset()
	}

	for _, tk := range toks {
		if tk.Text == "" {
			continue
		}
		if cur == nil || startsWithSpace(tk.Text) {
			flush()
			cur = &transcript.Word{Start: tk.Start, End: tk.End}
		}
		text.WriteString(tk.Text)
		cur.End = tk.End
	}
	flush()
	return words
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}
