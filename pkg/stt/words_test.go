package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scribe/pkg/transcript"
)

func TestJoinTokens(t *testing.T) {
	toks := []token{
		{Text: " Hel", Start: 0.0, End: 0.2},
		{Text: "lo", Start: 0.2, End: 0.4},
		{Text: ",", Start: 0.4, End: 0.45},
		{Text: " world", Start: 0.5, End: 1.0},
		{Text: "", Start: 1.0, End: 1.0},
		{Text: " ", Start: 1.0, End: 1.1},
		{Text: " again", Start: 1.2, End: 1.6},
	}
	assert.Equal(t, []transcript.Word{
		{Start: 0.0, End: 0.45, Text: "Hello,"},
		{Start: 0.5, End: 1.0, Text: "world"},
		{Start: 1.2, End: 1.6, Text: "again"},
	}, joinTokens(toks))
}

func TestJoinTokensLeadingFragment(t *testing.T) {
	toks := []token{
		{Text: "Hi", Start: 0, End: 0.1},
		{Text: "!", Start: 0.1, End: 0.2},
	}
	assert.Equal(t, []transcript.Word{{Start: 0, End: 0.2, Text: "Hi!"}}, joinTokens(toks))
	assert.Empty(t, joinTokens(nil))
}

func TestVerboseResult(t *testing.T) {
	v := verboseTranscription{
		Language: "english",
		Segments: []verboseSegment{
			{Start: 0, End: 2, Text: " hello world "},
			{Start: 2, End: 3.5, Text: " bye "},
		},
		Words: []verboseWord{
			{Word: "hello", Start: 0, End: 0.5},
			{Word: "world", Start: 0.6, End: 2.0},
			{Word: " bye", Start: 2.1, End: 3.4},
		},
	}
	res := v.result()
	assert.Equal(t, "english", res.Language)
	assert.Equal(t, []transcript.Segment{
		{Start: 0, End: 2, Text: "hello world", Words: []transcript.Word{
			{Start: 0, End: 0.5, Text: "hello"},
			{Start: 0.6, End: 2.0, Text: "world"},
		}},
		{Start: 2, End: 3.5, Text: "bye", Words: []transcript.Word{
			{Start: 2.1, End: 3.4, Text: "bye"},
		}},
	}, res.Segments)
}

func TestVerboseResultTextOnly(t *testing.T) {
	v := verboseTranscription{Text: " just text ", Duration: 4}
	assert.Equal(t, []transcript.Segment{{Start: 0, End: 4, Text: "just text"}}, v.result().Segments)

	assert.Empty(t, verboseTranscription{}.result().Segments)
}

func TestAttachWordsTrailingWordsGoToLastSegment(t *testing.T) {
	segs := []transcript.Segment{{Start: 0, End: 1}, {Start: 1, End: 2}}
	attachWords(segs, []verboseWord{{Word: "late", Start: 5, End: 6}})
	assert.Empty(t, segs[0].Words)
	assert.Len(t, segs[1].Words, 1)
}

func TestValidModel(t *testing.T) {
	for _, m := range ModelSizes {
		assert.True(t, ValidModel(m))
	}
	assert.False(t, ValidModel("huge"))
	assert.False(t, ValidModel(""))
}
