package transcript

import "strings"

type Mode int

const (
	ModeSegment Mode = iota
	ModeWord
	ModeChunk
)

func (m Mode) String() string {
	switch m {
	case ModeWord:
		return "word"
	case ModeChunk:
		return "chunk"
	default:
		return "segment"
	}
}

// FormatOptions selects row granularity. ChunkSize <= 0 disables chunking.
type FormatOptions struct {
	IncludeWords bool `json:"include_words"`
	ChunkSize    int  `json:"chunk_size"`
}

// Mode reports which granularity applies to seg. The decision is made per
// segment: a segment without words always falls back to ModeSegment.
func (o FormatOptions) Mode(seg Segment) Mode {
	switch {
	case len(seg.Words) == 0:
		return ModeSegment
	case o.ChunkSize > 0:
		return ModeChunk
	case o.IncludeWords:
		return ModeWord
	default:
		return ModeSegment
	}
}

// Format flattens res into display rows. It never fails and never touches
// res; timestamps are copied as given, in input order.
func Format(res Result, opt FormatOptions) []Row {
	rows := make([]Row, 0, len(res.Segments))
	for _, seg := range res.Segments {
		switch opt.Mode(seg) {
		case ModeChunk:
			rows = appendChunks(rows, seg.Words, opt.ChunkSize)
		case ModeWord:
			for _, w := range seg.Words {
				rows = append(rows, Row{StartTime: w.Start, EndTime: w.End, Text: w.Text})
			}
		default:
			rows = append(rows, Row{
				StartTime: seg.Start,
				EndTime:   seg.End,
				Text:      strings.TrimSpace(seg.Text),
			})
		}
	}
	return rows
}

func appendChunks(rows []Row, words []Word, size int) []Row {
	texts := make([]string, 0, min(size, len(words)))
	for i := 0; i < len(words); i += size {
		chunk := words[i:min(i+size, len(words))]
		texts = texts[:0]
		for _, w := range chunk {
			texts = append(texts, w.Text)
		}
		rows = append(rows, Row{
			StartTime: chunk[0].Start,
			EndTime:   chunk[len(chunk)-1].End,
			Text:      strings.Join(texts, " "),
		})
	}
	return rows
}
