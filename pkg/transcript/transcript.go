package transcript

// Word is the finest timed unit inside a segment. Text is already trimmed.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Segment is a contiguous span of speech. Words may be empty.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Result is what a transcription provider hands back for one run.
type Result struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments,omitempty"`
}

// Row is the flat unit rendered in the table and written to CSV.
type Row struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}

// Duration returns the end of the last segment, or 0 for an empty result.
func (r Result) Duration() float64 {
	if len(r.Segments) == 0 {
		return 0
	}
	return r.Segments[len(r.Segments)-1].End
}
