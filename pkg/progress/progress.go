package progress

const (
	StageExtract    = "extract"
	StageDecode     = "decode"
	StageTranscribe = "transcribe"
	StageDone       = "done"
	StageError      = "error"
)

// Event is one progress tick: Current out of Total units of Unit.
type Event struct {
	Stage   string  `json:"stage"`
	Unit    string  `json:"unit"`
	Current float64 `json:"current"`
	Total   float64 `json:"total"`
	Message string  `json:"message,omitempty"`
}

// Percent maps the event onto 0..100. A zero or negative total counts as 1.
func (e Event) Percent() int {
	total := e.Total
	if total < 1 {
		total = 1
	}
	pct := int(e.Current / total * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Func consumes progress events. A nil Func is valid and drops everything.
type Func func(Event)

func Nop(Event) {}

func (f Func) Report(e Event) {
	if f != nil {
		f(e)
	}
}

// FromPosition builds an event from a media timestamp, for providers that
// only know how far into the audio they got.
func FromPosition(stage string, pos, duration float64) Event {
	if duration <= 0 {
		return Event{Stage: stage, Unit: "s", Current: pos}
	}
	return Event{Stage: stage, Unit: "s", Current: min(pos, duration), Total: duration}
}

// Throttle forwards an event only when its stage changed, it reached 100%,
// or its percent moved by at least minDelta since the last forwarded one.
func Throttle(f Func, minDelta int) Func {
	if f == nil {
		return nil
	}
	var (
		stage string
		last  = -1
	)
	return func(e Event) {
		pct := e.Percent()
		if e.Stage == stage && pct < 100 && pct-last < minDelta {
			return
		}
		stage, last = e.Stage, pct
		f(e)
	}
}
