package session

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"sync"
	"time"

	"scribe/pkg/progress"
	"scribe/pkg/transcript"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrBusy     = errors.New("transcription already running")
	ErrNoResult = errors.New("no transcription yet")
	ErrCleared  = errors.New("session cleared")
)

// Session is the state of one user's upload, from the upload itself to the
// cached transcription. It lives until cleared or expired.
type Session struct {
	ID        string
	FileName  string
	CreatedAt time.Time

	mu         sync.Mutex
	uploadPath string
	audioPath  string
	result     *transcript.Result
	options    transcript.FormatOptions
	running    bool
	cleared    bool
	lastErr    error
	cancel     context.CancelFunc

	events *broker
}

// Info is the JSON view of a session.
type Info struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
	Running   bool      `json:"running"`
	HasResult bool      `json:"has_result"`
	Language  string    `json:"language,omitempty"`
	Segments  int       `json:"segments"`
	Error     string    `json:"error,omitempty"`
}

func newSession(id, fileName, uploadPath string) *Session {
	return &Session{
		ID:         id,
		FileName:   fileName,
		CreatedAt:  time.Now(),
		uploadPath: uploadPath,
		events:     newBroker(),
	}
}

func (s *Session) UploadPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadPath
}

// Begin marks a transcription as started and returns the context it must
// run under. The context is canceled when the session is cleared.
func (s *Session) Begin(parent context.Context, opt transcript.FormatOptions) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared {
		return nil, ErrCleared
	}
	if s.running {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	s.running = true
	s.cancel = cancel
	s.options = opt
	s.lastErr = nil
	s.events.reset()
	return ctx, nil
}

// Finish records the outcome of the run started by Begin and notifies
// subscribers with a done or error event.
func (s *Session) Finish(res transcript.Result, audioPath string, err error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	if s.cleared {
		s.mu.Unlock()
		removeFile(audioPath)
		return
	}
	if audioPath != "" && audioPath != s.uploadPath {
		if s.audioPath != "" && s.audioPath != audioPath {
			removeFile(s.audioPath)
		}
		s.audioPath = audioPath
	}
	s.lastErr = err
	if err == nil {
		s.result = &res
	}
	s.mu.Unlock()

	if err != nil {
		s.Publish(progress.Event{Stage: progress.StageError, Message: err.Error()})
		return
	}
	s.Publish(progress.Event{
		Stage:   progress.StageDone,
		Unit:    "segment",
		Current: float64(len(res.Segments)),
		Total:   float64(len(res.Segments)),
		Message: "Transcription complete",
	})
}

func (s *Session) Publish(e progress.Event) {
	s.events.publish(e)
}

// Subscribe returns a channel of progress events and a function that
// releases it. The channel is closed when released or when the session is
// cleared.
func (s *Session) Subscribe() (<-chan progress.Event, func()) {
	return s.events.subscribe()
}

// Result returns the cached transcription and the options it was
// requested with.
func (s *Session) Result() (transcript.Result, transcript.FormatOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return transcript.Result{}, s.options, ErrNoResult
	}
	return *s.result, s.options, nil
}

// Rows formats the cached result. The same result can be formatted any
// number of times with different options.
func (s *Session) Rows(opt transcript.FormatOptions) ([]transcript.Row, error) {
	res, _, err := s.Result()
	if err != nil {
		return nil, err
	}
	return transcript.Format(res, opt), nil
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:        s.ID,
		FileName:  s.FileName,
		CreatedAt: s.CreatedAt,
		Running:   s.running,
		HasResult: s.result != nil,
	}
	if s.result != nil {
		info.Language = s.result.Language
		info.Segments = len(s.result.Segments)
	}
	if s.lastErr != nil {
		info.Error = s.lastErr.Error()
	}
	return info
}

// clear cancels a running job, removes temp files and drops the result.
func (s *Session) clear() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.cleared = true
	removeFile(s.audioPath)
	removeFile(s.uploadPath)
	s.audioPath, s.uploadPath = "", ""
	s.result = nil
	s.mu.Unlock()

	s.events.closeAll()
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to remove temp file", "path", path, "err", err)
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s)", s.ID, s.FileName)
}
