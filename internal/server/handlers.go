package server

import (
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scribe/internal/lang"
	"scribe/internal/media"
	"scribe/internal/pipeline"
	"scribe/internal/session"
	"scribe/internal/theme"
	"scribe/pkg/progress"
	"scribe/pkg/stt"
	"scribe/pkg/transcript"
)

const maxChunkSize = 50

var errNoAudio = errors.New("no audio available for transcription")

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{
		"Theme":        theme.Load(s.opt.ThemePath),
		"Languages":    lang.Languages(),
		"Models":       stt.ModelSizes,
		"DefaultModel": s.defaultModel(),
		"MaxChunk":     maxChunkSize,
		"Accept":       append(append([]string(nil), media.VideoExts...), media.AudioExts...),
	})
}

func (s *Server) defaultModel() string {
	if s.opt.DefaultModel != "" {
		return s.opt.DefaultModel
	}
	return stt.DefaultModel
}

func (s *Server) languages(c *gin.Context) {
	c.JSON(http.StatusOK, lang.Languages())
}

func (s *Server) models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": stt.ModelSizes, "default": s.defaultModel()})
}

func (s *Server) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": theme.Load(s.opt.ThemePath)})
}

func (s *Server) putTheme(c *gin.Context) {
	var body struct {
		Theme string `json:"theme" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(badRequest(err))
		return
	}
	t, ok := theme.Parse(body.Theme)
	if !ok {
		_ = c.Error(badRequest(fmt.Errorf("unknown theme %q", body.Theme)))
		return
	}
	if err := theme.Save(s.opt.ThemePath, t); err != nil {
		_ = c.Error(err)
		return
	}
	log.Info("Theme applied", "theme", t)
	c.JSON(http.StatusOK, gin.H{"theme": t})
}

func (s *Server) upload(c *gin.Context) {
	if s.opt.MaxUploadBytes > 0 {
		if c.Request.ContentLength > s.opt.MaxUploadBytes {
			_ = c.Error(withStatus(http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d MB", s.opt.MaxUploadBytes>>20)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opt.MaxUploadBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			_ = c.Error(err)
			return
		}
		_ = c.Error(badRequest(fmt.Errorf("file: %w", err)))
		return
	}
	if !media.Allowed(fh.Filename) {
		_ = c.Error(withStatus(http.StatusUnsupportedMediaType, fmt.Errorf("unsupported file type: %s", fh.Filename)))
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer f.Close()

	sess, err := s.store.Create(fh.Filename, f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	log.Info("File uploaded", "session", sess.ID, "file", sess.FileName, "size", fh.Size)
	c.JSON(http.StatusCreated, sess.Info())
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, err := s.store.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	return sess, true
}

func (s *Server) sessionInfo(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Info())
}

func (s *Server) clear(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

type transcribeRequest struct {
	Model        string `json:"model"`
	Language     string `json:"language"`
	IncludeWords *bool  `json:"include_words"`
	ChunkSize    int    `json:"chunk_size" binding:"min=0,max=50"`
}

func (r transcribeRequest) options() transcript.FormatOptions {
	words := true
	if r.IncludeWords != nil {
		words = *r.IncludeWords
	}
	return transcript.FormatOptions{IncludeWords: words, ChunkSize: r.ChunkSize}
}

func (s *Server) transcribe(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var body transcribeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(badRequest(err))
		return
	}
	if body.Model == "" {
		body.Model = s.defaultModel()
	}
	if !stt.ValidModel(body.Model) {
		_ = c.Error(badRequest(fmt.Errorf("%w: %q", stt.ErrUnknownModel, body.Model)))
		return
	}
	if !lang.Known(body.Language) {
		_ = c.Error(badRequest(fmt.Errorf("unknown language %q", body.Language)))
		return
	}

	ctx, err := sess.Begin(s.jobs, body.options())
	if err != nil {
		_ = c.Error(err)
		return
	}
	req := pipeline.Request{Model: body.Model, Language: body.Language}
	go func() {
		out, err := s.pipeline.Run(ctx, sess.UploadPath(), req, progress.Throttle(sess.Publish, 1))
		if pipeline.NoAudio(err) {
			err = errNoAudio
		}
		if err != nil {
			log.Error("Transcription failed", "session", sess.ID, "err", err)
		}
		sess.Finish(out.Result, out.AudioPath, err)
	}()

	c.JSON(http.StatusAccepted, sess.Info())
}

// formatOptions reads include_words and chunk_size from the query,
// falling back to what the transcription was requested with.
func formatOptions(c *gin.Context, def transcript.FormatOptions) (transcript.FormatOptions, error) {
	opt := def
	if v, ok := c.GetQuery("include_words"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opt, badRequest(fmt.Errorf("include_words: %w", err))
		}
		opt.IncludeWords = b
	}
	if v, ok := c.GetQuery("chunk_size"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxChunkSize {
			return opt, badRequest(fmt.Errorf("chunk_size must be between 0 and %d", maxChunkSize))
		}
		opt.ChunkSize = n
	}
	return opt, nil
}

func (s *Server) formatted(c *gin.Context) (*session.Session, transcript.Result, []transcript.Row, bool) {
	sess, ok := s.session(c)
	if !ok {
		return nil, transcript.Result{}, nil, false
	}
	res, def, err := sess.Result()
	if err != nil {
		_ = c.Error(err)
		return nil, transcript.Result{}, nil, false
	}
	opt, err := formatOptions(c, def)
	if err != nil {
		_ = c.Error(err)
		return nil, transcript.Result{}, nil, false
	}
	return sess, res, transcript.Format(res, opt), true
}

func (s *Server) rows(c *gin.Context) {
	_, res, rows, ok := s.formatted(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": res.Language, "rows": rows})
}

func (s *Server) csv(c *gin.Context) {
	sess, _, rows, ok := s.formatted(c)
	if !ok {
		return
	}
	name := transcript.CSVFileName(s.now())
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Status(http.StatusOK)
	if err := transcript.WriteCSV(c.Writer, rows); err != nil {
		log.Error("Failed to write csv", "session", sess.ID, "err", err)
	}
}
