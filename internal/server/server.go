package server

import (
	"context"
	"errors"
	"html/template"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"scribe/internal/pipeline"
	"scribe/internal/session"
	"scribe/pkg/progress"
)

type runner interface {
	Run(ctx context.Context, inputPath string, req pipeline.Request, report progress.Func) (pipeline.Output, error)
}

type Options struct {
	MaxUploadBytes int64
	ThemePath      string
	DefaultModel   string
}

type Server struct {
	opt      Options
	store    *session.Store
	pipeline runner
	engine   *gin.Engine
	upgrader websocket.Upgrader
	now      func() time.Time

	// jobs outlive the request that started them
	jobs       context.Context
	cancelJobs context.CancelFunc
}

func New(store *session.Store, p runner, opt Options) *Server {
	jobs, cancel := context.WithCancel(context.Background())
	s := &Server{
		opt:        opt,
		store:      store,
		pipeline:   p,
		now:        time.Now,
		jobs:       jobs,
		cancelJobs: cancel,
	}

	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(), errorHandler())
	e.SetHTMLTemplate(template.Must(template.New("index").Parse(indexHTML)))
	s.routes(e)
	s.engine = e
	return s
}

func (s *Server) routes(e *gin.Engine) {
	e.GET("/", s.index)

	api := e.Group("/api")
	api.GET("/languages", s.languages)
	api.GET("/models", s.models)
	api.GET("/theme", s.getTheme)
	api.PUT("/theme", s.putTheme)

	api.POST("/sessions", s.upload)
	api.GET("/sessions/:id", s.sessionInfo)
	api.DELETE("/sessions/:id", s.clear)
	api.POST("/sessions/:id/transcribe", s.transcribe)
	api.GET("/sessions/:id/events", s.events)
	api.GET("/sessions/:id/rows", s.rows)
	api.GET("/sessions/:id/csv", s.csv)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully and
// cancels running transcriptions.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancelJobs()
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	s.cancelJobs()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
