// Package server exposes running workflows over HTTP.
//
// Routes:
//
//	GET  /health
//	GET  /workflows                 list (filters: ?kind=, ?status=)
//	GET  /workflows/events          websocket stream of workflow events
//	GET  /workflows/:id             one workflow, plus its result once finished
//	POST /workflows/:id/cancel      cancel a running workflow
//	POST /workflows/:kind           start onboarding|linking|export|alerts
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/collabflow/internal/notify"
	"github.com/roach88/collabflow/internal/workflow"
)

// Builder turns a kind and a JSON request body into a workflow.
// Implemented by *integration.Service.
type Builder interface {
	Build(kind string, body []byte) (workflow.Definition, any, error)
	Kinds() []string
}

// Server serves the workflow API.
type Server struct {
	orch    *workflow.Orchestrator
	builder Builder
	events  *notify.Broadcaster
	logger  *slog.Logger
	router  *gin.Engine

	shutdownTimeout time.Duration

	mu       sync.RWMutex
	results  map[string]any
	inflight sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown (default 10s).
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// New creates a Server. events must be wired as (one of) the
// orchestrator's sinks for the websocket stream to carry anything.
func New(orch *workflow.Orchestrator, builder Builder, events *notify.Broadcaster, opts ...Option) *Server {
	s := &Server{
		orch:            orch,
		builder:         builder,
		events:          events,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		shutdownTimeout: 10 * time.Second,
		results:         make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the assembled http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/health", s.handleHealth)

	wf := r.Group("/workflows")
	wf.GET("", s.handleList)
	wf.GET("/events", s.handleEvents)
	wf.GET("/:id", s.handleGet)
	wf.POST("/:id/cancel", s.handleCancel)
	// The POST tree shares one wildcard name; here it carries the kind.
	wf.POST("/:id", s.handleStart)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully and waits for workflows started through the API.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.events.Close()
	s.inflight.Wait()
	return err
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// start runs def in the background and keeps its result value once the
// workflow has finished.
func (s *Server) start(ctx context.Context, def workflow.Definition, result any) (string, error) {
	id, done, err := s.orch.Start(context.WithoutCancel(ctx), def)
	if err != nil {
		return "", err
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := <-done; err != nil {
			s.logger.Warn("workflow finished with error", "workflow_id", id, "error", err)
		}
		s.mu.Lock()
		s.results[id] = result
		s.mu.Unlock()
	}()
	return id, nil
}

func (s *Server) result(id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[id]
	return res, ok
}
