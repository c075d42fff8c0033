package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/watchr/internal/metrics"
	"github.com/loykin/watchr/internal/sentinel"
)

// StatusSource reports the current state of every inspection.
type StatusSource interface {
	Statuses() []sentinel.Status
}

// Router exposes read-only observability endpoints:
//
//	GET {basePath}/metrics   Prometheus exposition
//	GET {basePath}/healthz   liveness of the supervisor itself
//	GET {basePath}/status    inspection states (404 when no source is set)
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	src      StatusSource
	metrics  http.Handler
	basePath string
}

func NewRouter(src StatusSource, basePath string) *Router {
	return &Router{src: src, metrics: metrics.Handler(), basePath: sanitizeBase(basePath)}
}

// WithMetricsHandler replaces the default Prometheus handler.
func (r *Router) WithMetricsHandler(h http.Handler) *Router {
	r.metrics = h
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/metrics", gin.WrapH(r.metrics))
	group.GET("/healthz", r.handleHealthz)
	if r.src != nil {
		group.GET("/status", r.handleStatus)
	}
	return g
}

type statusResp struct {
	Inspections []sentinel.Status `json:"inspections"`
	Unhealthy   int               `json:"unhealthy"`
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleStatus(c *gin.Context) {
	st := r.src.Statuses()
	resp := statusResp{Inspections: st}
	for _, s := range st {
		if s.Health == sentinel.Unhealthy.String() {
			resp.Unhealthy++
		}
	}
	writeJSON(c, http.StatusOK, resp)
}

// Server is a running observability endpoint.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewServer listens on addr and serves r in the background. Listen errors
// are returned immediately.
func NewServer(addr string, r *Router, l *slog.Logger) (*Server, error) {
	if l == nil {
		l = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	return &Server{srv: srv, ln: ln}, nil
}

// Addr is the bound address (useful with ":0").
func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
