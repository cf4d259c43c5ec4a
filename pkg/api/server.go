package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/metrics"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/rs/zerolog"
)

// TaskReader is the read side of the task registry
type TaskReader interface {
	Get(name string) (task.Task, bool)
	All() map[string]task.Task
	GetTasksOfKind(kind task.Kind) []task.Task
	GetTerminatedTasks() []task.Task
	GetRunningTasks() []task.Task
	GetTasksToRepair() []task.Task
}

// StatusSink accepts status reports from the orchestrator
type StatusSink interface {
	Submit(ctx context.Context, status types.TaskStatus) error
}

// ClusterInfo reports the state of the replicated store
type ClusterInfo interface {
	IsLeader() bool
	LeaderAddr() string
}

// Option configures a Server
type Option func(*Server)

// WithStatusSink enables POST /v1/status
func WithStatusSink(sink StatusSink) Option {
	return func(s *Server) { s.statuses = sink }
}

// WithClusterInfo adds a raft check to /ready
func WithClusterInfo(cluster ClusterInfo) Option {
	return func(s *Server) { s.cluster = cluster }
}

// WithVersion sets the version reported by /health
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// Server serves health, metrics and the task API over HTTP
type Server struct {
	tasks    TaskReader
	statuses StatusSink
	cluster  ClusterInfo
	version  string
	mux      *http.ServeMux
	server   *http.Server
	logger   zerolog.Logger
}

// NewServer creates a new HTTP API server
func NewServer(tasks TaskReader, opts ...Option) *Server {
	s := &Server{
		tasks:  tasks,
		mux:    http.NewServeMux(),
		logger: log.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handle("/health", s.healthHandler)
	s.handle("/ready", s.readyHandler)
	s.handle("/live", metrics.LivenessHandler())
	s.mux.Handle("/metrics", metrics.Handler())
	s.handle("GET /v1/tasks", s.listTasks)
	s.handle("GET /v1/tasks/{name}", s.getTask)
	s.handle("POST /v1/status", s.submitStatus)

	return s
}

// handle registers h under pattern with request metrics labelled by pattern
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(pattern, h))
}

// statusRecorder captures the response code for metrics
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		timer.ObserveDurationVec(metrics.APIRequestDuration, path)
		metrics.APIRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.code)).Inc()
	})
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves until Shutdown
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve serves on lis until Shutdown
func (s *Server) Serve(lis net.Listener) error {
	s.server = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", lis.Addr().String()).Msg("HTTP API listening")
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
