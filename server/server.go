// Package server exposes the pipeline over HTTP. Runs are started in the
// background and polled by id.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/pipeline"
)

// maxRequestBytes caps a run creation body.
const maxRequestBytes = 64 << 10

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (blog.Result, error)
}

// Options configures a Server.
type Options struct {
	// RunTimeout bounds a whole run; 0 means no bound.
	RunTimeout time.Duration
	Logger     *zap.Logger
	// Now is the clock for run timestamps.
	Now func() time.Time
}

type Server struct {
	runner Runner
	store  *Store
	opts   Options
	logger *zap.Logger

	// base is canceled by Close and parents every run context.
	base     context.Context
	stopRuns context.CancelFunc
	wg       sync.WaitGroup
}

// New builds a Server. store should be the one whose SetState the runner reports to.
func New(runner Runner, store *Store, opts Options) (*Server, error) {
	if runner == nil {
		return nil, errors.New("pipeline runner required")
	}
	if store == nil {
		store = NewStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Server{
		runner:   runner,
		store:    store,
		opts:     opts,
		logger:   logger.Named("server"),
		base:     base,
		stopRuns: stop,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.handleRunCreate)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunGet)
	mux.HandleFunc("DELETE /api/runs/{id}", s.handleRunCancel)
	mux.HandleFunc("GET /api/runs/{id}/markdown", s.handleRunMarkdown)
	mux.HandleFunc("GET /api/runs/{id}/images/{key}", s.handleRunImage)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.logMiddleware(mux)
}

// Close cancels every run in progress and waits for them to return.
func (s *Server) Close() {
	s.stopRuns()
	s.wg.Wait()
}

// Wait blocks until every background run has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// --- Handlers ---

type runCreateReq struct {
	Topic string `json:"topic"`
	Style string `json:"style"`
	// Images defaults to true.
	Images  *bool    `json:"images"`
	Targets []string `json:"targets"`
}

func (r runCreateReq) pipelineRequest() (pipeline.Request, error) {
	topic, err := pipeline.ValidateTopic(r.Topic)
	if err != nil {
		return pipeline.Request{}, err
	}
	req := pipeline.Request{Topic: topic, SkipImages: r.Images != nil && !*r.Images}
	if r.Style != "" {
		style, ok := blog.ParseStyle(r.Style)
		if !ok {
			return pipeline.Request{}, fmt.Errorf("%w: unknown style %q", blog.ErrInputInvalid, r.Style)
		}
		req.Style = style
	}
	for _, t := range r.Targets {
		p, ok := blog.ParsePlatform(t)
		if !ok {
			return pipeline.Request{}, fmt.Errorf("%w: unknown publish target %q", blog.ErrInputInvalid, t)
		}
		req.Targets = append(req.Targets, p)
	}
	return req, nil
}

func (s *Server) handleRunCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var body runCreateReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: request body exceeds %d bytes", blog.ErrInputInvalid, tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req, err := body.pipelineRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.ID = uuid.NewString()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.opts.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.base, s.opts.RunTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.base)
	}
	rec := &record{id: req.ID, topic: req.Topic, state: pipeline.Idle, startedAt: s.opts.Now(), cancel: cancel}
	s.store.add(rec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		result, err := s.runner.Run(ctx, req)
		s.store.finish(req.ID, result, err, s.opts.Now())
		if err != nil {
			s.logger.Warn("run ended with error", zap.String("run_id", req.ID), zap.Error(err))
		}
	}()

	view, _ := s.store.view(req.ID)
	w.Header().Set("Location", "/api/runs/"+req.ID)
	writeJSON(w, http.StatusAccepted, view)
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	view, ok := s.store.view(r.PathValue("id"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRunCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.cancel(id) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	view, _ := s.store.view(id)
	writeJSON(w, http.StatusAccepted, view)
}

func (s *Server) handleRunMarkdown(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, images, ok := s.store.document(id)
	if !ok {
		http.Error(w, "document not ready", http.StatusNotFound)
		return
	}
	md := doc.Markdown(func(key string) string {
		if _, ok := images[key]; !ok {
			return ""
		}
		return imageURL(id, key)
	})
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(md))
}

func (s *Server) handleRunImage(w http.ResponseWriter, r *http.Request) {
	asset, ok := s.store.asset(r.PathValue("id"), r.PathValue("key"))
	if !ok {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", asset.MIMEType)
	_, _ = w.Write(asset.Data)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
