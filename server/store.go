package server

import (
	"context"
	"sync"
	"time"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/pipeline"
)

// Store keeps every run started by the server, keyed by run id.
type Store struct {
	mu   sync.Mutex
	runs map[string]*record
}

type record struct {
	id         string
	topic      string
	state      pipeline.State
	startedAt  time.Time
	finishedAt time.Time
	result     *blog.Result
	err        error
	cancel     context.CancelFunc
}

func NewStore() *Store {
	return &Store{runs: make(map[string]*record)}
}

// SetState records a state transition. It is the pipeline's OnState hook;
// transitions of unknown runs are ignored.
func (s *Store) SetState(runID string, state pipeline.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.runs[runID]; ok {
		rec.state = state
	}
}

func (s *Store) add(rec *record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.id] = rec
}

func (s *Store) finish(id string, result blog.Result, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return
	}
	rec.result = &result
	rec.err = err
	rec.finishedAt = at
	rec.cancel = nil
}

// cancel stops a run in progress. It reports false when the run is unknown.
func (s *Store) cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return false
	}
	if rec.cancel != nil {
		rec.cancel()
	}
	return true
}

func (s *Store) view(id string) (runView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return runView{}, false
	}
	return rec.view(), true
}

func (s *Store) asset(id, key string) (blog.ImageAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok || rec.result == nil {
		return blog.ImageAsset{}, false
	}
	asset, ok := rec.result.Images[key]
	return asset, ok
}

func (s *Store) document(id string) (blog.Document, map[string]blog.ImageAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok || rec.result == nil || len(rec.result.Document.Sections) == 0 {
		return blog.Document{}, nil, false
	}
	return rec.result.Document, rec.result.Images, true
}

// runView is the JSON form of a run. Image bytes are served separately.
type runView struct {
	ID         string               `json:"id"`
	Topic      string               `json:"topic"`
	State      pipeline.State       `json:"state"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at,omitzero"`
	Document   *blog.Document       `json:"document,omitempty"`
	Images     map[string]imageView `json:"images,omitempty"`
	Receipts   []blog.Receipt       `json:"receipts,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
	Error      string               `json:"error,omitempty"`
}

type imageView struct {
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
	URL      string `json:"url"`
}

func (r *record) view() runView {
	v := runView{ID: r.id, Topic: r.topic, State: r.state, StartedAt: r.startedAt, FinishedAt: r.finishedAt}
	if r.err != nil {
		v.Error = r.err.Error()
	}
	if r.result == nil {
		return v
	}
	if len(r.result.Document.Sections) > 0 {
		doc := r.result.Document
		v.Document = &doc
	}
	if len(r.result.Images) > 0 {
		v.Images = make(map[string]imageView, len(r.result.Images))
		for key, asset := range r.result.Images {
			v.Images[key] = imageView{MIMEType: asset.MIMEType, Size: len(asset.Data), URL: imageURL(r.id, key)}
		}
	}
	v.Receipts = r.result.Receipts
	v.Warnings = r.result.Warnings
	return v
}

func imageURL(runID, key string) string {
	return "/api/runs/" + runID + "/images/" + key
}
