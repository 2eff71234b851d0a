// Package pipeline sequences the research, style, planning, generation, image
// and publishing stages of one run and aggregates their warnings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/generator"
	"auto_blog_publisher/metrics"
)

// MaxTopicLength bounds the topic, in runes.
const MaxTopicLength = 300

type Researcher interface {
	Research(ctx context.Context, topic string) ([]blog.Snippet, []string)
}

type Classifier interface {
	Classify(ctx context.Context, topic string, snippets []blog.Snippet) (blog.Style, []string)
}

type Planner interface {
	Plan(outline []string, topic string) []blog.ImagePrompt
}

type Generator interface {
	Outline(topic string, style blog.Style) []string
	Generate(ctx context.Context, req generator.Request) (blog.Document, []string)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, prompts []blog.ImagePrompt) (map[string]blog.ImageAsset, []string)
}

type Publisher interface {
	Publish(ctx context.Context, doc blog.Document, images map[string]blog.ImageAsset, targets []blog.Platform) ([]blog.Receipt, []string)
}

// Stages are the collaborators of a Coordinator. Publisher may be nil.
type Stages struct {
	Researcher  Researcher
	Classifier  Classifier
	Planner     Planner
	Generator   Generator
	Synthesizer Synthesizer
	Publisher   Publisher
}

// Options configures a Coordinator.
type Options struct {
	Logger *zap.Logger
	// OnState observes every transition of every run.
	OnState func(runID string, state State)
}

// Request is the input of one run.
type Request struct {
	// ID names the run in logs; a random one is assigned when empty.
	ID    string
	Topic string
	// Style skips classification when set.
	Style      blog.Style
	SkipImages bool
	Targets    []blog.Platform
}

// Coordinator runs the pipeline.
type Coordinator struct {
	stages  Stages
	onState func(string, State)
	logger  *zap.Logger
}

func New(stages Stages, opts Options) (*Coordinator, error) {
	switch {
	case stages.Researcher == nil:
		return nil, errors.New("pipeline: researcher is required")
	case stages.Classifier == nil:
		return nil, errors.New("pipeline: classifier is required")
	case stages.Planner == nil:
		return nil, errors.New("pipeline: image planner is required")
	case stages.Generator == nil:
		return nil, errors.New("pipeline: document generator is required")
	case stages.Synthesizer == nil:
		return nil, errors.New("pipeline: image synthesizer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	onState := opts.OnState
	if onState == nil {
		onState = func(string, State) {}
	}
	return &Coordinator{stages: stages, onState: onState, logger: logger.Named("pipeline")}, nil
}

// ValidateTopic trims topic and rejects empty or oversized input.
func ValidateTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: topic is empty", blog.ErrInputInvalid)
	}
	if !utf8.ValidString(topic) {
		return "", fmt.Errorf("%w: topic is not valid UTF-8", blog.ErrInputInvalid)
	}
	if n := utf8.RuneCountInString(topic); n > MaxTopicLength {
		return "", fmt.Errorf("%w: topic has %d characters, at most %d allowed", blog.ErrInputInvalid, n, MaxTopicLength)
	}
	// The topic is spliced into prompts and headings on a single line.
	if strings.ContainsFunc(topic, unicode.IsControl) {
		return "", fmt.Errorf("%w: topic contains control characters", blog.ErrInputInvalid)
	}
	return topic, nil
}

// Run executes one pipeline run. Only invalid input (ErrInputInvalid) and
// cancellation (ErrCanceled) return an error; every upstream failure degrades
// to a fallback value plus a warning.
//
// Cancellation of ctx takes effect at the next stage boundary; calls already
// in flight within a stage are allowed to finish.
func (c *Coordinator) Run(ctx context.Context, req Request) (blog.Result, error) {
	r := &run{c: c, id: req.ID}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	r.log = c.logger.With(zap.String("run_id", r.id))

	topic, err := ValidateTopic(req.Topic)
	if err == nil && req.Style != "" {
		if _, ok := blog.ParseStyle(string(req.Style)); !ok {
			err = fmt.Errorf("%w: unknown style %q", blog.ErrInputInvalid, req.Style)
		}
	}
	if err == nil {
		for _, t := range req.Targets {
			if _, ok := blog.ParsePlatform(string(t)); !ok {
				err = fmt.Errorf("%w: unknown publish target %q", blog.ErrInputInvalid, t)
				break
			}
		}
	}
	if err != nil {
		r.log.Warn("run rejected", zap.Error(err))
		r.finish(Failed)
		return blog.Result{}, err
	}

	// Stage work runs detached from ctx so in-flight calls drain on cancel.
	work := context.WithoutCancel(ctx)
	r.log.Info("run started", zap.String("topic", topic))

	var snippets []blog.Snippet
	if err := r.stage(ctx, Researching, func() []string {
		var w []string
		snippets, w = c.stages.Researcher.Research(work, topic)
		return w
	}); err != nil {
		return r.canceled(err)
	}

	style := blog.StyleProfessional
	if err := r.stage(ctx, ClassifyingStyle, func() []string {
		if req.Style != "" {
			style, _ = blog.ParseStyle(string(req.Style))
			r.log.Info("style forced", zap.String("style", string(style)))
			return nil
		}
		var w []string
		style, w = c.stages.Classifier.Classify(work, topic, snippets)
		return w
	}); err != nil {
		return r.canceled(err)
	}

	var outline []string
	var prompts []blog.ImagePrompt
	if err := r.stage(ctx, Planning, func() []string {
		outline = c.stages.Generator.Outline(topic, style)
		if !req.SkipImages {
			prompts = c.stages.Planner.Plan(outline, topic)
		}
		return nil
	}); err != nil {
		return r.canceled(err)
	}

	var doc blog.Document
	if err := r.stage(ctx, Generating, func() []string {
		var w []string
		doc, w = c.stages.Generator.Generate(work, generator.Request{
			Topic:    topic,
			Snippets: snippets,
			Style:    style,
			Outline:  outline,
			Images:   prompts,
		})
		return w
	}); err != nil {
		return r.canceled(err)
	}

	images := map[string]blog.ImageAsset{}
	if err := r.stage(ctx, RenderingImages, func() []string {
		if len(prompts) == 0 {
			return nil
		}
		var w []string
		images, w = c.stages.Synthesizer.Synthesize(work, prompts)
		if images == nil {
			images = map[string]blog.ImageAsset{}
		}
		return w
	}); err != nil {
		return r.canceled(err)
	}

	receipts := []blog.Receipt{}
	if len(req.Targets) > 0 {
		if err := r.stage(ctx, Publishing, func() []string {
			var w []string
			receipts, w = c.publish(work, doc, images, req.Targets)
			for _, rc := range receipts {
				metrics.RecordPublish(string(rc.Platform), string(rc.Status))
			}
			return w
		}); err != nil {
			return r.canceled(err)
		}
	}

	r.finish(Done)
	r.log.Info("run finished",
		zap.String("title", doc.Title),
		zap.Int("sections", len(doc.Sections)),
		zap.Int("images", len(images)),
		zap.Int("warnings", len(r.warnings)))
	return blog.Result{Document: doc, Images: images, Receipts: receipts, Warnings: r.warnings}, nil
}

func (c *Coordinator) publish(ctx context.Context, doc blog.Document, images map[string]blog.ImageAsset, targets []blog.Platform) ([]blog.Receipt, []string) {
	if c.stages.Publisher != nil {
		return c.stages.Publisher.Publish(ctx, doc, images, targets)
	}
	var warnings blog.Warnings
	receipts := make([]blog.Receipt, 0, len(targets))
	for _, t := range targets {
		receipts = append(receipts, blog.Receipt{Platform: t, Status: blog.StatusFailed, Error: "publishing is not configured"})
		warnings.Addf("publish", "%s failed: publishing is not configured", t)
	}
	return receipts, warnings
}

// run is the bookkeeping of one Run call.
type run struct {
	c        *Coordinator
	id       string
	log      *zap.Logger
	state    State
	warnings blog.Warnings
}

func (r *run) transition(s State) {
	r.log.Debug("state", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
	r.c.onState(r.id, s)
}

// stage enters s, runs fn and collects its warnings. It returns an error
// without running fn when ctx was canceled before the stage began.
func (r *run) stage(ctx context.Context, s State, fn func() []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.transition(s)
	start := time.Now()
	w := fn()
	metrics.RecordStage(s.String(), time.Since(start).Seconds(), len(w))
	r.warnings.Add(w...)
	return nil
}

func (r *run) finish(s State) {
	r.transition(s)
	metrics.RecordRun(s.String())
}

func (r *run) canceled(cause error) (blog.Result, error) {
	last := r.state
	r.log.Info("run canceled", zap.Stringer("after", last), zap.Error(cause))
	r.finish(Canceled)
	return blog.Result{Warnings: r.warnings}, fmt.Errorf("%w after %s: %w", blog.ErrCanceled, last, cause)
}
