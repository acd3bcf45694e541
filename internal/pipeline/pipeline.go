// Package pipeline runs one question through the full answering sequence:
// cache lookup, retrieval, classification, red-flag detection, prompt
// assembly, generation, reference repair, and final assembly. Every stage is
// timed and recorded on the answer for observability.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rirekisho/internal/answer"
	"github.com/hyperjump/rirekisho/internal/classify"
	"github.com/hyperjump/rirekisho/internal/generate"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/prompt"
	"github.com/hyperjump/rirekisho/internal/redflag"
	"github.com/hyperjump/rirekisho/internal/repair"
	"github.com/hyperjump/rirekisho/internal/retrieval"
	"github.com/hyperjump/rirekisho/internal/semcache"
	"github.com/hyperjump/rirekisho/internal/storage"
)

// Stage names as they appear in PipelineSteps.
const (
	StageCacheLookup    = "cache_lookup"
	StageRetrieval      = "retrieval"
	StageClassification = "classification"
	StageRedFlags       = "red_flags"
	StagePrompt         = "prompt"
	StageGeneration     = "generation"
	StageRepair         = "repair"
	StageAssembly       = "assembly"
)

// noResultsAnswer is the terminal answer when retrieval finds nothing.
const noResultsAnswer = "No relevant candidates found for this question."

// ErrGeneration wraps any LLM provider failure surfaced by Ask. Callers can
// errors.Is against it to distinguish generation failures from storage or
// retrieval errors.
var ErrGeneration = errors.New("generation failed")

// Pipeline wires the answering stages together. It holds no per-request state;
// concurrent Ask calls are safe because chunks and metadata are immutable and
// the cache and store manage their own consistency.
type Pipeline struct {
	storage    storage.Storage
	retriever  *retrieval.Retriever
	classifier *classify.Classifier
	generator  generate.Generator
	cache      *semcache.Cache
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline. cache may be nil to disable answer caching.
func New(
	store storage.Storage,
	retriever *retrieval.Retriever,
	classifier *classify.Classifier,
	generator generate.Generator,
	cache *semcache.Cache,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		storage:    store,
		retriever:  retriever,
		classifier: classifier,
		generator:  generator,
		cache:      cache,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask answers one question. On generation failure the error is returned to the
// caller with the steps recorded so far; no partial answer is produced.
func (p *Pipeline) Ask(ctx context.Context, req models.AskRequest) (models.Answer, error) {
	if err := req.Validate(); err != nil {
		return models.Answer{}, err
	}
	rec := &stepRecorder{}

	// Cache lookup. The fingerprint covers the whole candidate pool, so any
	// ingest or delete implicitly invalidates prior answers.
	var fingerprint string
	useCache := p.cache != nil && !req.SkipCache
	start := time.Now()
	if useCache {
		ids, err := p.storage.ListDocumentIDs(ctx)
		if err != nil {
			return models.Answer{}, fmt.Errorf("failed to list candidate pool: %w", err)
		}
		fingerprint = semcache.Fingerprint(req.Query, ids)
		if cached, ok := p.cache.Lookup(fingerprint); ok {
			rec.add(StageCacheLookup, start, models.StepCompleted, intPtr(1))
			cached.CacheHit = true
			cached.PipelineSteps = rec.steps
			p.logger.Debug("answer served from cache", zap.String("fingerprint", fingerprint))
			return cached, nil
		}
		rec.add(StageCacheLookup, start, models.StepCompleted, intPtr(0))
	} else {
		rec.add(StageCacheLookup, start, models.StepSkipped, nil)
	}

	// Retrieval.
	start = time.Now()
	set, err := p.retriever.Retrieve(ctx, req.Query, req.Limit)
	if err != nil {
		rec.add(StageRetrieval, start, models.StepFailed, nil)
		return models.Answer{}, fmt.Errorf("retrieval failed: %w", err)
	}
	rec.add(StageRetrieval, start, models.StepCompleted, intPtr(len(set.Chunks)))
	if set.Empty() {
		return models.Answer{
			AnswerText:      noResultsAnswer,
			Intent:          string(classify.IntentSearch),
			DetectionMethod: "fallback:no_results",
			PipelineSteps:   rec.steps,
		}, nil
	}

	// Classification.
	start = time.Now()
	cls := p.classifier.Classify(req.Query, set.Candidates)
	rec.add(StageClassification, start, models.StepCompleted, nil)

	// Red flags, once per candidate; prompt narrative and output modules both
	// read from this map.
	start = time.Now()
	flags := make(map[string][]redflag.RedFlag, len(set.Candidates))
	total := 0
	for _, c := range set.Candidates {
		f := redflag.Detect(set.Metadata[c.CandidateID])
		flags[c.CandidateID] = f
		total += len(f)
	}
	narrative := redflag.Narrative(set.Candidates, set.Metadata)
	rec.add(StageRedFlags, start, models.StepCompleted, intPtr(total))

	// Prompt assembly.
	start = time.Now()
	promptText := prompt.Build(req.Query, cls, set, narrative)
	rec.add(StagePrompt, start, models.StepCompleted, nil)

	// Generation.
	start = time.Now()
	genResult, err := p.generator.Generate(ctx, promptText)
	if err != nil {
		rec.add(StageGeneration, start, models.StepFailed, nil)
		p.logger.Error("generation failed",
			zap.String("intent", string(cls.Intent)),
			zap.Error(err))
		return models.Answer{PipelineSteps: rec.steps}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	rec.add(StageGeneration, start, models.StepCompleted, nil)

	// Reference repair.
	start = time.Now()
	repaired := repair.Repair(genResult.Text, set.Candidates)
	rec.add(StageRepair, start, models.StepCompleted, nil)

	// Assembly.
	start = time.Now()
	in := answer.ModuleInput{
		Candidates: set.Candidates,
		Metadata:   set.Metadata,
		Flags:      flags,
	}
	rec.add(StageAssembly, start, models.StepCompleted, nil)
	ans := answer.Assemble(cls, repaired, in, rec.steps)

	if useCache {
		p.cache.Store(fingerprint, ans)
	}
	p.logger.Info("question answered",
		zap.String("intent", string(cls.Intent)),
		zap.String("method", cls.Method),
		zap.Int("candidates", len(set.Candidates)),
		zap.String("model", genResult.Model))
	return ans, nil
}

type stepRecorder struct {
	steps []models.PipelineStep
}

func (r *stepRecorder) add(name string, start time.Time, status models.StepStatus, results *int) {
	r.steps = append(r.steps, models.PipelineStep{
		Step:       name,
		DurationMS: time.Since(start).Milliseconds(),
		Status:     status,
		Results:    results,
	})
}

func intPtr(v int) *int { return &v }
