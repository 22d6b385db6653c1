package matching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/filtering"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/metrics"
	"github.com/spigell/cv-matcher/internal/resume"
)

type requirementsExtractor interface {
	Extract(ctx context.Context, description string) (JobRequirements, error)
}

type candidateScorer interface {
	Score(ctx context.Context, candidate *resume.Record, description string, req JobRequirements) (*MatchResult, error)
}

// RequirementCache stores extracted requirements between runs.
type RequirementCache interface {
	Get(ctx context.Context, key string) (JobRequirements, bool, error)
	Set(ctx context.Context, key string, req JobRequirements) error
}

// Job is the job description a run matches candidates against.
type Job struct {
	ID          string
	Title       string
	Description string
}

// Report is the outcome of one matching run.
type Report struct {
	RunID          string             `json:"run_id"`
	JobID          string             `json:"job_id"`
	JobTitle       string             `json:"job_title"`
	JobDescription string             `json:"job_description"`
	Requirements   JobRequirements    `json:"requirements"`
	Top            []MatchResult      `json:"top_candidates"`
	Total          int                `json:"total_candidates"`
	Scored         int                `json:"scored"`
	Failed         int                `json:"failed"`
	Skipped        int                `json:"skipped"`
	Failures       []CandidateFailure `json:"failures,omitempty"`
	Filters        []filtering.Status `json:"filters,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	Duration       time.Duration      `json:"duration"`
}

// Pipeline extracts requirements once per run and scores every candidate
// against them.
type Pipeline struct {
	extractor requirementsExtractor
	scorer    candidateScorer
	logger    *zap.Logger

	cache      RequirementCache
	cacheModel string
	filters    []filtering.Filter
	topN       int
}

type Option func(*Pipeline)

// WithCache reuses requirements extracted by model for identical descriptions.
func WithCache(cache RequirementCache, model string) Option {
	return func(p *Pipeline) {
		p.cache = cache
		p.cacheModel = model
	}
}

// WithFilters sets the candidate filters applied before scoring.
func WithFilters(filters ...filtering.Filter) Option {
	return func(p *Pipeline) {
		p.filters = filters
	}
}

func WithTopN(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.topN = n
		}
	}
}

func NewPipeline(extractor requirementsExtractor, scorer candidateScorer, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		extractor: extractor,
		scorer:    scorer,
		logger:    logger,
		topN:      DefaultTopN,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Filters describes the configured filter chain.
func (p *Pipeline) Filters() []filtering.Status {
	return filtering.Describe(p.filters)
}

// CacheKey identifies the requirements of description as extracted by model.
func CacheKey(model, description string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(description)))
	return model + ":" + hex.EncodeToString(sum[:])
}

// Run matches candidates against job. It fails only when there is nothing to
// match or the requirements cannot be extracted; a candidate that cannot be
// scored is recorded in the report and the run goes on.
func (p *Pipeline) Run(ctx context.Context, job *Job, candidates []*resume.Record) (*Report, error) {
	if job == nil || strings.TrimSpace(job.Description) == "" {
		return nil, ErrNoJobSelected
	}
	if len(candidates) == 0 {
		return nil, ErrNoResumes
	}

	report := &Report{
		RunID:          uuid.NewString(),
		JobID:          job.ID,
		JobTitle:       job.Title,
		JobDescription: job.Description,
		Total:          len(candidates),
		Top:            []MatchResult{},
		Filters:        p.Filters(),
		StartedAt:      time.Now(),
	}
	log := logger.ForRun(p.logger, report.RunID, job.ID)
	log.Info("matching run started", zap.Int("candidates", len(candidates)))

	req, err := p.requirements(ctx, log, job.Description)
	if err != nil {
		log.Error("matching run aborted", zap.Error(err))
		return nil, err
	}
	report.Requirements = req.Clone()

	eligible, dropped, err := filtering.Run(ctx, filtering.Deps{Logger: log}, p.filters, candidates)
	if err != nil {
		return nil, err
	}
	report.Skipped = dropped
	metrics.Candidates.WithLabelValues(metrics.OutcomeSkipped).Add(float64(dropped))

	results := make([]MatchResult, 0, len(eligible))
	for i, candidate := range eligible {
		if ctx.Err() != nil {
			for _, rest := range eligible[i:] {
				p.fail(report, rest, ctx.Err())
			}
			log.Warn("matching run cancelled", zap.Int("unscored", len(eligible)-i))
			break
		}

		result, err := p.scorer.Score(ctx, candidate, job.Description, req.Clone())
		if err != nil {
			log.Error("candidate failed", zap.String(logger.FieldResumeID, candidate.ID), zap.Error(err))
			p.fail(report, candidate, err)
			continue
		}

		metrics.Candidates.WithLabelValues(metrics.OutcomeOK).Inc()
		report.Scored++
		results = append(results, *result)
	}

	report.Top = Rank(results, p.topN)
	report.Duration = time.Since(report.StartedAt)
	metrics.MatchRunDuration.Observe(report.Duration.Seconds())

	log.Info("matching run finished",
		zap.Int("scored", report.Scored),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("top", len(report.Top)),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

func (p *Pipeline) requirements(ctx context.Context, log *zap.Logger, description string) (JobRequirements, error) {
	var key string
	if p.cache != nil {
		key = CacheKey(p.cacheModel, description)
		req, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("requirement cache lookup failed", zap.Error(err))
		case ok && len(req.RequiredSkills) > 0:
			metrics.RequirementCache.WithLabelValues(metrics.OutcomeHit).Inc()
			log.Info("using cached job requirements", zap.String("fingerprint", req.Fingerprint()))
			return req, nil
		}
		metrics.RequirementCache.WithLabelValues(metrics.OutcomeMiss).Inc()
	}

	req, err := p.extractor.Extract(ctx, description)
	if err != nil {
		var extractErr *ExtractionError
		if !errors.As(err, &extractErr) {
			err = &ExtractionError{Cause: err}
		}
		return JobRequirements{}, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, req); err != nil {
			log.Warn("requirement cache store failed", zap.Error(err))
		}
	}

	return req, nil
}

func (p *Pipeline) fail(report *Report, candidate *resume.Record, err error) {
	metrics.Candidates.WithLabelValues(metrics.OutcomeError).Inc()
	report.Failed++
	report.Failures = append(report.Failures, CandidateFailure{
		ResumeID:      candidate.ID,
		CandidateName: candidate.DisplayName(),
		Error:         err.Error(),
	})
}
