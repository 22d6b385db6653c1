package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai/gemini"
	"github.com/spigell/cv-matcher/internal/cache"
	"github.com/spigell/cv-matcher/internal/extract"
	"github.com/spigell/cv-matcher/internal/filtering"
	"github.com/spigell/cv-matcher/internal/ingest"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/matching"
	"github.com/spigell/cv-matcher/internal/resume"
	"github.com/spigell/cv-matcher/internal/secrets"
	"github.com/spigell/cv-matcher/internal/storage"
)

// services wires the stores and, when requested, the model-backed components.
type services struct {
	config    *Config
	logger    *zap.Logger
	jobs      *storage.JobStore
	resumes   *storage.ResumeStore
	extractor *extract.Extractor
	language  resume.Language

	generator *gemini.Generator
	ingest    *ingest.Service
	pipeline  *matching.Pipeline

	redis *redis.Client
}

// newLogger builds the logger from the persistent flags.
func newLogger() (*zap.Logger, error) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return l, nil
}

func newServices(ctx context.Context, log *zap.Logger, withAI bool) (*services, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	lang, err := resume.ParseLanguage(config.AI.OutputLanguage)
	if err != nil {
		return nil, err
	}

	s := &services{
		config:    config,
		logger:    log,
		jobs:      storage.NewJobStore(config.DataDir),
		resumes:   storage.NewResumeStore(config.DataDir, log),
		extractor: extract.New(nil, log),
		language:  lang,
	}

	if !withAI {
		return s, nil
	}

	if err := s.initAI(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *services) initAI(ctx context.Context) error {
	cfg := s.config.AI
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return fmt.Errorf("gemini configuration is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return fmt.Errorf("%w (set ai.gemini.api-key-file, ai.gemini.api-key or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithCommonFields(s.logger, "gemini", cfg.Gemini.Model).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:        cfg.Gemini.Model,
		MaxRetries:   cfg.Gemini.MaxRetries,
		MaxLogLength: cfg.Gemini.MaxLogLength,
	}, genLogger)
	if err != nil {
		return err
	}
	s.generator = generator
	s.extractor = extract.New(generator, s.logger)

	s.ingest = ingest.New(s.extractor, resume.NewParser(generator, genLogger), s.resumes, s.logger)

	opts := []matching.Option{
		matching.WithFilters(s.filters(nil)...),
	}
	if url := strings.TrimSpace(s.config.Cache.RedisURL); url != "" {
		requirements, client, err := cache.Connect(ctx, url, s.config.Cache.TTL)
		if err != nil {
			s.logger.Warn("requirement cache disabled", zap.Error(err))
		} else {
			s.redis = client
			opts = append(opts, matching.WithCache(requirements, generator.Model()))
		}
	}

	s.pipeline = matching.NewPipeline(
		matching.NewExtractor(generator, genLogger),
		matching.NewScorer(generator, genLogger),
		s.logger,
		opts...,
	)
	return nil
}

// filters builds the configured filter chain, leaving out the given resume ids.
func (s *services) filters(excluded []string) []filtering.Filter {
	steps := filtering.Default(excluded, s.config.Match.Dedupe)
	for _, name := range s.config.Match.DisabledFilters {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !filtering.DisableByName(steps, name, "disabled by configuration") {
			s.logger.Warn("unknown filter", zap.String("name", name))
		}
	}
	return steps
}

// pipelineExcluding returns the pipeline, rebuilt to skip the given resume ids.
func (s *services) pipelineExcluding(excluded []string) *matching.Pipeline {
	if len(excluded) == 0 {
		return s.pipeline
	}

	opts := []matching.Option{matching.WithFilters(s.filters(excluded)...)}
	if s.redis != nil {
		opts = append(opts, matching.WithCache(cache.New(s.redis, s.config.Cache.TTL), s.generator.Model()))
	}
	genLogger := logger.WithCommonFields(s.logger, "gemini", s.generator.Model())
	return matching.NewPipeline(
		matching.NewExtractor(s.generator, genLogger),
		matching.NewScorer(s.generator, genLogger),
		s.logger,
		opts...,
	)
}

// logFilters reports every filter of the chain with its state.
func logFilters(log *zap.Logger, statuses []filtering.Status) {
	for _, st := range statuses {
		fields := []zap.Field{
			zap.String("name", st.Name),
			zap.Bool("enabled", st.Enabled),
		}
		if st.Reason != "" {
			fields = append(fields, zap.String("reason", st.Reason))
		}
		for k, v := range st.Details {
			fields = append(fields, zap.String(k, v))
		}
		log.Info("filter configured", fields...)
	}
}

func (s *services) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = s.logger.Sync()
}
