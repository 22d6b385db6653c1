// Package ingest turns uploaded files into stored resume records.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/metrics"
	"github.com/spigell/cv-matcher/internal/resume"
)

type textExtractor interface {
	Text(ctx context.Context, filename string, data []byte) (string, error)
}

type recordParser interface {
	Parse(ctx context.Context, text string, lang resume.Language) (*resume.Record, error)
}

type recordStore interface {
	Save(rec *resume.Record, original []byte) error
}

type Service struct {
	extractor  textExtractor
	classifier *classifier.Classifier
	parser     recordParser
	store      recordStore
	logger     *zap.Logger
}

func New(extractor textExtractor, parser recordParser, store recordStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor:  extractor,
		classifier: classifier.New(),
		parser:     parser,
		store:      store,
		logger:     logger,
	}
}

// Ingest extracts, classifies, parses and stores one uploaded document.
// Documents that are not CVs fail with classifier.ErrDocumentRejected before
// any model call is made.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte, lang resume.Language) (*resume.Record, error) {
	filename = filepath.Base(filename)
	log := s.logger.With(zap.String("file", filename))

	text, err := s.extractor.Text(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", filename, err)
	}

	result := s.classifier.Classify(text)
	switch {
	case !result.Valid:
		metrics.DocumentsClassified.WithLabelValues(metrics.OutcomeRejected).Inc()
		log.Info("document rejected", zap.String("reason", result.Reason), zap.Int("keywords", result.Total()))
		return nil, fmt.Errorf("%s: %w: %s", filename, classifier.ErrDocumentRejected, result.Reason)
	case result.LowConfidence:
		metrics.DocumentsClassified.WithLabelValues(metrics.OutcomeLenient).Inc()
		log.Warn("document accepted with low confidence", zap.String("reason", result.Reason))
	default:
		metrics.DocumentsClassified.WithLabelValues(metrics.OutcomeAccepted).Inc()
	}

	rec, err := s.parser.Parse(ctx, text, lang)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	rec.SourceFile = filename
	rec.IsValidCV = true
	rec.ValidationReason = result.Reason

	if err := s.store.Save(rec, data); err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	log.Info("resume stored",
		zap.String(logger.FieldResumeID, rec.ID),
		zap.String("language", string(rec.OutputLanguage)),
		zap.Int("skills", len(rec.Skills)),
	)
	return rec, nil
}
