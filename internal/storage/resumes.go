package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/resume"
)

const (
	resumesDir = "parsed_resumes"
	uploadsDir = "uploads"
	indexFile  = "index.json"
)

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

type indexEntry struct {
	Record   string `json:"record"`
	Original string `json:"original,omitempty"`
}

// ResumeStore keeps one JSON file per parsed resume and a manifest mapping
// resume ids to files.
type ResumeStore struct {
	mu      sync.Mutex
	dir     string
	uploads string
	logger  *zap.Logger
}

func NewResumeStore(dataDir string, logger *zap.Logger) *ResumeStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResumeStore{
		dir:     filepath.Join(dataDir, resumesDir),
		uploads: filepath.Join(dataDir, uploadsDir),
		logger:  logger,
	}
}

// Save stores rec and the uploaded original. rec gets a fresh id when it has none.
func (s *ResumeStore) Save(rec *resume.Record, original []byte) error {
	if rec == nil {
		return errors.New("resume record is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if unsafeName.MatchString(rec.ID) {
		return fmt.Errorf("invalid resume id %q", rec.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(rec.SourceFile), filepath.Ext(rec.SourceFile))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		base = "resume"
	}
	short := rec.ID
	if len(short) > 8 {
		short = short[:8]
	}
	entry := indexEntry{Record: fmt.Sprintf("%s_%s.json", base, short)}

	if len(original) > 0 {
		entry.Original = rec.ID + strings.ToLower(filepath.Ext(rec.SourceFile))
		if err := os.MkdirAll(s.uploads, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(s.uploads, entry.Original), original, 0o644); err != nil {
			return fmt.Errorf("save original upload: %w", err)
		}
	}

	if err := writeJSON(filepath.Join(s.dir, entry.Record), rec); err != nil {
		return fmt.Errorf("save resume: %w", err)
	}

	index[rec.ID] = entry
	return s.saveIndex(index)
}

// List returns all readable stored resumes, most recently parsed first.
// Entries whose record file is missing or corrupt are logged and skipped.
func (s *ResumeStore) List() ([]*resume.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	records := make([]*resume.Record, 0, len(index))
	for id, entry := range index {
		rec, err := s.read(entry)
		if err != nil {
			s.logger.Warn("skipping unreadable resume",
				zap.String("resume_id", id),
				zap.String("file", entry.Record),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}

	slices.SortFunc(records, func(a, b *resume.Record) int {
		if c := b.ParsedAt.Compare(a.ParsedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return records, nil
}

func (s *ResumeStore) Get(id string) (*resume.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	entry, ok := index[id]
	if !ok {
		return nil, fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}
	return s.read(entry)
}

// Delete removes the record, its original upload and its manifest entry.
func (s *ResumeStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	entry, ok := index[id]
	if !ok {
		return fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}

	if err := s.removeFiles(entry); err != nil {
		return err
	}
	delete(index, id)
	return s.saveIndex(index)
}

func (s *ResumeStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	for _, entry := range index {
		if err := s.removeFiles(entry); err != nil {
			return err
		}
	}
	return s.saveIndex(map[string]indexEntry{})
}

func (s *ResumeStore) read(entry indexEntry) (*resume.Record, error) {
	path := filepath.Join(s.dir, entry.Record)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", entry.Record, ErrNotFound)
	}

	var rec resume.Record
	if err := readJSON(path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *ResumeStore) removeFiles(entry indexEntry) error {
	paths := []string{filepath.Join(s.dir, entry.Record)}
	if entry.Original != "" {
		paths = append(paths, filepath.Join(s.uploads, entry.Original))
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *ResumeStore) loadIndex() (map[string]indexEntry, error) {
	index := map[string]indexEntry{}
	if err := readJSON(filepath.Join(s.dir, indexFile), &index); err != nil {
		return nil, fmt.Errorf("load resume index: %w", err)
	}
	// A literal null decodes into a nil map.
	if index == nil {
		index = map[string]indexEntry{}
	}
	return index, nil
}

func (s *ResumeStore) saveIndex(index map[string]indexEntry) error {
	if err := writeJSON(filepath.Join(s.dir, indexFile), index); err != nil {
		return fmt.Errorf("save resume index: %w", err)
	}
	return nil
}
