package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/spigell/cv-matcher/internal/matching"
)

const (
	jobsFile = "jobs.json"

	MinDescriptionLength = 20
)

// Job is a stored job description.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"min=20"`
	SourceFile  string    `json:"source_file,omitempty"`
	Selected    bool      `json:"selected"`
	CreatedAt   time.Time `json:"created_at"`
}

// Matching returns the part of the job a matching run needs.
func (j *Job) Matching() *matching.Job {
	return &matching.Job{ID: j.ID, Title: j.Title, Description: j.Description}
}

// ValidationError lists why a job was refused.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid job: " + strings.Join(e.Problems, "; ")
}

// JobStore keeps the job list in one JSON array that is rewritten on every change.
type JobStore struct {
	mu       sync.Mutex
	path     string
	validate *validator.Validate
	now      func() time.Time
}

func NewJobStore(dataDir string) *JobStore {
	return &JobStore{
		path:     filepath.Join(dataDir, jobsFile),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Add validates and stores a new job. sourceFile is the uploaded file the
// description came from, if any.
func (s *JobStore) Add(title, description, sourceFile string) (*Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		SourceFile:  sourceFile,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.validate.Struct(job); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		verr := &ValidationError{}
		for _, fe := range fieldErrs {
			switch fe.Field() {
			case "Title":
				verr.Problems = append(verr.Problems, "title is required")
			case "Description":
				verr.Problems = append(verr.Problems, fmt.Sprintf("description must be at least %d characters", MinDescriptionLength))
			default:
				verr.Problems = append(verr.Problems, fe.Error())
			}
		}
		return nil, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, job)
	if err := writeJSON(s.path, jobs); err != nil {
		return nil, fmt.Errorf("save jobs: %w", err)
	}
	return job, nil
}

// List returns all jobs, newest first.
func (s *JobStore) List() ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(jobs, func(a, b *Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return jobs, nil
}

func (s *JobStore) Get(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
}

// Select marks id as the job the next matching run uses.
func (s *JobStore) Select(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return nil, err
	}

	var selected *Job
	for _, job := range jobs {
		job.Selected = job.ID == id
		if job.Selected {
			selected = job
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	if err := writeJSON(s.path, jobs); err != nil {
		return nil, fmt.Errorf("save jobs: %w", err)
	}
	return selected, nil
}

// Selected returns the selected job, or ErrNotFound when none is selected.
func (s *JobStore) Selected() (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.Selected {
			return job, nil
		}
	}
	return nil, fmt.Errorf("selected job: %w", ErrNotFound)
}

func (s *JobStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return err
	}
	before := len(jobs)
	jobs = slices.DeleteFunc(jobs, func(job *Job) bool { return job.ID == id })
	if len(jobs) == before {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	if err := writeJSON(s.path, jobs); err != nil {
		return fmt.Errorf("save jobs: %w", err)
	}
	return nil
}

func (s *JobStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(s.path, []*Job{})
}

func (s *JobStore) load() ([]*Job, error) {
	jobs := []*Job{}
	if err := readJSON(s.path, &jobs); err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	return jobs, nil
}
