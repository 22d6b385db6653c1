package filtering

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/resume"
)

type validCVFilter struct {
	toggle
}

// NewValidCV creates a filter that removes records not flagged as a valid CV.
func NewValidCV() Filter {
	return &validCVFilter{}
}

func (f *validCVFilter) Name() string { return "valid_cv" }

func (f *validCVFilter) Apply(_ context.Context, deps Deps, candidates []*resume.Record) ([]*resume.Record, Step, error) {
	initial := len(candidates)
	kept := make([]*resume.Record, 0, initial)
	var excluded []string

	for _, c := range candidates {
		if c == nil {
			continue
		}
		if !c.IsValidCV {
			excluded = append(excluded, c.ID)
			continue
		}
		kept = append(kept, c)
	}

	if len(excluded) > 0 {
		deps.Logger.Info("excluding records that are not valid CVs",
			zap.Strings("excluded_resumes", excluded),
			zap.Int("resumes_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *validCVFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type excludedFilter struct {
	toggle
	ids []string
}

// NewExcluded creates a filter that removes the given resume IDs.
func NewExcluded(ids []string) Filter {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	return &excludedFilter{ids: clean}
}

func (f *excludedFilter) Name() string { return "excluded" }

func (f *excludedFilter) Apply(_ context.Context, deps Deps, candidates []*resume.Record) ([]*resume.Record, Step, error) {
	initial := len(candidates)
	if len(f.ids) == 0 {
		return candidates, Step{Initial: initial, Left: initial}, nil
	}

	kept := make([]*resume.Record, 0, initial)
	var excluded []string
	for _, c := range candidates {
		if slices.Contains(f.ids, c.ID) {
			excluded = append(excluded, c.ID)
			continue
		}
		kept = append(kept, c)
	}

	if len(excluded) > 0 {
		deps.Logger.Info("excluding resumes by id",
			zap.Strings("excluded_resumes", excluded),
			zap.Int("resumes_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}

func (f *excludedFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["resume_ids"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type duplicatesFilter struct {
	toggle
}

// NewDuplicates creates a filter that keeps one record per candidate email.
// The most recently parsed record wins. Records without email are always kept.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, candidates []*resume.Record) ([]*resume.Record, Step, error) {
	initial := len(candidates)

	latest := make(map[string]*resume.Record)
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Email))
		if key == "" {
			continue
		}
		if prev, ok := latest[key]; !ok || c.ParsedAt.After(prev.ParsedAt) {
			latest[key] = c
		}
	}

	kept := make([]*resume.Record, 0, initial)
	var excluded []string
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Email))
		if key != "" && latest[key] != c {
			excluded = append(excluded, c.ID)
			continue
		}
		kept = append(kept, c)
	}

	if len(excluded) > 0 {
		deps.Logger.Info("excluding duplicate resumes of the same candidate",
			zap.Strings("excluded_resumes", excluded),
			zap.Int("resumes_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}

func (f *duplicatesFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"key": "email", "keeps": "latest parsed_at"},
	}
}
