package matching

import (
	"context"
	"errors"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/repair"
)

const notSpecified = "Not specified"

var (
	//go:embed prompts/requirements.md
	requirementsPrompt string
	//go:embed prompts/requirements_system.txt
	requirementsSystem string
	//go:embed schemas/requirements.json
	requirementsSchemaSource string

	requirementsSchema = repair.MustCompile(requirementsSchemaSource)
)

// Extractor turns a job description into JobRequirements.
type Extractor struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewExtractor(generator ai.Generator, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{generator: generator, logger: logger}
}

// Extract asks the model for the requirements of description with zero
// temperature. Any failure is returned as an *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, description string) (JobRequirements, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return JobRequirements{}, &ExtractionError{Cause: errors.New("job description is empty")}
	}

	raw, err := e.generator.Generate(ctx, &ai.Request{
		Kind:        "requirements",
		System:      requirementsSystem,
		Prompt:      strings.ReplaceAll(requirementsPrompt, "{{JOB_DESCRIPTION}}", description),
		Temperature: 0,
	})
	if err != nil {
		return JobRequirements{}, &ExtractionError{Cause: err}
	}

	doc, err := repair.Parse(raw)
	if err != nil {
		return JobRequirements{}, &ExtractionError{Cause: err}
	}

	if err := requirementsSchema.Validate(doc); err != nil {
		return JobRequirements{}, &ExtractionError{Cause: err}
	}

	var req JobRequirements
	if err := repair.Decode(doc, &req); err != nil {
		return JobRequirements{}, &ExtractionError{Cause: err}
	}

	skills := make([]string, 0, len(req.RequiredSkills))
	for _, s := range req.RequiredSkills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	if len(skills) == 0 {
		return JobRequirements{}, &ExtractionError{Cause: errors.New("model returned no required skills")}
	}

	req.RequiredSkills = skills
	req.ExperienceRequirement = orDefault(req.ExperienceRequirement, notSpecified)
	req.EducationRequirement = orDefault(req.EducationRequirement, notSpecified)

	e.logger.Info("extracted job requirements",
		zap.Int("required_skills", len(req.RequiredSkills)),
		zap.Strings("skills", req.RequiredSkills),
		zap.String("experience", req.ExperienceRequirement),
		zap.String("education", req.EducationRequirement),
		zap.String("fingerprint", req.Fingerprint()),
	)

	return req, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
