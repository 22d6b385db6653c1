package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/metrics"
	"github.com/spigell/cv-matcher/internal/repair"
	"github.com/spigell/cv-matcher/internal/resume"
)

const (
	scoreTemperature = 0.1
	notAvailable     = "N/A"
)

var (
	//go:embed prompts/score.md
	scorePrompt string
	//go:embed prompts/score_system.txt
	scoreSystem string
	//go:embed schemas/match_result.json
	matchResultSchemaSource string

	matchResultSchema = repair.MustCompile(matchResultSchemaSource)
)

// Scorer evaluates one resume at a time against fixed requirements.
type Scorer struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewScorer(generator ai.Generator, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{generator: generator, logger: logger}
}

// Score asks the model to evaluate candidate against req and repairs the
// answer. The returned result always satisfies the skill partition and the
// breakdown sum. Failures are returned as *ScoringError.
func (s *Scorer) Score(ctx context.Context, candidate *resume.Record, description string, req JobRequirements) (*MatchResult, error) {
	if candidate == nil {
		return nil, &ScoringError{Cause: errors.New("resume is required")}
	}

	log := s.logger.With(
		zap.String(logger.FieldResumeID, candidate.ID),
		zap.String("requirements_fingerprint", req.Fingerprint()),
	)

	prompt, err := buildScorePrompt(candidate, description, req)
	if err != nil {
		return nil, &ScoringError{ResumeID: candidate.ID, Cause: err}
	}

	raw, err := s.generator.Generate(ctx, &ai.Request{
		Kind:        "score",
		System:      scoreSystem,
		Prompt:      prompt,
		Temperature: scoreTemperature,
	})
	if err != nil {
		return nil, &ScoringError{ResumeID: candidate.ID, Cause: err}
	}

	doc, err := repair.Parse(raw)
	if err != nil {
		return nil, &ScoringError{ResumeID: candidate.ID, Cause: err}
	}

	result, err := reconcile(doc, req, log)
	if err != nil {
		return nil, &ScoringError{ResumeID: candidate.ID, Cause: err}
	}

	result.ResumeID = candidate.ID
	result.CandidateName = candidate.DisplayName()

	log.Info("candidate scored",
		zap.Int("match_score", result.MatchScore),
		zap.Int("matched_skills", len(result.MatchedSkills)),
		zap.Int("required_skills", len(req.RequiredSkills)),
		zap.Int("skills_points", result.ScoreBreakdown.SkillsPoints),
		zap.Int("experience_points", result.ScoreBreakdown.ExperiencePoints),
		zap.Int("education_points", result.ScoreBreakdown.EducationPoints),
	)

	return result, nil
}

// scoringProfile is the part of a resume the model sees. Contact details are
// left out; they carry no qualification signal.
type scoringProfile struct {
	Skills     []string `json:"skills"`
	Experience string   `json:"experience"`
	Education  string   `json:"education"`
	Summary    string   `json:"summary"`
}

func buildScorePrompt(candidate *resume.Record, description string, req JobRequirements) (string, error) {
	reqJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal requirements: %w", err)
	}

	resumeJSON, err := json.MarshalIndent(scoringProfile{
		Skills:     candidate.Skills,
		Experience: candidate.Experience,
		Education:  candidate.Education,
		Summary:    candidate.Summary,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal resume: %w", err)
	}

	total := len(req.RequiredSkills)
	exampleMatched := min(7, total)

	replacer := strings.NewReplacer(
		"{{REQUIREMENTS_JSON}}", string(reqJSON),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(description),
		"{{RESUME_JSON}}", string(resumeJSON),
		"{{TOTAL_SKILLS}}", strconv.Itoa(total),
		"{{EXPERIENCE_REQUIREMENT}}", req.ExperienceRequirement,
		"{{EDUCATION_REQUIREMENT}}", req.EducationRequirement,
		"{{EXAMPLE_MATCHED}}", strconv.Itoa(exampleMatched),
		"{{EXAMPLE_POINTS}}", strconv.Itoa(SkillsPoints(exampleMatched, total)),
	)

	return replacer.Replace(scorePrompt), nil
}

// SkillsPoints is round(matched / total × 40), or 0 when total is 0.
func SkillsPoints(matched, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(matched) / float64(total) * MaxSkillsPoints))
}

type rawResult struct {
	TotalRequiredSkills int             `json:"total_required_skills"`
	MatchScore          int             `json:"match_score"`
	MatchedSkills       []string        `json:"matched_skills"`
	MissingSkills       []string        `json:"missing_skills"`
	ExperienceMatch     string          `json:"experience_match"`
	EducationMatch      string          `json:"education_match"`
	OverallExplanation  string          `json:"overall_explanation"`
	ScoreBreakdown      *ScoreBreakdown `json:"score_breakdown"`
}

// reconcile turns a parsed model answer into a consistent MatchResult.
func reconcile(doc map[string]any, req JobRequirements, log *zap.Logger) (*MatchResult, error) {
	for k, v := range doc {
		if v == nil {
			delete(doc, k)
		}
	}

	for _, w := range fillMissing(doc) {
		log.Warn("validation warning", zap.String("field", w.Field), zap.Any("default", w.Default))
	}

	if err := matchResultSchema.Validate(doc); err != nil {
		return nil, err
	}

	var raw rawResult
	if err := repair.Decode(doc, &raw); err != nil {
		return nil, err
	}

	total := len(req.RequiredSkills)
	result := &MatchResult{
		TotalRequiredSkills: raw.TotalRequiredSkills,
		MatchScore:          raw.MatchScore,
		ExperienceMatch:     orDefault(raw.ExperienceMatch, notAvailable),
		EducationMatch:      orDefault(raw.EducationMatch, notAvailable),
		OverallExplanation:  orDefault(raw.OverallExplanation, notAvailable),
	}

	if _, ok := doc["total_required_skills"]; !ok {
		result.TotalRequiredSkills = total
	} else if raw.TotalRequiredSkills != total {
		log.Warn("skill count mismatch",
			zap.Int("expected", total),
			zap.Int("reported", raw.TotalRequiredSkills),
		)
	}

	var dropped []string
	result.MatchedSkills, result.MissingSkills, dropped = partitionSkills(req.RequiredSkills, raw.MatchedSkills, raw.MissingSkills)
	if len(dropped) > 0 {
		log.Warn("dropped skills outside the required list", zap.Strings("skills", dropped))
	}

	if raw.ScoreBreakdown == nil {
		log.Warn("validation warning", zap.String("field", "score_breakdown"), zap.String("default", "skills points from matched skills"))
		result.ScoreBreakdown = ScoreBreakdown{SkillsPoints: SkillsPoints(len(result.MatchedSkills), total)}
	} else {
		result.ScoreBreakdown = ScoreBreakdown{
			SkillsPoints:     clamp(raw.ScoreBreakdown.SkillsPoints, MaxSkillsPoints),
			ExperiencePoints: clamp(raw.ScoreBreakdown.ExperiencePoints, MaxExperiencePoints),
			EducationPoints:  clamp(raw.ScoreBreakdown.EducationPoints, MaxEducationPoints),
		}
	}

	if calculated := result.ScoreBreakdown.Total(); calculated != result.MatchScore {
		log.Warn("match score disagrees with breakdown, correcting",
			zap.Int("reported", result.MatchScore),
			zap.Int("calculated", calculated),
			zap.Int("skills_points", result.ScoreBreakdown.SkillsPoints),
			zap.Int("experience_points", result.ScoreBreakdown.ExperiencePoints),
			zap.Int("education_points", result.ScoreBreakdown.EducationPoints),
		)
		metrics.ScoreRepairs.Inc()
		result.MatchScore = calculated
	}

	return result, nil
}

// fillMissing adds defaults for absent required fields and reports them.
func fillMissing(doc map[string]any) []ValidationWarning {
	defaults := []struct {
		field string
		value any
	}{
		{"match_score", 0},
		{"matched_skills", []any{}},
		{"missing_skills", []any{}},
		{"experience_match", notAvailable},
		{"education_match", notAvailable},
		{"overall_explanation", notAvailable},
	}

	var warnings []ValidationWarning
	for _, d := range defaults {
		if _, ok := doc[d.field]; ok {
			continue
		}
		doc[d.field] = d.value
		warnings = append(warnings, ValidationWarning{Field: d.field, Default: d.value})
	}
	return warnings
}

// partitionSkills maps the model's matched and missing lists onto required so
// that every required skill lands in exactly one of them. Unknown names are
// returned as dropped. A skill reported in both lists counts as matched.
func partitionSkills(required, matched, missing []string) ([]string, []string, []string) {
	index := make(map[string]int, len(required))
	for i, skill := range required {
		key := normalizeSkill(skill)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	isMatched := make([]bool, len(required))
	var dropped []string
	for _, skill := range matched {
		i, ok := index[normalizeSkill(skill)]
		if !ok {
			dropped = append(dropped, skill)
			continue
		}
		isMatched[i] = true
	}
	for _, skill := range missing {
		if _, ok := index[normalizeSkill(skill)]; !ok {
			dropped = append(dropped, skill)
		}
	}

	matchedOut := make([]string, 0, len(required))
	missingOut := make([]string, 0, len(required))
	for _, skill := range required {
		// Duplicated requirements follow their first occurrence.
		if isMatched[index[normalizeSkill(skill)]] {
			matchedOut = append(matchedOut, skill)
		} else {
			missingOut = append(missingOut, skill)
		}
	}

	return matchedOut, missingOut, dropped
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func clamp(v, maxValue int) int {
	return max(0, min(v, maxValue))
}
