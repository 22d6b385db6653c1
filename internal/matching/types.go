// Package matching scores candidates against job requirements and ranks them.
package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// Score ranges of the breakdown components.
const (
	MaxSkillsPoints     = 40
	MaxExperiencePoints = 35
	MaxEducationPoints  = 25
)

// JobRequirements is the fixed requirement set every candidate of one run is
// scored against.
type JobRequirements struct {
	RequiredSkills        []string `json:"required_skills"`
	ExperienceRequirement string   `json:"experience_requirement"`
	EducationRequirement  string   `json:"education_requirement"`
}

// Clone returns a deep copy so callers cannot mutate shared requirements.
func (r JobRequirements) Clone() JobRequirements {
	r.RequiredSkills = slices.Clone(r.RequiredSkills)
	return r
}

// Fingerprint is a stable hash of the requirement content.
func (r JobRequirements) Fingerprint() string {
	data, _ := json.Marshal(r)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

type ScoreBreakdown struct {
	SkillsPoints     int `json:"skills_points"`
	ExperiencePoints int `json:"experience_points"`
	EducationPoints  int `json:"education_points"`
}

func (b ScoreBreakdown) Total() int {
	return b.SkillsPoints + b.ExperiencePoints + b.EducationPoints
}

// MatchResult is the evaluation of one resume against one job.
type MatchResult struct {
	ResumeID            string         `json:"resume_id"`
	CandidateName       string         `json:"candidate_name"`
	TotalRequiredSkills int            `json:"total_required_skills"`
	MatchScore          int            `json:"match_score"`
	MatchedSkills       []string       `json:"matched_skills"`
	MissingSkills       []string       `json:"missing_skills"`
	ExperienceMatch     string         `json:"experience_match"`
	EducationMatch      string         `json:"education_match"`
	OverallExplanation  string         `json:"overall_explanation"`
	ScoreBreakdown      ScoreBreakdown `json:"score_breakdown"`
}

// CandidateFailure records a resume that could not be scored.
type CandidateFailure struct {
	ResumeID      string `json:"resume_id"`
	CandidateName string `json:"candidate_name"`
	Error         string `json:"error"`
}
