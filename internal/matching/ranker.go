package matching

import (
	"cmp"
	"slices"
)

// DefaultTopN is how many candidates a run reports.
const DefaultTopN = 3

// Rank returns at most n results ordered by match score, highest first. Equal
// scores are ordered by resume ID. The input slice is not modified.
func Rank(results []MatchResult, n int) []MatchResult {
	if len(results) == 0 || n <= 0 {
		return []MatchResult{}
	}

	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(a, b MatchResult) int {
		if c := cmp.Compare(b.MatchScore, a.MatchScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ResumeID, b.ResumeID)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Top ranks results and keeps the best DefaultTopN.
func Top(results []MatchResult) []MatchResult {
	return Rank(results, DefaultTopN)
}
